package ingest

import (
	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running       = "Running"
	Done          = "Done"
	Error         = "Error"
)

type VariantIngestRequest struct {
	Id        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	State     State     `json:"state"`
	Message   string    `json:"message"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`

	// run-level summary; batches that fail to commit are
	// skipped in their entirety, never silently swallowed
	BatchesWritten  int `json:"batchesWritten"`
	BatchesSkipped  int `json:"batchesSkipped"`
	VariantsWritten int `json:"variantsWritten"`
	VariantsSkipped int `json:"variantsSkipped"`
}

type IngestResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}
