package dtos

import (
	"tilevar/api/models/records"
)

type VariantReponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type VariantGetReponse struct {
	VariantReponse
	Results []VariantGetResult `json:"results"`
}

type VariantGetResult struct {
	Chromosome string `json:"chromosome"`
	Start      int    `json:"start"`
	End        int    `json:"end"`

	Calls []records.Variant `json:"calls"`
}

type AlleleFrequencyResponse struct {
	Chrom     string  `json:"chrom"`
	Pos       int     `json:"pos"`
	Ref       string  `json:"ref"`
	Alt       string  `json:"alt"`
	Frequency float64 `json:"frequency"`
}

// ArrayStatsResponse is an estimate, not an exact count :
// totals are extrapolated from sampled windows and the sample
// count is a lower bound accumulated from touched rows only
type ArrayStatsResponse struct {
	TotalVariants int64    `json:"totalVariants"`
	Chromosomes   []string `json:"chromosomes"`
	PositionRange [2]int   `json:"positionRange"`
	SampleCount   int      `json:"sampleCount"`
	StorageSize   string   `json:"storageSize"`
	Estimated     bool     `json:"estimated"`
}

type PopulationFrequencyResponse struct {
	Variants []records.PopulationFrequency `json:"variants"`
}

type PopulationStatsResponse struct {
	TotalVariants  int64 `json:"total_variants"`
	CommonVariants int64 `json:"common_variants"`
	RareVariants   int64 `json:"rare_variants"`
	ArrayAvailable bool  `json:"array_available"`
}
