package tiledb

import (
	"context"
	"fmt"

	"tilevar/api/models/schemas"

	"github.com/mitchellh/mapstructure"
)

// VariantRow is one stored cell of the variants array, exactly
// as it travels on the wire : alternates and filters
// comma-joined, info and samples as serialized maps, absent
// quality encoded as -1
type VariantRow struct {
	Chrom   int     `json:"chrom" mapstructure:"chrom"`
	Pos     int     `json:"pos" mapstructure:"pos"`
	Ref     string  `json:"ref" mapstructure:"ref"`
	Alt     string  `json:"alt" mapstructure:"alt"`
	Qual    float64 `json:"qual" mapstructure:"qual"`
	Filter  string  `json:"filter" mapstructure:"filter"`
	Info    string  `json:"info" mapstructure:"info"`
	Samples string  `json:"samples" mapstructure:"samples"`
}

// QueryRange issues one range-slice request for the coordinate
// rectangle [chromStart,chromEnd] x [posStart,posEnd]
func (c *Client) QueryRange(ctx context.Context, chromStart int, chromEnd int, posStart int, posEnd int, limit int) ([]VariantRow, error) {
	parsed, err := c.Call(ctx, OpQueryVariants, map[string]interface{}{
		"chrom_start": chromStart,
		"chrom_end":   chromEnd,
		"start":       posStart,
		"end":         posEnd,
		"limit":       limit,
	})
	if err != nil {
		return nil, err
	}

	var rows []VariantRow
	if decodeErr := decodeWeakly(parsed.Path("variants").Data(), &rows); decodeErr != nil {
		return nil, fmt.Errorf("%w : decoding '%s' rows : %v", ErrTransport, OpQueryVariants, decodeErr)
	}

	return rows, nil
}

// WriteVariants commits one merged batch as parallel
// coordinate/attribute arrays; the write is atomic per batch
// on the engine side
func (c *Client) WriteVariants(ctx context.Context, rows []VariantRow) error {
	var (
		chroms  = make([]int, 0, len(rows))
		poss    = make([]int, 0, len(rows))
		refs    = make([]string, 0, len(rows))
		alts    = make([]string, 0, len(rows))
		quals   = make([]float64, 0, len(rows))
		filters = make([]string, 0, len(rows))
		infos   = make([]string, 0, len(rows))
		samples = make([]string, 0, len(rows))
	)
	for _, row := range rows {
		chroms = append(chroms, row.Chrom)
		poss = append(poss, row.Pos)
		refs = append(refs, row.Ref)
		alts = append(alts, row.Alt)
		quals = append(quals, row.Qual)
		filters = append(filters, row.Filter)
		infos = append(infos, row.Info)
		samples = append(samples, row.Samples)
	}

	_, err := c.Call(ctx, OpWriteVariants, map[string]interface{}{
		"chrom":   chroms,
		"pos":     poss,
		"ref":     refs,
		"alt":     alts,
		"qual":    quals,
		"filter":  filters,
		"info":    infos,
		"samples": samples,
	})
	return err
}

type SampleRow struct {
	Index    int    `json:"sample_idx" mapstructure:"sample_idx"`
	Name     string `json:"name" mapstructure:"name"`
	Metadata string `json:"metadata" mapstructure:"metadata"`
}

func (c *Client) WriteSamples(ctx context.Context, rows []SampleRow) error {
	var (
		indexes   = make([]int, 0, len(rows))
		names     = make([]string, 0, len(rows))
		metadatas = make([]string, 0, len(rows))
	)
	for _, row := range rows {
		indexes = append(indexes, row.Index)
		names = append(names, row.Name)
		metadatas = append(metadatas, row.Metadata)
	}

	_, err := c.Call(ctx, OpWriteSamples, map[string]interface{}{
		"sample_idx": indexes,
		"name":       names,
		"metadata":   metadatas,
	})
	return err
}

// QuerySamples fetches every registered sample row; used to seed
// the in-process handle allocator from what the store already
// holds, so handles stay stable across bridge restarts
func (c *Client) QuerySamples(ctx context.Context) ([]SampleRow, error) {
	parsed, err := c.Call(ctx, OpQuerySamples, nil)
	if err != nil {
		return nil, err
	}

	var rows []SampleRow
	if decodeErr := decodeWeakly(parsed.Path("samples").Data(), &rows); decodeErr != nil {
		return nil, fmt.Errorf("%w : decoding '%s' rows : %v", ErrTransport, OpQuerySamples, decodeErr)
	}

	return rows, nil
}

// CreateArrays lazily creates the on-disk layouts; callers are
// expected to treat an "already exists" engine error as a
// non-fatal outcome (two first-time callers may race)
func (c *Client) CreateArrays(ctx context.Context, layouts []schemas.ArraySchema) error {
	_, err := c.Call(ctx, OpCreateArrays, map[string]interface{}{
		"schemas": layouts,
	})
	return err
}

// Consolidate merges accumulated fragments and vacuums the
// consolidated ones
func (c *Client) Consolidate(ctx context.Context, arrayNames []string) error {
	_, err := c.Call(ctx, OpConsolidate, map[string]interface{}{
		"arrays": arrayNames,
	})
	return err
}

// EngineStats is the engine's own view of the store : non-empty
// domain plus bytes on disk. Row totals are deliberately NOT
// requested here -- counting is approximated bridge-side by the
// statistics estimator.
type EngineStats struct {
	Chromosomes      []int  `mapstructure:"chromosomes"`
	PositionRange    [2]int `mapstructure:"position_range"`
	StorageSizeBytes int64  `mapstructure:"storage_size_bytes"`
}

func (c *Client) GetStats(ctx context.Context) (*EngineStats, error) {
	parsed, err := c.Call(ctx, OpGetStats, nil)
	if err != nil {
		return nil, err
	}

	var stats EngineStats
	if decodeErr := decodeWeakly(parsed.Data(), &stats); decodeErr != nil {
		return nil, fmt.Errorf("%w : decoding '%s' response : %v", ErrTransport, OpGetStats, decodeErr)
	}

	return &stats, nil
}

// decodeWeakly tolerates the json/interface{} number types
// (every number arrives as a float64) when filling typed structs
func decodeWeakly(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
