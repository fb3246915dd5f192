package tiledb

import (
	"context"
	"fmt"

	"tilevar/api/models/records"
)

// PopulationFrequencyLookup fetches gnomAD-style per-population
// frequencies for a single variant; an empty slice means the
// variant is not present in the population array
func (c *Client) PopulationFrequencyLookup(ctx context.Context, chrom string, pos int, ref string, alt string) ([]records.PopulationFrequency, error) {
	parsed, err := c.Call(ctx, OpPopulationFrequencyLookup, map[string]interface{}{
		"chrom": chrom,
		"pos":   pos,
		"ref":   ref,
		"alt":   alt,
	})
	if err != nil {
		return nil, err
	}

	var frequencies []records.PopulationFrequency
	if decodeErr := decodeWeakly(parsed.Path("variants").Data(), &frequencies); decodeErr != nil {
		return nil, fmt.Errorf("%w : decoding '%s' rows : %v", ErrTransport, OpPopulationFrequencyLookup, decodeErr)
	}

	return frequencies, nil
}

type PopulationStats struct {
	TotalVariants  int64 `mapstructure:"total_variants"`
	CommonVariants int64 `mapstructure:"common_variants"`
	RareVariants   int64 `mapstructure:"rare_variants"`
	ArrayAvailable bool  `mapstructure:"array_available"`
}

func (c *Client) PopulationFrequencyStats(ctx context.Context) (*PopulationStats, error) {
	parsed, err := c.Call(ctx, OpPopulationFrequencyStats, nil)
	if err != nil {
		return nil, err
	}

	var stats PopulationStats
	if decodeErr := decodeWeakly(parsed.Data(), &stats); decodeErr != nil {
		return nil, fmt.Errorf("%w : decoding '%s' response : %v", ErrTransport, OpPopulationFrequencyStats, decodeErr)
	}

	return &stats, nil
}
