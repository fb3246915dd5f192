package variants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/records"
	"tilevar/api/repositories/tiledb"
)

// PopulationFrequency looks up gnomAD-style population
// frequencies for one variant. A store without a population
// array is a normal condition (the array is optional), so an
// engine-reported error degrades to an empty result like every
// other read-path failure.
func (s *VariantService) PopulationFrequency(ctx context.Context, chrom string, pos int, ref string, alt string) ([]records.PopulationFrequency, error) {
	if _, coordErr := chromosome.ToCoordinate(chrom); coordErr != nil {
		return nil, coordErr
	}
	if rangeErr := chromosome.CheckPosition(pos); rangeErr != nil {
		return nil, rangeErr
	}

	if engineErr := s.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable for population lookup, returning no results : %v\n", time.Now(), engineErr)
		return []records.PopulationFrequency{}, nil
	}

	frequencies, lookupErr := s.Client.PopulationFrequencyLookup(ctx, chrom, pos, ref, alt)
	if lookupErr != nil {
		var engineReported *tiledb.EngineError
		if !errors.As(lookupErr, &engineReported) {
			fmt.Printf("[%s] - Population lookup failed, returning no results : %v\n", time.Now(), lookupErr)
		}
		return []records.PopulationFrequency{}, nil
	}

	return frequencies, nil
}

func (s *VariantService) PopulationStats(ctx context.Context) (*tiledb.PopulationStats, error) {
	if engineErr := s.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable for population stats : %v\n", time.Now(), engineErr)
		return &tiledb.PopulationStats{}, nil
	}

	stats, statsErr := s.Client.PopulationFrequencyStats(ctx)
	if statsErr != nil {
		var engineReported *tiledb.EngineError
		if !errors.As(statsErr, &engineReported) {
			fmt.Printf("[%s] - Population stats failed : %v\n", time.Now(), statsErr)
		}
		return &tiledb.PopulationStats{}, nil
	}

	return stats, nil
}
