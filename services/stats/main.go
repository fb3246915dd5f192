package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"tilevar/api/models"
	"tilevar/api/models/constants"
	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/dtos"
	"tilevar/api/repositories/tiledb"
	"tilevar/api/services/engine"

	yaml "gopkg.in/yaml.v2"
)

/*
	Dataset-wide aggregates are approximated rather than counted :
	a handful of anchor chromosomes and position offsets are
	sampled, the row density of each small window measured, and
	that density extrapolated across the full declared position
	domain. Exact counting would require a full domain scan on
	every statistics request.
*/

// SamplingPlan tunes the accuracy/cost tradeoff of the estimate
type SamplingPlan struct {
	AnchorChromosomes []string `yaml:"anchorChromosomes"`
	PositionOffsets   []int    `yaml:"positionOffsets"`
	WindowSize        int      `yaml:"windowSize"`
}

func DefaultSamplingPlan() SamplingPlan {
	return SamplingPlan{
		AnchorChromosomes: []string{"1", "7", "17"},
		PositionOffsets:   []int{1_000_000, 50_000_000, 150_000_000},
		WindowSize:        100_000,
	}
}

// LoadSamplingPlan reads a plan from a yaml file, falling back
// to the default plan when no path is configured
func LoadSamplingPlan(path string) (SamplingPlan, error) {
	if path == "" {
		return DefaultSamplingPlan(), nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return DefaultSamplingPlan(), openErr
	}
	defer f.Close()

	plan := DefaultSamplingPlan()
	if decodeErr := yaml.NewDecoder(f).Decode(&plan); decodeErr != nil {
		return DefaultSamplingPlan(), decodeErr
	}
	if plan.WindowSize <= 0 {
		plan.WindowSize = DefaultSamplingPlan().WindowSize
	}

	return plan, nil
}

type (
	StatsService struct {
		Config *models.Config
		Engine *engine.EngineService
		Client *tiledb.Client
		Plan   SamplingPlan
	}
)

func NewStatsService(eng *engine.EngineService, client *tiledb.Client, cfg *models.Config) *StatsService {
	plan, planErr := LoadSamplingPlan(cfg.Stats.SamplingPlanPath)
	if planErr != nil {
		fmt.Printf("[%s] - Failed to load sampling plan, using defaults : %v\n", time.Now(), planErr)
	}

	return &StatsService{
		Config: cfg,
		Engine: eng,
		Client: client,
		Plan:   plan,
	}
}

// GetArrayStats approximates store-wide statistics. The variant
// total is an extrapolated estimate; the sample count is a lower
// bound accumulated only from rows the sampled windows happened
// to touch.
func (s *StatsService) GetArrayStats(ctx context.Context) dtos.ArrayStatsResponse {
	response := dtos.ArrayStatsResponse{
		Chromosomes: []string{},
		Estimated:   true,
	}

	if engineErr := s.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable for array stats : %v\n", time.Now(), engineErr)
		return response
	}

	engineStats, statsErr := s.Client.GetStats(ctx)
	if statsErr != nil {
		fmt.Printf("[%s] - Array stats fetch failed : %v\n", time.Now(), statsErr)
		return response
	}

	for _, coord := range engineStats.Chromosomes {
		if name, nameErr := chromosome.FromCoordinate(coord); nameErr == nil {
			response.Chromosomes = append(response.Chromosomes, name)
		}
	}
	response.PositionRange = engineStats.PositionRange
	response.StorageSize = FormatStorageSize(engineStats.StorageSizeBytes)

	// sample the plan's windows
	var (
		densities       []float64
		uniqueSampleIds = map[string]bool{}
	)
	for _, anchor := range s.Plan.AnchorChromosomes {
		coord, coordErr := chromosome.ToCoordinate(anchor)
		if coordErr != nil {
			continue
		}

		for _, offset := range s.Plan.PositionOffsets {
			windowEnd := offset + s.Plan.WindowSize - 1
			if windowEnd > constants.PositionMax {
				windowEnd = constants.PositionMax
			}

			rows, windowErr := s.Client.QueryRange(ctx, coord, coord, offset, windowEnd, s.Plan.WindowSize)
			if windowErr != nil {
				fmt.Printf("[%s] - Sampling window (%s, %d) failed, skipping : %v\n", time.Now(), anchor, offset, windowErr)
				continue
			}

			densities = append(densities, float64(len(rows))/float64(s.Plan.WindowSize))

			// accumulate (not estimate) the sample ids touched
			for _, row := range rows {
				if row.Samples == "" {
					continue
				}
				var sampleMap map[string]json.RawMessage
				if unmarshalErr := json.Unmarshal([]byte(row.Samples), &sampleMap); unmarshalErr != nil {
					continue
				}
				for sampleId := range sampleMap {
					uniqueSampleIds[sampleId] = true
				}
			}
		}
	}

	response.TotalVariants = ExtrapolateTotal(densities, len(response.Chromosomes))
	response.SampleCount = len(uniqueSampleIds)

	return response
}

// ExtrapolateTotal projects the mean sampled window density
// across the full position domain of every chromosome holding
// data
func ExtrapolateTotal(densities []float64, chromosomesWithData int) int64 {
	if len(densities) == 0 || chromosomesWithData == 0 {
		return 0
	}

	var sum float64
	for _, density := range densities {
		sum += density
	}
	meanDensity := sum / float64(len(densities))

	return int64(math.Round(meanDensity * float64(constants.PositionMax) * float64(chromosomesWithData)))
}

func FormatStorageSize(sizeBytes int64) string {
	switch {
	case sizeBytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(sizeBytes)/1024)
	case sizeBytes < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(sizeBytes)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(sizeBytes)/(1024*1024*1024))
	}
}
