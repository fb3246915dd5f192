package variants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tilevar/api/models"
	"tilevar/api/models/constants"
	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/records"
	"tilevar/api/repositories/tiledb"
	"tilevar/api/services/engine"

	. "github.com/ahmetb/go-linq"
)

const defaultResultLimit = 100

type (
	VariantService struct {
		Config *models.Config
		Engine *engine.EngineService
		Client *tiledb.Client
	}
)

func NewVariantService(eng *engine.EngineService, client *tiledb.Client, cfg *models.Config) *VariantService {
	return &VariantService{
		Config: cfg,
		Engine: eng,
		Client: client,
	}
}

// QueryVariants translates a logical variant query into one
// coordinate-space slice request and shapes the rows back into
// logical records. Bad caller input is rejected up front;
// engine/transport failures are logged and degrade to an empty
// result so read-heavy callers stay responsive.
func (s *VariantService) QueryVariants(ctx context.Context, query records.VariantQuery) ([]records.Variant, error) {
	chromStart := constants.ChromosomeCoordMin
	chromEnd := constants.ChromosomeCoordMax
	if query.Chromosome != "" {
		coord, coordErr := chromosome.ToCoordinate(query.Chromosome)
		if coordErr != nil {
			return nil, coordErr
		}
		chromStart, chromEnd = coord, coord
	}
	// an unset chromosome spans the full domain [1,25] : bounded
	// but expensive, to be avoided on large stores

	posStart := query.Start
	if posStart == 0 {
		posStart = constants.PositionMin
	}
	posEnd := query.End
	if posEnd == 0 {
		posEnd = constants.PositionMax
	}
	if rangeErr := chromosome.CheckPosition(posStart); rangeErr != nil {
		return nil, rangeErr
	}
	if rangeErr := chromosome.CheckPosition(posEnd); rangeErr != nil {
		return nil, rangeErr
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}

	if engineErr := s.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable for variant query, returning no results : %v\n", time.Now(), engineErr)
		return []records.Variant{}, nil
	}

	rows, queryErr := s.Client.QueryRange(ctx, chromStart, chromEnd, posStart, posEnd, limit)
	if queryErr != nil {
		fmt.Printf("[%s] - Variant range query failed, returning no results : %v\n", time.Now(), queryErr)
		return []records.Variant{}, nil
	}

	variants := make([]records.Variant, 0, len(rows))
	for _, row := range rows {
		variant, reconstructionErr := ReconstructVariant(row)
		if reconstructionErr != nil {
			fmt.Printf("[%s] - Skipping malformed stored row at (%d,%d) : %v\n", time.Now(), row.Chrom, row.Pos, reconstructionErr)
			continue
		}
		variants = append(variants, variant)
	}

	return ApplyQueryFilters(variants, query, limit), nil
}

// ApplyQueryFilters runs the post-slice filters in a fixed order :
// minQual -> reference -> alternate membership -> sample allow-list,
// then projects kept rows down to the requested samples and caps
// the result at limit
func ApplyQueryFilters(variants []records.Variant, query records.VariantQuery, limit int) []records.Variant {
	filtered := make([]records.Variant, 0, len(variants))
	From(variants).WhereT(func(v records.Variant) bool {
		// an unqualified call cannot satisfy a quality threshold
		return query.MinQuality == nil || (v.Qual != nil && *v.Qual >= *query.MinQuality)
	}).WhereT(func(v records.Variant) bool {
		return query.Reference == "" || v.Ref == query.Reference
	}).WhereT(func(v records.Variant) bool {
		if query.Alternative == "" {
			return true
		}
		return From(v.Alt).AnyWithT(func(alt string) bool { return alt == query.Alternative })
	}).WhereT(func(v records.Variant) bool {
		if len(query.SampleIds) == 0 {
			return true
		}
		return From(query.SampleIds).AnyWithT(func(id string) bool {
			_, present := v.Samples[id]
			return present
		})
	}).SelectT(func(v records.Variant) records.Variant {
		// project the sample map down to the allow-list; callers
		// must never see sample data they did not ask for
		if len(query.SampleIds) == 0 {
			return v
		}
		projected := make(map[string]records.SampleFields)
		for _, id := range query.SampleIds {
			if fields, present := v.Samples[id]; present {
				projected[id] = fields
			}
		}
		v.Samples = projected
		return v
	}).Take(limit).ToSlice(&filtered)

	return filtered
}

// CalculateAlleleFrequency fetches the single matching row (if
// any) and computes the fraction of called alleles across all
// samples that are non-reference. A missing row and a row with
// no called genotypes both yield exactly 0.0.
func (s *VariantService) CalculateAlleleFrequency(ctx context.Context, chrom string, pos int, ref string, alt string) (float64, error) {
	coord, coordErr := chromosome.ToCoordinate(chrom)
	if coordErr != nil {
		return 0.0, coordErr
	}
	if rangeErr := chromosome.CheckPosition(pos); rangeErr != nil {
		return 0.0, rangeErr
	}

	if engineErr := s.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable for allele frequency, returning 0.0 : %v\n", time.Now(), engineErr)
		return 0.0, nil
	}

	rows, queryErr := s.Client.QueryRange(ctx, coord, coord, pos, pos, defaultResultLimit)
	if queryErr != nil {
		fmt.Printf("[%s] - Allele frequency fetch failed, returning 0.0 : %v\n", time.Now(), queryErr)
		return 0.0, nil
	}

	for _, row := range rows {
		if row.Pos != pos || row.Ref != ref {
			continue
		}
		variant, reconstructionErr := ReconstructVariant(row)
		if reconstructionErr != nil {
			continue
		}
		altPresent := false
		for _, storedAlt := range variant.Alt {
			if storedAlt == alt {
				altPresent = true
				break
			}
		}
		if !altPresent {
			continue
		}
		return ComputeAlleleFrequency(variant), nil
	}

	return 0.0, nil
}

// ComputeAlleleFrequency counts non-reference alleles over all
// called alleles; samples with no call ("./." or ".") contribute
// to neither numerator nor denominator
func ComputeAlleleFrequency(variant records.Variant) float64 {
	var totalAlleles, altAlleles int

	for _, fields := range variant.Samples {
		genotype := fields["GT"]
		if genotype == "" || genotype == "./." || genotype == "." {
			continue
		}

		alleles := strings.Split(strings.ReplaceAll(genotype, "|", "/"), "/")
		for _, allele := range alleles {
			if allele == "." {
				continue
			}
			totalAlleles++
			if allele != "0" {
				altAlleles++
			}
		}
	}

	if totalAlleles == 0 {
		return 0.0
	}
	return float64(altAlleles) / float64(totalAlleles)
}

// ReconstructVariant shapes one stored cell back into a logical
// record : comma-joined alternates/filters are split, serialized
// maps parsed, and the coordinate rendered as a chromosome name
func ReconstructVariant(row tiledb.VariantRow) (records.Variant, error) {
	chromName, chromErr := chromosome.FromCoordinate(row.Chrom)
	if chromErr != nil {
		return records.Variant{}, chromErr
	}

	variant := records.Variant{
		Chrom: chromName,
		Pos:   row.Pos,
		Ref:   row.Ref,
	}

	if row.Alt != "" {
		variant.Alt = strings.Split(row.Alt, ",")
	}
	if row.Filter != "" {
		variant.Filter = strings.Split(row.Filter, ",")
	}
	if row.Qual >= 0 {
		qual := row.Qual
		variant.Qual = &qual
	}

	if row.Info != "" {
		if err := json.Unmarshal([]byte(row.Info), &variant.Info); err != nil {
			return records.Variant{}, fmt.Errorf("parsing info map : %v", err)
		}
	}
	if row.Samples != "" {
		if err := json.Unmarshal([]byte(row.Samples), &variant.Samples); err != nil {
			return records.Variant{}, fmt.Errorf("parsing samples map : %v", err)
		}
	}

	return variant, nil
}
