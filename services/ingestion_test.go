package services

import (
	"strings"
	"testing"
	"time"

	"tilevar/api/models"
	"tilevar/api/models/ingest"
	"tilevar/api/models/records"
	"tilevar/api/repositories/tiledb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qualOf(value float64) *float64 {
	return &value
}

func TestFoldBatchMergesSharedCoordinate(t *testing.T) {
	// two source lines for the same site : one per alternate
	// allele, each carrying a different sample's call
	candidates := []records.Variant{
		{
			Chrom: "chr17", Pos: 43044295, Ref: "G",
			Alt:    []string{"A"},
			Qual:   qualOf(50),
			Filter: []string{"PASS"},
			Samples: map[string]records.SampleFields{
				"HG001": {"GT": "0/1"},
			},
		},
		{
			Chrom: "17", Pos: 43044295, Ref: "G",
			Alt:    []string{"T"},
			Qual:   qualOf(99),
			Filter: []string{"LowQual"},
			Samples: map[string]records.SampleFields{
				"HG002": {"GT": "1/1"},
			},
		},
	}

	merged, skipped := FoldBatch(candidates)

	assert.Equal(t, 0, skipped)
	require.Len(t, merged, 1)

	folded := merged[CoordKey{Chrom: 17, Pos: 43044295}]
	require.NotNil(t, folded)

	// alternate sets are unioned in first-seen order
	assert.Equal(t, []string{"A", "T"}, folded.Alt)

	// the higher quality wins
	require.NotNil(t, folded.Qual)
	assert.Equal(t, 99.0, *folded.Qual)

	// filter tags keep the most recently seen value
	assert.Equal(t, []string{"LowQual"}, folded.Filter)

	// sample maps are unioned
	assert.Equal(t, records.SampleFields{"GT": "0/1"}, folded.Samples["HG001"])
	assert.Equal(t, records.SampleFields{"GT": "1/1"}, folded.Samples["HG002"])
}

func TestFoldBatchAbsentQualityLosesToPresent(t *testing.T) {
	candidates := []records.Variant{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: []string{"T"}, Qual: qualOf(10)},
		{Chrom: "1", Pos: 100, Ref: "A", Alt: []string{"T"}, Qual: nil},
	}

	merged, _ := FoldBatch(candidates)
	folded := merged[CoordKey{Chrom: 1, Pos: 100}]
	require.NotNil(t, folded)
	require.NotNil(t, folded.Qual)
	assert.Equal(t, 10.0, *folded.Qual)

	// and in the opposite arrival order
	merged, _ = FoldBatch([]records.Variant{candidates[1], candidates[0]})
	folded = merged[CoordKey{Chrom: 1, Pos: 100}]
	require.NotNil(t, folded.Qual)
	assert.Equal(t, 10.0, *folded.Qual)
}

func TestFoldBatchAltUnionIsIdempotent(t *testing.T) {
	candidates := []records.Variant{
		{Chrom: "2", Pos: 500, Ref: "C", Alt: []string{"G", "T"}},
		{Chrom: "2", Pos: 500, Ref: "C", Alt: []string{"T", "G"}},
		{Chrom: "2", Pos: 500, Ref: "C", Alt: []string{"G"}},
	}

	merged, _ := FoldBatch(candidates)
	folded := merged[CoordKey{Chrom: 2, Pos: 500}]
	require.NotNil(t, folded)
	assert.Equal(t, []string{"G", "T"}, folded.Alt)
}

func TestFoldBatchSkipsInvalidCoordinates(t *testing.T) {
	candidates := []records.Variant{
		{Chrom: "17", Pos: 100, Ref: "A", Alt: []string{"T"}},
		{Chrom: "banana", Pos: 100, Ref: "A", Alt: []string{"T"}},
		{Chrom: "17", Pos: -5, Ref: "A", Alt: []string{"T"}},
		{Chrom: "17", Pos: 400_000_000, Ref: "A", Alt: []string{"T"}},
	}

	merged, skipped := FoldBatch(candidates)
	assert.Len(t, merged, 1)
	assert.Equal(t, 3, skipped)
}

func TestFoldBatchDistinctCoordinatesStaySeparate(t *testing.T) {
	candidates := []records.Variant{
		{Chrom: "1", Pos: 100, Ref: "A", Alt: []string{"T"}},
		{Chrom: "2", Pos: 100, Ref: "A", Alt: []string{"T"}},
		{Chrom: "1", Pos: 101, Ref: "A", Alt: []string{"T"}},
	}

	merged, skipped := FoldBatch(candidates)
	assert.Equal(t, 0, skipped)
	assert.Len(t, merged, 3)
}

func TestFlattenVariantEncoding(t *testing.T) {
	variant := &records.Variant{
		Chrom: "17", Pos: 43044295, Ref: "G",
		Alt:    []string{"A", "T"},
		Qual:   qualOf(60),
		Filter: []string{"PASS", "LowDP"},
		Info:   map[string]string{"DP": "100"},
		Samples: map[string]records.SampleFields{
			"HG001": {"GT": "0/1"},
		},
	}

	row := flattenVariant(CoordKey{Chrom: 17, Pos: 43044295}, variant)

	assert.Equal(t, 17, row.Chrom)
	assert.Equal(t, 43044295, row.Pos)
	assert.Equal(t, "A,T", row.Alt)
	assert.Equal(t, 60.0, row.Qual)
	assert.Equal(t, "PASS,LowDP", row.Filter)
	assert.Contains(t, row.Info, `"DP":"100"`)
	assert.Contains(t, row.Samples, `"HG001"`)
}

func TestFlattenVariantAbsentQualityEncodesNegative(t *testing.T) {
	variant := &records.Variant{Chrom: "1", Pos: 100, Ref: "A", Alt: []string{"T"}}

	row := flattenVariant(CoordKey{Chrom: 1, Pos: 100}, variant)
	assert.Equal(t, -1.0, row.Qual)
	assert.Empty(t, row.Info)
	assert.Empty(t, row.Samples)
}

func TestPublishStateStoresSnapshots(t *testing.T) {
	iz := NewIngestionService(nil, nil, &models.Config{})

	reqStat := &ingest.VariantIngestRequest{
		Id:       uuid.New(),
		Filename: "a.vcf",
		State:    ingest.Queued,
	}
	iz.PublishState(reqStat)

	fetchStored := func() *ingest.VariantIngestRequest {
		iz.IngestRequestMapMux.RLock()
		defer iz.IngestRequestMapMux.RUnlock()
		return iz.IngestRequestMap[reqStat.Id.String()]
	}

	require.Eventually(t, func() bool { return fetchStored() != nil },
		time.Second, 5*time.Millisecond)

	// the map holds a copy, never the producer's live pointer
	stored := fetchStored()
	assert.NotSame(t, reqStat, stored)

	// the producer's later mutations do not bleed into the
	// published snapshot
	reqStat.State = ingest.Running
	reqStat.VariantsWritten = 42
	assert.Equal(t, ingest.Queued, stored.State)
	assert.Zero(t, stored.VariantsWritten)

	// a fresh publish lands the update
	iz.PublishState(reqStat)
	require.Eventually(t, func() bool {
		return fetchStored().State == ingest.Running
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 42, fetchStored().VariantsWritten)
}

func TestSampleHandlesContinueAfterStoredAllocations(t *testing.T) {
	iz := &IngestionService{sampleHandles: map[string]int{}}

	// a restarted bridge seeds the allocator from the store
	iz.seedSampleHandles([]tiledb.SampleRow{
		{Index: 0, Name: "HG001"},
		{Index: 3, Name: "HG007"},
	})

	rows := iz.assignSampleRows([]records.Sample{
		{Name: "HG001"}, // already registered : no-op
		{Name: "HG100"},
		{Name: "HG101"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "HG100", rows[0].Name)
	assert.Equal(t, 4, rows[0].Index)
	assert.Equal(t, "HG101", rows[1].Name)
	assert.Equal(t, 5, rows[1].Index)
}

func TestSampleHandlesAssignmentIsIdempotent(t *testing.T) {
	iz := &IngestionService{sampleHandles: map[string]int{}}

	first := iz.assignSampleRows([]records.Sample{{Name: "HG001"}, {Name: "HG002"}})
	require.Len(t, first, 2)
	assert.Equal(t, 0, first[0].Index)
	assert.Equal(t, 1, first[1].Index)

	again := iz.assignSampleRows([]records.Sample{{Name: "HG002"}, {Name: "HG001"}})
	assert.Empty(t, again)
}

func newParsingService(filterOutReferenceCalls bool) *IngestionService {
	cfg := &models.Config{}
	cfg.Api.FilterOutReferenceCalls = filterOutReferenceCalls
	return &IngestionService{Config: cfg}
}

var vcfTestHeaders = strings.Split(
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tHG001\tHG002", "\t")

var vcfTestSampleIds = map[int]string{9: "HG001", 10: "HG002"}

func TestParseVcfLine(t *testing.T) {
	iz := newParsingService(false)

	line := "chr17\t43044295\trs80357382\tG\tA,T\t60\tPASS\tDP=100;DB\tGT:DP\t0/1:30\t1/1:28"

	candidate, ok := iz.parseVcfLine(vcfTestHeaders, vcfTestSampleIds, line)
	require.True(t, ok)

	assert.Equal(t, "chr17", candidate.Chrom)
	assert.Equal(t, 43044295, candidate.Pos)
	assert.Equal(t, "G", candidate.Ref)
	assert.Equal(t, []string{"A", "T"}, candidate.Alt)
	require.NotNil(t, candidate.Qual)
	assert.Equal(t, 60.0, *candidate.Qual)
	assert.Equal(t, []string{"PASS"}, candidate.Filter)

	assert.Equal(t, "rs80357382", candidate.Info["ID"])
	assert.Equal(t, "100", candidate.Info["DP"])
	assert.Contains(t, candidate.Info, "DB")

	assert.Equal(t, records.SampleFields{"GT": "0/1", "DP": "30"}, candidate.Samples["HG001"])
	assert.Equal(t, records.SampleFields{"GT": "1/1", "DP": "28"}, candidate.Samples["HG002"])
}

func TestParseVcfLineMissingQualityAndFilter(t *testing.T) {
	iz := newParsingService(false)

	line := "1\t100\t.\tA\tT\t.\t.\t.\tGT\t0/1\t./."

	candidate, ok := iz.parseVcfLine(vcfTestHeaders, vcfTestSampleIds, line)
	require.True(t, ok)

	assert.Nil(t, candidate.Qual)
	assert.Nil(t, candidate.Filter)
	assert.NotContains(t, candidate.Info, "ID")
}

func TestParseVcfLineRejectsMalformedRows(t *testing.T) {
	iz := newParsingService(false)

	for _, line := range []string{
		"",
		"1\t100",
		"banana\t100\t.\tA\tT\t.\t.\t.\tGT\t0/1\t0/1",
		"1\tnotanumber\t.\tA\tT\t.\t.\t.\tGT\t0/1\t0/1",
	} {
		_, ok := iz.parseVcfLine(vcfTestHeaders, vcfTestSampleIds, line)
		assert.False(t, ok, line)
	}
}

func TestParseVcfLineReferenceCallFiltering(t *testing.T) {
	// both samples homozygous reference : with filtering on, the
	// whole call is dropped
	line := "1\t100\t.\tA\tT\t50\tPASS\t.\tGT\t0/0\t0|0"

	_, ok := newParsingService(true).parseVcfLine(vcfTestHeaders, vcfTestSampleIds, line)
	assert.False(t, ok)

	candidate, ok := newParsingService(false).parseVcfLine(vcfTestHeaders, vcfTestSampleIds, line)
	require.True(t, ok)
	assert.Len(t, candidate.Samples, 2)

	// one variant call survives the filter
	mixedLine := "1\t100\t.\tA\tT\t50\tPASS\t.\tGT\t0/0\t0/1"
	candidate, ok = newParsingService(true).parseVcfLine(vcfTestHeaders, vcfTestSampleIds, mixedLine)
	require.True(t, ok)
	assert.Len(t, candidate.Samples, 1)
	assert.Contains(t, candidate.Samples, "HG002")
}
