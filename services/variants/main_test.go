package variants

import (
	"testing"

	"tilevar/api/models/records"
	"tilevar/api/repositories/tiledb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qualOf(value float64) *float64 {
	return &value
}

func testVariants() []records.Variant {
	return []records.Variant{
		{
			Chrom: "17", Pos: 100, Ref: "G", Alt: []string{"A"},
			Qual: qualOf(20),
			Samples: map[string]records.SampleFields{
				"HG001": {"GT": "0/1"},
			},
		},
		{
			Chrom: "17", Pos: 200, Ref: "G", Alt: []string{"A", "T"},
			Qual: qualOf(60),
			Samples: map[string]records.SampleFields{
				"HG001": {"GT": "0/1"},
				"HG002": {"GT": "1/1"},
			},
		},
		{
			Chrom: "17", Pos: 300, Ref: "C", Alt: []string{"T"},
			Qual: nil,
			Samples: map[string]records.SampleFields{
				"HG003": {"GT": "0/1"},
			},
		},
	}
}

func TestApplyQueryFiltersMinQuality(t *testing.T) {
	// qualities 20, 60 and absent against a threshold of 50 :
	// only the 60 survives; an unqualified call cannot satisfy
	// a threshold
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{
		MinQuality: qualOf(50),
	}, 100)

	require.Len(t, filtered, 1)
	assert.Equal(t, 200, filtered[0].Pos)
}

func TestApplyQueryFiltersNoThresholdKeepsUnqualified(t *testing.T) {
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{}, 100)
	assert.Len(t, filtered, 3)
}

func TestApplyQueryFiltersReference(t *testing.T) {
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{
		Reference: "C",
	}, 100)

	require.Len(t, filtered, 1)
	assert.Equal(t, 300, filtered[0].Pos)
}

func TestApplyQueryFiltersAlternateMembership(t *testing.T) {
	// "T" appears in the multi-allelic set at 200 and alone at 300
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{
		Alternative: "T",
	}, 100)

	require.Len(t, filtered, 2)
	assert.Equal(t, 200, filtered[0].Pos)
	assert.Equal(t, 300, filtered[1].Pos)
}

func TestApplyQueryFiltersSampleAllowList(t *testing.T) {
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{
		SampleIds: []string{"HG002"},
	}, 100)

	require.Len(t, filtered, 1)
	assert.Equal(t, 200, filtered[0].Pos)

	// the kept row is projected down to the allow-list : HG001's
	// call at the same site must not leak through
	assert.Len(t, filtered[0].Samples, 1)
	assert.Contains(t, filtered[0].Samples, "HG002")
}

func TestApplyQueryFiltersLimit(t *testing.T) {
	filtered := ApplyQueryFilters(testVariants(), records.VariantQuery{}, 2)
	assert.Len(t, filtered, 2)
}

func TestComputeAlleleFrequency(t *testing.T) {
	// 4 samples, 8 alleles, 2 of them non-reference
	variant := records.Variant{
		Samples: map[string]records.SampleFields{
			"S1": {"GT": "0/1"},
			"S2": {"GT": "0|0"},
			"S3": {"GT": "0/0"},
			"S4": {"GT": "1/0"},
		},
	}
	assert.InDelta(t, 0.25, ComputeAlleleFrequency(variant), 1e-9)
}

func TestComputeAlleleFrequencyNoCalls(t *testing.T) {
	assert.Equal(t, 0.0, ComputeAlleleFrequency(records.Variant{}))

	variant := records.Variant{
		Samples: map[string]records.SampleFields{
			"S1": {"GT": "./."},
			"S2": {"GT": "."},
			"S3": {"DP": "30"},
		},
	}
	assert.Equal(t, 0.0, ComputeAlleleFrequency(variant))
}

func TestComputeAlleleFrequencyPartialCalls(t *testing.T) {
	// "./1" contributes one called allele, which is non-reference
	variant := records.Variant{
		Samples: map[string]records.SampleFields{
			"S1": {"GT": "./1"},
			"S2": {"GT": "0/0"},
		},
	}
	assert.InDelta(t, 1.0/3.0, ComputeAlleleFrequency(variant), 1e-9)
}

func TestComputeAlleleFrequencyMultiAllelic(t *testing.T) {
	// any non-zero allele index counts as non-reference
	variant := records.Variant{
		Samples: map[string]records.SampleFields{
			"S1": {"GT": "1/2"},
			"S2": {"GT": "0/0"},
		},
	}
	assert.InDelta(t, 0.5, ComputeAlleleFrequency(variant), 1e-9)
}

func TestReconstructVariant(t *testing.T) {
	row := tiledb.VariantRow{
		Chrom:   17,
		Pos:     43044295,
		Ref:     "G",
		Alt:     "A,T",
		Qual:    60,
		Filter:  "PASS,LowDP",
		Info:    `{"DP":"100"}`,
		Samples: `{"HG001":{"GT":"0/1"}}`,
	}

	variant, err := ReconstructVariant(row)
	require.NoError(t, err)

	assert.Equal(t, "17", variant.Chrom)
	assert.Equal(t, 43044295, variant.Pos)
	assert.Equal(t, []string{"A", "T"}, variant.Alt)
	require.NotNil(t, variant.Qual)
	assert.Equal(t, 60.0, *variant.Qual)
	assert.Equal(t, []string{"PASS", "LowDP"}, variant.Filter)
	assert.Equal(t, "100", variant.Info["DP"])
	assert.Equal(t, records.SampleFields{"GT": "0/1"}, variant.Samples["HG001"])
}

func TestReconstructVariantAbsentFields(t *testing.T) {
	row := tiledb.VariantRow{Chrom: 23, Pos: 100, Ref: "A", Qual: -1}

	variant, err := ReconstructVariant(row)
	require.NoError(t, err)

	assert.Equal(t, "X", variant.Chrom)
	assert.Nil(t, variant.Qual)
	assert.Nil(t, variant.Alt)
	assert.Nil(t, variant.Filter)
}

func TestReconstructVariantRejectsBadRows(t *testing.T) {
	_, err := ReconstructVariant(tiledb.VariantRow{Chrom: 99, Pos: 100, Ref: "A"})
	assert.Error(t, err)

	_, err = ReconstructVariant(tiledb.VariantRow{Chrom: 1, Pos: 100, Ref: "A", Info: "not json"})
	assert.Error(t, err)
}
