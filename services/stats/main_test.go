package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtrapolateTotal(t *testing.T) {
	// mean density 0.001 over a 300M domain on 2 chromosomes
	total := ExtrapolateTotal([]float64{0.0005, 0.0015}, 2)
	assert.Equal(t, int64(600_000), total)
}

func TestExtrapolateTotalEmptyInputs(t *testing.T) {
	assert.Equal(t, int64(0), ExtrapolateTotal(nil, 3))
	assert.Equal(t, int64(0), ExtrapolateTotal([]float64{0.5}, 0))
	assert.Equal(t, int64(0), ExtrapolateTotal([]float64{0, 0, 0}, 5))
}

func TestFormatStorageSize(t *testing.T) {
	assert.Equal(t, "0.0 KB", FormatStorageSize(0))
	assert.Equal(t, "1.0 KB", FormatStorageSize(1024))
	assert.Equal(t, "512.0 KB", FormatStorageSize(512*1024))
	assert.Equal(t, "1.0 MB", FormatStorageSize(1024*1024))
	assert.Equal(t, "50.0 MB", FormatStorageSize(50*1024*1024))
	assert.Equal(t, "2.5 GB", FormatStorageSize(int64(2.5*1024*1024*1024)))
}

func TestLoadSamplingPlanDefaultsWhenUnconfigured(t *testing.T) {
	plan, err := LoadSamplingPlan("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSamplingPlan(), plan)
}

func TestLoadSamplingPlanMissingFileFallsBack(t *testing.T) {
	plan, err := LoadSamplingPlan(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultSamplingPlan(), plan)
}

func TestLoadSamplingPlanFromYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yml")
	planYaml := `
anchorChromosomes: ["2", "X"]
positionOffsets: [10000000, 90000000]
windowSize: 50000
`
	require.NoError(t, os.WriteFile(path, []byte(planYaml), 0644))

	plan, err := LoadSamplingPlan(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "X"}, plan.AnchorChromosomes)
	assert.Equal(t, []int{10_000_000, 90_000_000}, plan.PositionOffsets)
	assert.Equal(t, 50_000, plan.WindowSize)
}

func TestLoadSamplingPlanRejectsZeroWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yml")
	planYaml := `
anchorChromosomes: ["1"]
positionOffsets: [1000]
windowSize: 0
`
	require.NoError(t, os.WriteFile(path, []byte(planYaml), 0644))

	plan, err := LoadSamplingPlan(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSamplingPlan().WindowSize, plan.WindowSize)
}
