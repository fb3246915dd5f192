package chromosome

import (
	"fmt"
	"testing"

	"tilevar/api/models/constants"

	"github.com/stretchr/testify/assert"
)

func TestToCoordinateAcceptsAllSpellings(t *testing.T) {
	// "17", "chr17" and "CHR17" are the same contig
	for _, spelling := range []string{"17", "chr17", "CHR17", "Chr17", " 17 "} {
		coord, err := ToCoordinate(spelling)
		assert.NoError(t, err, spelling)
		assert.Equal(t, 17, coord, spelling)
	}
}

func TestToCoordinateSpecialContigs(t *testing.T) {
	cases := map[string]int{
		"X":     23,
		"x":     23,
		"chrX":  23,
		"Y":     24,
		"chrY":  24,
		"MT":    25,
		"M":     25,
		"chrM":  25,
		"chrMT": 25,
	}
	for name, expected := range cases {
		coord, err := ToCoordinate(name)
		assert.NoError(t, err, name)
		assert.Equal(t, expected, coord, name)
	}
}

func TestToCoordinateRejectsUnknownContigs(t *testing.T) {
	for _, name := range []string{"", "0", "23", "26", "chr23", "Z", "banana", "chr"} {
		_, err := ToCoordinate(name)
		assert.ErrorIs(t, err, ErrInvalidChromosome, name)
	}
}

func TestFromCoordinateIsInverse(t *testing.T) {
	for coord := constants.ChromosomeCoordMin; coord <= constants.ChromosomeCoordMax; coord++ {
		name, err := FromCoordinate(coord)
		assert.NoError(t, err)

		roundTripped, err := ToCoordinate(name)
		assert.NoError(t, err)
		assert.Equal(t, coord, roundTripped, fmt.Sprintf("coordinate %d via %s", coord, name))
	}
}

func TestFromCoordinateCanonicalNames(t *testing.T) {
	for coord, expected := range map[int]string{1: "1", 22: "22", 23: "X", 24: "Y", 25: "MT"} {
		name, err := FromCoordinate(coord)
		assert.NoError(t, err)
		assert.Equal(t, expected, name)
	}
}

func TestFromCoordinateRejectsOutOfDomain(t *testing.T) {
	for _, coord := range []int{0, -1, 26, 100} {
		_, err := FromCoordinate(coord)
		assert.ErrorIs(t, err, ErrInvalidChromosome)
	}
}

func TestCheckPosition(t *testing.T) {
	assert.NoError(t, CheckPosition(constants.PositionMin))
	assert.NoError(t, CheckPosition(constants.PositionMax))
	assert.NoError(t, CheckPosition(43044295))

	assert.ErrorIs(t, CheckPosition(0), ErrInvalidRange)
	assert.ErrorIs(t, CheckPosition(-5), ErrInvalidRange)
	assert.ErrorIs(t, CheckPosition(constants.PositionMax+1), ErrInvalidRange)
}

func TestCheckAlleleIndex(t *testing.T) {
	assert.NoError(t, CheckAlleleIndex(constants.AlleleIndexMin))
	assert.NoError(t, CheckAlleleIndex(constants.AlleleIndexMax))

	assert.ErrorIs(t, CheckAlleleIndex(-1), ErrInvalidRange)
	assert.ErrorIs(t, CheckAlleleIndex(constants.AlleleIndexMax+1), ErrInvalidRange)
}
