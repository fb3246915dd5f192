package chromosome

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tilevar/api/models/constants"
)

var (
	ErrInvalidChromosome = errors.New("invalid chromosome")
	ErrInvalidRange      = errors.New("value out of engine domain")
)

/*
	Maps human-readable chromosome names onto the engine's
	integer coordinate domain [1,25] :
		1-22 literally, X -> 23, Y -> 24, MT (or M) -> 25
	A leading "chr" prefix and casing are ignored, so
	"17", "chr17" and "CHR17" all resolve to 17.
*/
func ToCoordinate(name string) (int, error) {
	normalized := strings.TrimSpace(name)
	if strings.HasPrefix(strings.ToLower(normalized), "chr") {
		normalized = normalized[3:]
	}

	// numeric contigs
	if chromNumber, convErr := strconv.Atoi(normalized); convErr == nil {
		if chromNumber >= 1 && chromNumber <= 22 {
			return chromNumber, nil
		}
		return 0, fmt.Errorf("%w : %s", ErrInvalidChromosome, name)
	}

	// sex chromosomes and the mitochondrial contig
	switch strings.ToUpper(normalized) {
	case "X":
		return 23, nil
	case "Y":
		return 24, nil
	case "MT", "M":
		return 25, nil
	}

	return 0, fmt.Errorf("%w : %s", ErrInvalidChromosome, name)
}

// FromCoordinate is the inverse of ToCoordinate and renders
// the canonical short form ("17", "X", "Y", "MT")
func FromCoordinate(coord int) (string, error) {
	switch {
	case coord >= 1 && coord <= 22:
		return strconv.Itoa(coord), nil
	case coord == 23:
		return "X", nil
	case coord == 24:
		return "Y", nil
	case coord == 25:
		return "MT", nil
	}
	return "", fmt.Errorf("%w : %d", ErrInvalidChromosome, coord)
}

func IsValidHumanChromosome(text string) bool {
	_, err := ToCoordinate(text)
	return err == nil
}

// CheckPosition validates a 1-based position against the
// declared engine domain before it is put on the wire
func CheckPosition(pos int) error {
	if pos < constants.PositionMin || pos > constants.PositionMax {
		return fmt.Errorf("%w : position %d", ErrInvalidRange, pos)
	}
	return nil
}

func CheckAlleleIndex(index int) error {
	if index < constants.AlleleIndexMin || index > constants.AlleleIndexMax {
		return fmt.Errorf("%w : allele index %d", ErrInvalidRange, index)
	}
	return nil
}
