package constants

/*
	Defines a set of base level
	constants to be used throughout
	the variant bridge and it's
	associated services.
*/

// fixed VCF column headers; any other header
// on the #CHROM row is assumed to be a sample id
var VcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}

const (
	// engine coordinate domain
	ChromosomeCoordMin = 1
	ChromosomeCoordMax = 25

	PositionMin = 1
	PositionMax = 300_000_000

	AlleleIndexMin = 0
	AlleleIndexMax = 1000
)
