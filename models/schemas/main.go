package schemas

import "tilevar/api/models/constants"

/*
	On-disk array layouts handed to the engine's `create_arrays`
	operation. Tiling favours locality for short genomic ranges
	(fine position tiling, coarse chromosome tiling) since the
	dominant query is "all variants in a bounded region of one
	chromosome".
*/

type Dimension struct {
	Name       string `json:"name"`
	DomainMin  int    `json:"domain_min"`
	DomainMax  int    `json:"domain_max"`
	TileExtent int    `json:"tile_extent"`
}

type Attribute struct {
	Name string `json:"name"`
	Type string `json:"type"` // "string" | "float64"
}

type ArraySchema struct {
	Name       string      `json:"name"`
	Sparse     bool        `json:"sparse"`
	Dimensions []Dimension `json:"dimensions"`
	Attributes []Attribute `json:"attributes"`
}

func VariantsSchema() ArraySchema {
	return ArraySchema{
		Name:   "variants",
		Sparse: true,
		Dimensions: []Dimension{
			{Name: "chrom", DomainMin: constants.ChromosomeCoordMin, DomainMax: constants.ChromosomeCoordMax, TileExtent: 1},
			{Name: "pos", DomainMin: constants.PositionMin, DomainMax: constants.PositionMax, TileExtent: 10_000},
		},
		Attributes: []Attribute{
			{Name: "ref", Type: "string"},
			{Name: "alt", Type: "string"},     // comma-joined
			{Name: "qual", Type: "float64"},   // -1 encodes "absent"
			{Name: "filter", Type: "string"},  // comma-joined
			{Name: "info", Type: "string"},    // serialized map
			{Name: "samples", Type: "string"}, // serialized sample -> fields map
		},
	}
}

func SamplesSchema() ArraySchema {
	return ArraySchema{
		Name:   "samples",
		Sparse: true,
		Dimensions: []Dimension{
			{Name: "sample_idx", DomainMin: 0, DomainMax: 1_000_000, TileExtent: 1_000},
		},
		Attributes: []Attribute{
			{Name: "name", Type: "string"},
			{Name: "metadata", Type: "string"}, // serialized map
		},
	}
}

func All() []ArraySchema {
	return []ArraySchema{VariantsSchema(), SamplesSchema()}
}
