package records

// Variant is the logical unit of storage : exactly one record
// exists per (chromosome, position) coordinate; multi-allelic
// calls and multiple samples at the same coordinate are folded
// into it rather than split across rows.
type Variant struct {
	Chrom  string   `json:"chrom"`
	Pos    int      `json:"pos"`
	Ref    string   `json:"ref"`
	Alt    []string `json:"alt"`
	Qual   *float64 `json:"qual"`
	Filter []string `json:"filter"`

	Info    map[string]string       `json:"info"`
	Samples map[string]SampleFields `json:"samples"`
}

// SampleFields holds one sample's per-call fields keyed by
// VCF FORMAT id (GT, DP, AD, GQ, ...)
type SampleFields map[string]string

type Sample struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// VariantQuery is an ephemeral filter description, created
// per call and never persisted
type VariantQuery struct {
	Chromosome  string   // optional; empty spans the full chromosome domain
	Start       int      // optional; 0 defaults to the domain lower bound
	End         int      // optional; 0 defaults to the domain upper bound
	Reference   string   // optional exact match
	Alternative string   // optional set-membership match
	MinQuality  *float64 // optional threshold; unqualified rows cannot satisfy it
	SampleIds   []string // optional allow-list; kept rows are projected down to it
	Limit       int
}

type PopulationFrequency struct {
	Chrom string `json:"chrom" mapstructure:"chrom"`
	Pos   int    `json:"pos" mapstructure:"pos"`
	Ref   string `json:"ref" mapstructure:"ref"`
	Alt   string `json:"alt" mapstructure:"alt"`

	AfGlobal float64 `json:"af_global" mapstructure:"af_global"`
	AfAfr    float64 `json:"af_afr" mapstructure:"af_afr"`
	AfAmr    float64 `json:"af_amr" mapstructure:"af_amr"`
	AfAsj    float64 `json:"af_asj" mapstructure:"af_asj"`
	AfEas    float64 `json:"af_eas" mapstructure:"af_eas"`
	AfFin    float64 `json:"af_fin" mapstructure:"af_fin"`
	AfNfe    float64 `json:"af_nfe" mapstructure:"af_nfe"`
	AfOth    float64 `json:"af_oth" mapstructure:"af_oth"`

	AcGlobal      int     `json:"ac_global" mapstructure:"ac_global"`
	AnGlobal      int     `json:"an_global" mapstructure:"an_global"`
	NhomaltGlobal int     `json:"nhomalt_global" mapstructure:"nhomalt_global"`
	Faf95Global   float64 `json:"faf95_global" mapstructure:"faf95_global"`
	IsCommon      bool    `json:"is_common" mapstructure:"is_common"`
}
