package cache

// Keyer builds cache keys. Implementations must produce different keys
// whenever any option that affects the stored bytes differs.
type Keyer interface {
	// ArtifactKey identifies a rendered artifact of a trace.
	ArtifactKey(traceHash string, opts ArtifactKeyOpts) string

	// StatsKey identifies the statistics summary of a trace.
	StatsKey(traceHash string, opts LayoutKeyOpts) string
}

// LayoutKeyOpts holds the options that change the computed layout.
type LayoutKeyOpts struct {
	Shape         string  `json:"shape"`
	TargetWidth   float64 `json:"target_width"`
	HeightCap     float64 `json:"height_cap"`
	RulesHash     string  `json:"rules_hash,omitempty"`
	CaseSensitive bool    `json:"case_sensitive,omitempty"`
}

// ArtifactKeyOpts holds the layout options plus the options that change
// how a layout is rendered.
type ArtifactKeyOpts struct {
	LayoutKeyOpts
	Format   string  `json:"format"`
	Source   string  `json:"source,omitempty"`
	Tooltips bool    `json:"tooltips,omitempty"`
	Accesses bool    `json:"accesses,omitempty"`
	Polygon  bool    `json:"polygon,omitempty"`
	Stats    bool    `json:"stats,omitempty"`
	Detailed bool    `json:"detailed,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// DefaultKeyer builds keys of the form "kind:sha256(parts)".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(traceHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", traceHash, opts)
}

// StatsKey returns "stats:<hash>".
func (DefaultKeyer) StatsKey(traceHash string, opts LayoutKeyOpts) string {
	return hashKey("stats", traceHash, opts)
}
