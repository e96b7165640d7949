// Package pipeline runs the load → layout → render pipeline shared by the
// CLI and the HTTP server.
//
// # Stages
//
//  1. Load: decode a trace (gzip or plain, structured or legacy shape) and
//     the optional role rules
//  2. Layout: place containers, accesses and scopes with [timeline.Build]
//  3. Render: produce SVG, PNG, PDF, JSON, DOT or scope-tree artifacts
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "run.json",
//	    Trace:   data,
//	    Formats: []string{"svg", "json"},
//	})
//	svg := result.Artifacts["svg"]
//
// Artifacts are cached by the SHA-256 of the trace bytes and every option
// that changes the output, so the layout is skipped entirely on a hit.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memtower/pkg/cache"
	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Defaults shared by the CLI and the server.
const (
	DefaultTargetWidth = timeline.DefaultTargetWidth
	DefaultHeightCap   = timeline.DefaultHeightCap
	DefaultPNGScale    = 0.2
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	// FormatDOT is the scope tree in Graphviz DOT.
	FormatDOT = "dot"
	// FormatScopes is the scope tree rendered to SVG by Graphviz.
	FormatScopes = "scopes"
)

// Formats lists the supported output formats.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatDOT, FormatScopes}

// Options configures a pipeline run. The JSON form carries everything but
// the raw inputs, so it doubles as a request body schema.
type Options struct {
	// Input
	Source      string       `json:"source,omitempty"`
	Trace       []byte       `json:"-"`
	Shape       string       `json:"shape,omitempty"`
	Rules       []byte       `json:"-"`
	RulesFormat roles.Format `json:"rules_format,omitempty"`

	// Layout
	CaseSensitive bool    `json:"case_sensitive,omitempty"`
	TargetWidth   float64 `json:"target_width,omitempty"`
	HeightCap     float64 `json:"height_cap,omitempty"`

	// Render
	Formats    []string `json:"formats,omitempty"`
	Tooltips   bool     `json:"tooltips,omitempty"`
	NoAccesses bool     `json:"no_accesses,omitempty"`
	NoPolygon  bool     `json:"no_polygon,omitempty"`
	NoStats    bool     `json:"no_stats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Scale      float64  `json:"scale,omitempty"`

	// Refresh bypasses cache reads. Results are still written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result holds the outputs of [Runner.Execute].
type Result struct {
	TraceHash string

	// Layout is nil when every artifact came from the cache.
	Layout *timeline.Layout
	Trace  *trace.Trace

	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timings and sizes of a run.
type Stats struct {
	EventCount     int
	ContainerCount int
	LoadTime       time.Duration
	LayoutTime     time.Duration
	RenderTime     time.Duration
}

// CacheInfo records which lookups hit the cache.
type CacheInfo struct {
	RenderHit bool // every requested artifact came from the cache
	StatsHit  bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout checks the input and layout options.
func (o *Options) ValidateForLayout() error {
	if len(o.Trace) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "trace is empty")
	}
	if o.Shape == "" {
		o.Shape = string(trace.ShapeAuto)
	}
	if _, err := trace.ParseShape(o.Shape); err != nil {
		return err
	}
	if len(o.Rules) > 0 && o.RulesFormat == "" {
		o.RulesFormat = roles.FormatJSON
	}
	if o.TargetWidth == 0 {
		o.TargetWidth = DefaultTargetWidth
	}
	if o.HeightCap == 0 {
		o.HeightCap = DefaultHeightCap
	}
	if err := errors.ValidateDimension("target width", o.TargetWidth); err != nil {
		return err
	}
	if err := errors.ValidateDimension("height cap", o.HeightCap); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender checks the render options.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	for _, f := range o.Formats {
		if err := errors.ValidateFormat(f, Formats); err != nil {
			return err
		}
	}
	if o.Scale == 0 {
		o.Scale = DefaultPNGScale
	}
	if err := errors.ValidateDimension("png scale", o.Scale); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// LayoutKeyOpts returns the cache key options of the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{
		Shape:         o.Shape,
		TargetWidth:   o.TargetWidth,
		HeightCap:     o.HeightCap,
		CaseSensitive: o.CaseSensitive,
	}
	if len(o.Rules) > 0 {
		k.RulesHash = cache.Hash(append([]byte(o.RulesFormat+":"), o.Rules...))
	}
	return k
}

// ArtifactKeyOpts returns the cache key options of one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		LayoutKeyOpts: o.LayoutKeyOpts(),
		Format:        format,
	}
	switch format {
	case FormatSVG, FormatPNG, FormatPDF:
		k.Tooltips = o.Tooltips
		k.Accesses = !o.NoAccesses
		k.Polygon = !o.NoPolygon
		k.Stats = !o.NoStats
		if format == FormatPNG {
			k.Scale = o.Scale
		}
	case FormatJSON:
		k.Source = o.Source
	case FormatDOT, FormatScopes:
		k.Detailed = o.Detailed
	}
	return k
}
