package timeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memtower/pkg/roles"
)

const (
	// DefaultTargetWidth is the width the x axis is scaled to.
	DefaultTargetWidth = 10000.0

	// DefaultHeightCap is the largest height the y axis is scaled to.
	// Footprints smaller than the cap are drawn 1:1.
	DefaultHeightCap = 10000.0

	// ScopeBandHeight is the height of one scope nesting level.
	ScopeBandHeight = 100.0
)

// Option configures [Build] and [Aggregate].
type Option func(*config)

type config struct {
	rules       *roles.Rules
	logger      *log.Logger
	targetWidth float64
	heightCap   float64
}

// WithRules sets the role rules. Without rules every buffer is in the
// "other" partition.
func WithRules(r *roles.Rules) Option { return func(c *config) { c.rules = r } }

// WithLogger sets the logger used for warnings.
func WithLogger(l *log.Logger) Option { return func(c *config) { c.logger = l } }

// WithTargetWidth overrides [DefaultTargetWidth].
func WithTargetWidth(w float64) Option { return func(c *config) { c.targetWidth = w } }

// WithHeightCap overrides [DefaultHeightCap].
func WithHeightCap(h float64) Option { return func(c *config) { c.heightCap = h } }

func newConfig(opts []Option) config {
	c := config{targetWidth: DefaultTargetWidth, heightCap: DefaultHeightCap}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c
}
