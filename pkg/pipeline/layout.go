package pipeline

import (
	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

// BuildLayout lays out a decoded trace with the layout options of opts.
func BuildLayout(tr *trace.Trace, rules *roles.Rules, opts Options) (*timeline.Layout, error) {
	return timeline.Build(tr,
		timeline.WithRules(rules),
		timeline.WithLogger(opts.Logger),
		timeline.WithTargetWidth(opts.TargetWidth),
		timeline.WithHeightCap(opts.HeightCap),
	)
}
