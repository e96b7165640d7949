package pipeline

import (
	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/trace"
)

// LoadTrace decodes opts.Trace with the requested shape.
func LoadTrace(opts Options) (*trace.Trace, error) {
	shape, err := trace.ParseShape(opts.Shape)
	if err != nil {
		return nil, err
	}
	return trace.Decode(opts.Trace, trace.WithShape(shape), trace.WithLogger(opts.Logger))
}

// LoadRules decodes opts.Rules. Without rules it returns nil, which
// classifies every buffer as other. CaseSensitive overrides the setting in
// the rules document.
func LoadRules(opts Options) (*roles.Rules, error) {
	if len(opts.Rules) == 0 {
		return nil, nil
	}
	r, err := roles.ParseFormat(opts.Rules, opts.RulesFormat)
	if err != nil {
		return nil, err
	}
	if opts.CaseSensitive {
		r.CaseSensitive = true
	}
	return r, nil
}
