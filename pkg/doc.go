// Package pkg provides the core libraries for Memtower memory-trace
// visualization.
//
// # Overview
//
// Memtower turns a trace of memory events (allocations, reads, writes,
// deallocations and scope boundaries) into a stacked timeline: every
// buffer is a box spanning its lifetime, stacked by role, with access marks,
// scope bands and a footprint outline. The pkg directory is organized into
// three areas:
//
//  1. Domain logic: [trace], [roles], [timeline]
//  2. Rendering: [render] and its sink and scopetree subpackages
//  3. Orchestration and infrastructure: [pipeline], [cache],
//     [observability], [errors]
//
// # Architecture
//
// The typical data flow through Memtower:
//
//	Trace file (structured or legacy JSON, optionally gzipped)
//	         ↓
//	    [trace] package (decode events and scopes)
//	         ↓
//	    [timeline] package (lifetimes, stacking, reuse statistics)
//	         ↓
//	    [render] package (shapes, SVG/PNG/PDF/JSON, scope tree)
//
// # Quick Start
//
// Decode a trace and render it as SVG:
//
//	import (
//	    "github.com/matzehuels/memtower/pkg/render/sink"
//	    "github.com/matzehuels/memtower/pkg/roles"
//	    "github.com/matzehuels/memtower/pkg/timeline"
//	    "github.com/matzehuels/memtower/pkg/trace"
//	)
//
//	// 1. Decode the trace
//	tr, _ := trace.Load("run.json")
//
//	// 2. Classify buffers and compute the layout
//	rules, _ := roles.Load("rules.yaml")
//	l, _ := timeline.Build(tr, timeline.WithRules(rules))
//
//	// 3. Render to SVG
//	svg := sink.RenderSVG(l, sink.WithTooltips())
//
// The [pipeline] package wraps these steps with validation and caching and
// is what the CLI and HTTP server use.
//
// # Main Packages
//
// [trace] - Decoding of both trace shapes, symbolic sizes and legacy access
// subsets.
//
// [roles] - Input/output classification of buffers by literal names or
// regular expressions, loaded from JSON, YAML or TOML.
//
// [timeline] - The layout core: container lifetimes, role-ordered stacking,
// access placement, scope nesting, the footprint polygon and reuse
// statistics.
//
// [cache] - File, Redis and MongoDB backends behind one interface, selected
// by URL.
//
// [trace]: github.com/matzehuels/memtower/pkg/trace
// [roles]: github.com/matzehuels/memtower/pkg/roles
// [timeline]: github.com/matzehuels/memtower/pkg/timeline
// [render]: github.com/matzehuels/memtower/pkg/render
// [pipeline]: github.com/matzehuels/memtower/pkg/pipeline
// [cache]: github.com/matzehuels/memtower/pkg/cache
// [observability]: github.com/matzehuels/memtower/pkg/observability
// [errors]: github.com/matzehuels/memtower/pkg/errors
package pkg
