package timeline

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Build lays out a decoded trace. The only error cases are invalid options
// and a legacy trace without a scope tree; everything else is reported as a
// warning.
func Build(tr *trace.Trace, opts ...Option) (*Layout, error) {
	cfg := newConfig(opts)
	if err := errors.ValidateDimension("target width", cfg.targetWidth); err != nil {
		return nil, err
	}
	if err := errors.ValidateDimension("height cap", cfg.heightCap); err != nil {
		return nil, err
	}
	legacy := tr.Shape == trace.ShapeLegacy
	if legacy && tr.Root == nil {
		return nil, errors.New(errors.ErrCodeMissingField, "legacy trace has no scope tree")
	}

	totals := Aggregate(tr.Events, opts...)
	scale := totals.Scale(cfg.targetWidth, cfg.heightCap)

	p := &placer{
		logger: cfg.logger,
		scale:  scale,
		totals: totals,
		legacy: legacy,
		tops:   totals.baselines(scale.Y),
		live:   make(map[string]*Container),
		layout: &Layout{
			Shape:        tr.Shape,
			EventCount:   totals.EventCount,
			MaxFootprint: totals.MaxFootprint,
			ScaleX:       scale.X,
			ScaleY:       scale.Y,
			Totals:       totals,
			Warnings:     totals.Warnings,
		},
	}
	for _, ev := range tr.Events {
		p.step(ev)
	}
	p.finish()

	l := p.layout
	if legacy {
		l.Scopes = FlattenScopes(tr.Root, scale.X)
	}
	l.Polygon = Simplify(p.polygon)
	l.Bounds = bounds(l)
	computeStats(l, cfg.logger)
	return l, nil
}

func bounds(l *Layout) Rect {
	x, y := l.Axes()
	r := Rect{X: 0, Y: -y.Length, Width: x.Length}
	var maxY float64
	for _, s := range l.Scopes {
		if bottom := s.Y + s.Height; bottom > maxY {
			maxY = bottom
		}
	}
	r.Height = maxY - r.Y
	return r
}

func computeStats(l *Layout, logger *log.Logger) {
	ratios := make([]float64, len(l.Containers))
	reuse := make([]float64, len(l.Containers))
	for i, c := range l.Containers {
		c.Reuse = ComputeReuse(c)
		ratios[i] = c.Reuse.UseRatio
		reuse[i] = c.Reuse.MeanDistance
	}

	l.MedianReuseDistance = math.Inf(1)
	l.MedianUseRatio = 0
	if len(l.Containers) == 0 {
		logger.Warn("trace has no allocations, medians unavailable")
		l.Warnings++
		return
	}
	l.MedianUseRatio, _ = Median(ratios)
	l.MedianReuseDistance, _ = Median(reuse)
}

// placer is the state of the placement pass.
type placer struct {
	logger *log.Logger
	scale  Scale
	totals Totals
	legacy bool
	layout *Layout

	time    int
	tops    [4]float64
	live    map[string]*Container
	polygon []Point

	open  []*openScope
	depth int
	nCond int
}

type openScope struct {
	id    string
	label string
	kind  trace.ScopeKind
	depth int
	start int
}

func (p *placer) warn(msg string, keyvals ...any) {
	p.logger.Warn(msg, keyvals...)
	p.layout.Warnings++
}

func (p *placer) step(ev trace.Event) {
	switch ev.Kind {
	case trace.KindAllocation:
		for _, b := range ev.Buffers {
			p.allocate(b, ev.Conditional)
		}
	case trace.KindDeallocation:
		for _, b := range ev.Buffers {
			p.deallocate(b.Name)
		}
	case trace.KindAccess:
		p.access(ev)
	case trace.KindScopeEntry:
		if !p.legacy {
			p.enter(ev)
		}
	case trace.KindScopeExit:
		if !p.legacy {
			p.exit(ev.ScopeID)
		}
	}
}

func (p *placer) allocate(b trace.Buffer, conditional bool) {
	size, _ := b.Size.Bytes()
	name := roles.StripInternalPrefix(b.Name)
	role := p.totals.Roles[name]
	if !p.legacy {
		conditional = p.nCond > 0
	}

	c := &Container{
		Name:        name,
		Buffer:      b.Name,
		Size:        size,
		IsInput:     role == roles.Input || role == roles.InputOutput,
		IsOutput:    role == roles.Output || role == roles.InputOutput,
		Conditional: conditional,
		AllocatedAt: p.time,
	}
	c.Height = size * p.scale.Y
	c.X = float64(p.time) * p.scale.X
	p.tops[role] -= c.Height
	c.Y = p.tops[role]

	p.layout.Containers = append(p.layout.Containers, c)
	p.live[b.Name] = c
	p.polygon = append(p.polygon, Point{c.X, c.Y + c.Height}, Point{c.X, c.Y})
}

func (p *placer) deallocate(name string) {
	c, ok := p.live[name]
	if !ok {
		p.warn("deallocating buffer that is not allocated", "buffer", name)
		return
	}
	c.Width = float64(p.time)*p.scale.X - c.X
	c.DeallocatedAt = p.time
	c.closed = true
	p.tops[c.Role()] += c.Height

	right := c.X + c.Width
	p.polygon = append(p.polygon, Point{right, c.Y}, Point{right, c.Y + c.Height})
	delete(p.live, name)
}

func (p *placer) access(ev trace.Event) {
	defer func() { p.time++ }()

	c, ok := p.live[ev.Buffer]
	if !ok {
		p.warn("access to buffer that is not allocated", "buffer", ev.Buffer, "time", p.time)
		return
	}
	conditional := ev.Conditional
	if !p.legacy {
		conditional = p.nCond > 0
	}
	a := &Access{
		Mode:        ev.Mode,
		Subset:      ev.Subset,
		Timestep:    p.time,
		Conditional: conditional,
		Container:   c,
		Rect: Rect{
			X:      float64(p.time) * p.scale.X,
			Y:      c.Y,
			Width:  p.scale.X,
			Height: c.Height,
		},
	}
	if ev.Mode == trace.ModeRead {
		p.layout.Reads = append(p.layout.Reads, a)
	} else {
		p.layout.Writes = append(p.layout.Writes, a)
	}
	c.register(a)
}

// scopeLabel names a scope after its kind. Unknown kinds are treated as
// conditional.
func scopeLabel(ev trace.Event) (string, trace.ScopeKind) {
	switch ev.ScopeKind {
	case trace.ScopeLoop:
		return "Loop " + ev.ScopeID, trace.ScopeLoop
	case trace.ScopeFunc:
		return "Function " + ev.FuncName, trace.ScopeFunc
	case trace.ScopeParallel:
		return "Parallel " + ev.ScopeID, trace.ScopeParallel
	}
	return "Conditional " + ev.ScopeID, trace.ScopeConditional
}

func (p *placer) enter(ev trace.Event) {
	label, kind := scopeLabel(ev)
	if kind == trace.ScopeConditional {
		p.nCond++
	}
	s := &openScope{id: ev.ScopeID, label: label, kind: kind, depth: p.depth, start: p.time}
	p.depth++

	// Re-entering an open id replaces it but keeps its position.
	for i, o := range p.open {
		if o.id == s.id {
			p.open[i] = s
			return
		}
	}
	p.open = append(p.open, s)
}

func (p *placer) exit(id string) {
	idx := -1
	for i, o := range p.open {
		if o.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.warn("scope exit without matching entry", "scope", id)
		return
	}
	s := p.open[idx]
	p.open = append(p.open[:idx], p.open[idx+1:]...)

	if s.kind == trace.ScopeConditional {
		p.nCond--
	}
	p.depth = max(p.depth-1, 0)
	p.close(s)
}

// close ends s at the current time. Zero-width scopes are dropped.
func (p *placer) close(s *openScope) {
	if s.start == p.time {
		return
	}
	p.layout.Scopes = append(p.layout.Scopes, newScope(s.label, s.kind, s.depth, s.start, p.time, p.scale.X))
}

func newScope(label string, kind trace.ScopeKind, depth, start, end int, scaleX float64) Scope {
	x := float64(start) * scaleX
	return Scope{
		Label: label,
		Type:  kind,
		Depth: depth,
		Start: start,
		End:   end,
		Rect: Rect{
			X:      x,
			Y:      float64(depth+1) * ScopeBandHeight,
			Width:  float64(end)*scaleX - x,
			Height: ScopeBandHeight,
		},
	}
}

// finish closes every scope and container still open at the end of the
// stream. That includes containers displaced from the live map by a second
// allocation under the same name; only those still live add to the closing
// polygon edge, which runs at the final x from the top of the remaining
// stack down to the axis.
func (p *placer) finish() {
	for _, s := range p.open {
		p.close(s)
	}
	p.open = nil

	endX := float64(p.time) * p.scale.X
	var remaining float64
	for _, c := range p.layout.Containers {
		if c.closed {
			continue
		}
		c.Width = endX - c.X
		c.DeallocatedAt = p.time
		c.closed = true
		if p.live[c.Buffer] == c {
			remaining += c.Height
		}
	}
	if len(p.live) == 0 {
		return
	}
	// Stacks grow toward negative y, so the remaining stack top is at
	// -remaining, not +remaining.
	p.polygon = append(p.polygon, Point{endX, -remaining}, Point{endX, 0})
}
