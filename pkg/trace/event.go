package trace

import "fmt"

// Kind discriminates the variants of [Event].
type Kind int

const (
	KindAccess Kind = iota
	KindAllocation
	KindDeallocation
	KindScopeEntry
	KindScopeExit
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindAllocation:
		return "allocation"
	case KindDeallocation:
		return "deallocation"
	case KindScopeEntry:
		return "scope_entry"
	case KindScopeExit:
		return "scope_exit"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode is the direction of a buffer access.
type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// ScopeKind is the kind of a lexical or control region.
type ScopeKind string

const (
	ScopeLoop        ScopeKind = "loop"
	ScopeFunc        ScopeKind = "func"
	ScopeParallel    ScopeKind = "parallel"
	ScopeConditional ScopeKind = "conditional"
)

// Buffer names a buffer and, for allocations, its size.
type Buffer struct {
	Name string
	Size Size
}

// Event is one entry of the normalized event stream. Which fields are
// meaningful depends on Kind:
//
//   - KindAccess: Buffer, Mode, Subset, Conditional
//   - KindAllocation: Buffers (name and size), Conditional
//   - KindDeallocation: Buffers (name only)
//   - KindScopeEntry: ScopeID, ScopeKind, FuncName
//   - KindScopeExit: ScopeID
//
// Allocation and deallocation events carry a batch of buffers. Structured
// traces always produce batches of one.
type Event struct {
	Kind Kind

	Buffer      string
	Mode        Mode
	Subset      string
	Conditional bool

	Buffers []Buffer

	ScopeID   string
	ScopeKind ScopeKind
	FuncName  string
}

// NewAllocation returns an allocation event for a single buffer.
func NewAllocation(name string, size Size) Event {
	return Event{Kind: KindAllocation, Buffers: []Buffer{{Name: name, Size: size}}}
}

// NewDeallocation returns a deallocation event for the given buffers.
func NewDeallocation(names ...string) Event {
	bufs := make([]Buffer, len(names))
	for i, n := range names {
		bufs[i] = Buffer{Name: n}
	}
	return Event{Kind: KindDeallocation, Buffers: bufs}
}

// NewAccess returns an access event.
func NewAccess(name string, mode Mode, subset string) Event {
	return Event{Kind: KindAccess, Buffer: name, Mode: mode, Subset: subset}
}

// NewScopeEntry returns a scope entry marker. funcName is only used for
// [ScopeFunc] scopes.
func NewScopeEntry(id string, kind ScopeKind, funcName string) Event {
	return Event{Kind: KindScopeEntry, ScopeID: id, ScopeKind: kind, FuncName: funcName}
}

// NewScopeExit returns a scope exit marker.
func NewScopeExit(id string) Event {
	return Event{Kind: KindScopeExit, ScopeID: id}
}

// Scope is a node of the scope tree supplied with legacy traces.
type Scope struct {
	Label    string  `json:"label"`
	Kind     string  `json:"scope,omitempty"`
	Children []Scope `json:"children,omitempty"`
	Start    int     `json:"start_time"`
	End      int     `json:"end_time"`
}

// Trace is a decoded event stream.
type Trace struct {
	Shape  Shape
	Events []Event
	// Root is the scope tree of a legacy trace, nil for structured traces.
	Root *Scope
	// Skipped counts events whose type was not recognized.
	Skipped int
}

// Counts returns how many events of each kind the trace holds.
func (t *Trace) Counts() map[Kind]int {
	out := make(map[Kind]int, 5)
	for _, ev := range t.Events {
		out[ev.Kind]++
	}
	return out
}
