package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/memtower/pkg/errors"
)

// Shape selects how the top-level trace document is interpreted.
type Shape string

const (
	ShapeAuto       Shape = "auto"
	ShapeStructured Shape = "structured"
	ShapeLegacy     Shape = "legacy"
)

// Shapes lists the accepted shape names.
var Shapes = []string{string(ShapeAuto), string(ShapeStructured), string(ShapeLegacy)}

// ParseShape validates a shape name. The empty string means [ShapeAuto].
func ParseShape(s string) (Shape, error) {
	if s == "" {
		return ShapeAuto, nil
	}
	for _, v := range Shapes {
		if s == v {
			return Shape(s), nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidShape, "unknown trace shape %q (valid: %v)", s, Shapes)
}

const (
	typeScopeEntry   = "scope_entry"
	typeScopeExit    = "scope_exit"
	typeAccess       = "access"
	typeAllocation   = "allocation"
	typeDeallocation = "deallocation"

	typeLegacyAccess       = "DataAccessEvent"
	typeLegacyAllocation   = "AllocationEvent"
	typeLegacyDeallocation = "DeallocationEvent"
)

// Option configures decoding.
type Option func(*decoder)

// WithShape selects the input shape. The default is [ShapeAuto].
func WithShape(s Shape) Option { return func(d *decoder) { d.shape = s } }

// WithLogger sets the logger used for skipped events.
func WithLogger(l *log.Logger) Option { return func(d *decoder) { d.logger = l } }

type decoder struct {
	shape  Shape
	logger *log.Logger
}

type document struct {
	Events []rawEvent `json:"events"`
	Scopes []Scope    `json:"scopes"`
}

type rawEvent struct {
	Type string `json:"type"`

	ID         json.RawMessage `json:"id"`
	ScopeType  string          `json:"scope_type"`
	FuncName   string          `json:"funcname"`
	BufferName string          `json:"buffer_name"`
	Size       Size            `json:"size"`
	Mode       string          `json:"mode"`
	Offset     json.RawMessage `json:"offset"`

	AllocName   string          `json:"alloc_name"`
	Subset      json.RawMessage `json:"subset"`
	Conditional bool            `json:"conditional"`
	Data        json.RawMessage `json:"data"`
}

// Load reads a trace file, decompressing it when gzipped.
func Load(path string, opts ...Option) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "trace file %s", path)
		}
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Decode(data, opts...)
}

// Decode parses trace bytes, decompressing them when gzipped.
func Decode(data []byte, opts ...Option) (*Trace, error) {
	d := decoder{shape: ShapeAuto}
	for _, opt := range opts {
		opt(&d)
	}
	if d.logger == nil {
		d.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if d.shape == "" {
		d.shape = ShapeAuto
	}

	plain, _ := ReadOrDecompress(data)
	var doc document
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTrace, err, "decode trace")
	}
	if doc.Events == nil {
		return nil, errors.New(errors.ErrCodeMissingField, "trace has no %q field", "events")
	}

	shape := d.shape
	if shape == ShapeAuto {
		shape = detectShape(plain, doc)
	}
	switch shape {
	case ShapeStructured:
		return d.structured(doc)
	case ShapeLegacy:
		return d.legacy(doc)
	}
	return nil, errors.New(errors.ErrCodeInvalidShape, "unknown trace shape %q", shape)
}

// ReadOrDecompress returns the gunzipped contents of data and true, or data
// itself and false when it is not gzip-compressed.
func ReadOrDecompress(data []byte) ([]byte, bool) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return data, false
	}
	return out, true
}

func detectShape(plain []byte, doc document) Shape {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(plain, &top); err == nil {
		if _, ok := top["scopes"]; ok {
			return ShapeLegacy
		}
	}
	if len(doc.Events) > 0 {
		switch doc.Events[0].Type {
		case typeLegacyAccess, typeLegacyAllocation, typeLegacyDeallocation:
			return ShapeLegacy
		}
	}
	return ShapeStructured
}

func (d *decoder) structured(doc document) (*Trace, error) {
	t := &Trace{Shape: ShapeStructured, Events: make([]Event, 0, len(doc.Events))}
	for i, re := range doc.Events {
		switch re.Type {
		case typeAccess:
			mode := ModeWrite
			if re.Mode == "r" {
				mode = ModeRead
			}
			t.Events = append(t.Events, NewAccess(re.BufferName, mode, scalarString(re.Offset)))
		case typeAllocation:
			t.Events = append(t.Events, NewAllocation(re.BufferName, re.Size))
		case typeDeallocation:
			t.Events = append(t.Events, NewDeallocation(re.BufferName))
		case typeScopeEntry:
			t.Events = append(t.Events, NewScopeEntry(scalarString(re.ID), ScopeKind(re.ScopeType), re.FuncName))
		case typeScopeExit:
			t.Events = append(t.Events, NewScopeExit(scalarString(re.ID)))
		default:
			d.skip(t, i, re.Type)
		}
	}
	return t, nil
}

func (d *decoder) legacy(doc document) (*Trace, error) {
	if len(doc.Scopes) == 0 {
		return nil, errors.New(errors.ErrCodeMissingField, "legacy trace has no %q field", "scopes")
	}
	root := doc.Scopes[0]
	t := &Trace{Shape: ShapeLegacy, Root: &root, Events: make([]Event, 0, len(doc.Events))}
	for i, re := range doc.Events {
		switch re.Type {
		case typeLegacyAccess:
			mode := ModeWrite
			if re.Mode == string(ModeRead) {
				mode = ModeRead
			}
			subset, err := subsetString(re.Subset)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidTrace, err, "event %d: subset", i)
			}
			ev := NewAccess(re.AllocName, mode, subset)
			ev.Conditional = re.Conditional
			t.Events = append(t.Events, ev)
		case typeLegacyAllocation:
			var pairs []allocPair
			if err := unmarshalData(re.Data, &pairs); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidTrace, err, "event %d: allocation data", i)
			}
			ev := Event{Kind: KindAllocation, Conditional: re.Conditional, Buffers: make([]Buffer, len(pairs))}
			for j, p := range pairs {
				ev.Buffers[j] = Buffer{Name: p.Name, Size: p.Size}
			}
			t.Events = append(t.Events, ev)
		case typeLegacyDeallocation:
			var names []string
			if err := unmarshalData(re.Data, &names); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidTrace, err, "event %d: deallocation data", i)
			}
			ev := NewDeallocation(names...)
			ev.Conditional = re.Conditional
			t.Events = append(t.Events, ev)
		default:
			d.skip(t, i, re.Type)
		}
	}
	return t, nil
}

func (d *decoder) skip(t *Trace, index int, typ string) {
	t.Skipped++
	d.logger.Warn("skipping event with unknown type", "index", index, "type", typ)
}

type allocPair struct {
	Name string
	Size Size
}

func (p *allocPair) UnmarshalJSON(b []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("allocation entry has %d elements, want 2", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.Name); err != nil {
		return fmt.Errorf("allocation name: %w", err)
	}
	return p.Size.UnmarshalJSON(tuple[1])
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// subsetString formats a legacy subset, which is either a plain string or a
// structured [Subset].
func subsetString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var s Subset
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s.String(), nil
}

// scalarString renders a number-or-string JSON value. Numbers are printed in
// their shortest form, so 5.0 becomes "5".
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}
