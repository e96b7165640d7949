package trace

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Range is one dimension of a legacy access subset. Bounds may be numbers or
// symbolic strings.
type Range struct {
	Start Value `json:"start"`
	End   Value `json:"end"`
	Step  Value `json:"step"`
	Tile  Value `json:"tile"`
}

// Subset is a legacy access subset: a list of ranges, or a union of
// subsets when SubsetList is set.
type Subset struct {
	Ranges     []Range  `json:"ranges,omitempty"`
	SubsetList []Subset `json:"subsetList,omitempty"`
}

// Value is a range bound. Integral numbers and numeric strings compare as
// integers; anything else is kept verbatim.
type Value struct {
	text  string
	n     int64
	isInt bool
}

// IntValue returns an integral Value.
func IntValue(n int64) Value {
	return Value{text: strconv.FormatInt(n, 10), n: n, isInt: true}
}

// SymbolValue returns a Value that is kept verbatim.
func SymbolValue(s string) Value {
	return parseValue(s)
}

func parseValue(s string) Value {
	t := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return IntValue(n)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && f == float64(int64(f)) {
		return IntValue(int64(f))
	}
	return Value{text: s}
}

// UnmarshalJSON accepts numbers and strings.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = parseValue(s)
		return nil
	}
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	*v = parseValue(string(b))
	return nil
}

// MarshalJSON writes integers as numbers and symbols as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isInt {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

func (v Value) String() string { return v.text }

func (v Value) equal(o Value) bool {
	if v.isInt && o.isInt {
		return v.n == o.n
	}
	return v.text == o.text
}

func (v Value) isOne() bool { return v.isInt && v.n == 1 }

// String formats the subset the way access tooltips display it: each subset
// as "[r1, r2]" and unions wrapped in braces. A range prints as "i" when it
// covers a single unit-step, unit-tile index, otherwise as "a:b", "a:b:s",
// "a:b:s:t" or "a:b::t".
func (s Subset) String() string {
	subsets := []Subset{s}
	if len(s.SubsetList) > 0 {
		subsets = s.SubsetList
	}

	var b strings.Builder
	union := len(subsets) > 1
	if union {
		b.WriteByte('{')
	}
	for i, sub := range subsets {
		if sub.Ranges == nil {
			continue
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, r := range sub.Ranges {
			if j > 0 {
				b.WriteString(", ")
			}
			writeRange(&b, r)
		}
		b.WriteByte(']')
	}
	if union {
		b.WriteByte('}')
	}
	return b.String()
}

func writeRange(b *strings.Builder, r Range) {
	if r.Start.equal(r.End) && r.Step.isOne() && r.Tile.isOne() {
		b.WriteString(r.Start.String())
		return
	}
	b.WriteString(r.Start.String())
	b.WriteByte(':')
	b.WriteString(r.End.String())
	switch {
	case !r.Step.isOne():
		b.WriteByte(':')
		b.WriteString(r.Step.String())
		if !r.Tile.isOne() {
			b.WriteByte(':')
			b.WriteString(r.Tile.String())
		}
	case !r.Tile.isOne():
		b.WriteString("::")
		b.WriteString(r.Tile.String())
	}
}
