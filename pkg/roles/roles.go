// Package roles classifies buffers as program inputs, outputs, both, or
// neither.
//
// A [Rules] value holds three ordered matcher lists. Each [Matcher] is either
// a literal name or a regular expression, compiled once when the rules are
// built:
//
//	rules, err := roles.Parse([]byte(`{"in": ["A", {"type": "regex", "expr": "^x_"}], "out": ["C"]}`))
//	if err != nil {
//	    return err
//	}
//	isIn, isOut := rules.Classify("a")
//
// Names are reduced to the part before the first "->" and, unless
// [Rules.CaseSensitive] is set, lowercased before matching. Literal matchers
// are lowercased the same way; regular expressions are applied as written.
package roles

import (
	"regexp"
	"strings"
)

// Role is one of the four stacking partitions.
type Role int

const (
	// Other holds buffers that are neither input nor output.
	Other Role = iota
	// Input holds input-only buffers.
	Input
	// InputOutput holds buffers that are both input and output.
	InputOutput
	// Output holds output-only buffers.
	Output
)

// RoleOf maps a classification result to its partition.
func RoleOf(isInput, isOutput bool) Role {
	switch {
	case isInput && isOutput:
		return InputOutput
	case isInput:
		return Input
	case isOutput:
		return Output
	}
	return Other
}

func (r Role) String() string {
	switch r {
	case Input:
		return "input"
	case InputOutput:
		return "inout"
	case Output:
		return "output"
	}
	return "other"
}

// Caption is the human-readable description shown next to a buffer, empty
// for [Other].
func (r Role) Caption() string {
	switch r {
	case Input:
		return "Program Input"
	case InputOutput:
		return "Program Input & Output"
	case Output:
		return "Program Output"
	}
	return ""
}

// Matcher is a literal name or a compiled pattern. Exactly one of the two is
// set.
type Matcher struct {
	literal string
	pattern *regexp.Regexp
}

// Literal returns a matcher comparing names for equality.
func Literal(name string) Matcher {
	return Matcher{literal: name}
}

// Pattern compiles expr into a matcher.
func Pattern(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{pattern: re}, nil
}

// MustPattern is like [Pattern] but panics on a bad expression.
func MustPattern(expr string) Matcher {
	m, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// IsPattern reports whether m is a regular-expression matcher.
func (m Matcher) IsPattern() bool { return m.pattern != nil }

// String returns the literal or the pattern source.
func (m Matcher) String() string {
	if m.pattern != nil {
		return m.pattern.String()
	}
	return m.literal
}

func (m Matcher) match(name string, caseSensitive bool) bool {
	if m.pattern != nil {
		return m.pattern.MatchString(name)
	}
	if caseSensitive {
		return name == m.literal
	}
	return name == strings.ToLower(m.literal)
}

// Rules holds the matcher lists. The zero value matches nothing.
type Rules struct {
	InOut         []Matcher
	In            []Matcher
	Out           []Matcher
	CaseSensitive bool
}

// Classify reports whether name is a program input and whether it is a
// program output. An InOut match short-circuits to (true, true); otherwise
// the In and Out lists are scanned independently. A nil receiver classifies
// everything as (false, false).
func (r *Rules) Classify(name string) (isInput, isOutput bool) {
	if r == nil {
		return false, false
	}
	root, _, _ := strings.Cut(name, "->")
	if !r.CaseSensitive {
		root = strings.ToLower(root)
	}
	if anyMatch(r.InOut, root, r.CaseSensitive) {
		return true, true
	}
	return anyMatch(r.In, root, r.CaseSensitive), anyMatch(r.Out, root, r.CaseSensitive)
}

// Role classifies name into its stacking partition.
func (r *Rules) Role(name string) Role {
	return RoleOf(r.Classify(name))
}

// Len returns the total number of matchers.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.InOut) + len(r.In) + len(r.Out)
}

func anyMatch(ms []Matcher, name string, caseSensitive bool) bool {
	for _, m := range ms {
		if m.match(name, caseSensitive) {
			return true
		}
	}
	return false
}

var internalPrefix = regexp.MustCompile(`^(\d*___state->__)?\d+_`)

// StripInternalPrefix removes the generated "<n>_" or
// "<n>___state->__<m>_" prefix that instrumented programs put in front of
// buffer names. The pattern is anchored, so it applies at most once.
func StripInternalPrefix(name string) string {
	return internalPrefix.ReplaceAllString(name, "")
}
