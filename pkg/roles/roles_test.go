package roles

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	rules := &Rules{
		InOut: []Matcher{Literal("Both")},
		In:    []Matcher{Literal("A"), Literal("both"), MustPattern(`^in_\d+$`)},
		Out:   []Matcher{Literal("C"), MustPattern(`^out`)},
	}

	tests := []struct {
		name      string
		input     string
		wantIn    bool
		wantOut   bool
		wantRoles Role
	}{
		{"literal input", "A", true, false, Input},
		{"case folded", "a", true, false, Input},
		{"output literal", "C", false, true, Output},
		{"inout wins over in", "BOTH", true, true, InputOutput},
		{"pattern input", "in_42", true, false, Input},
		{"pattern output", "out_tmp", false, true, Output},
		{"member access", "A->field", true, false, Input},
		{"no match", "tmp", false, false, Other},
		{"pattern on folded name", "IN_1", true, false, Input},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := rules.Classify(tt.input)
			if in != tt.wantIn || out != tt.wantOut {
				t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tt.input, in, out, tt.wantIn, tt.wantOut)
			}
			if got := rules.Role(tt.input); got != tt.wantRoles {
				t.Errorf("Role(%q) = %v, want %v", tt.input, got, tt.wantRoles)
			}
		})
	}
}

func TestClassifyIndependentLists(t *testing.T) {
	rules := &Rules{
		In:  []Matcher{Literal("x")},
		Out: []Matcher{Literal("x")},
	}
	if in, out := rules.Classify("x"); !in || !out {
		t.Errorf("Classify(x) = (%v, %v), want (true, true)", in, out)
	}
}

func TestClassifyCaseSensitive(t *testing.T) {
	rules := &Rules{In: []Matcher{Literal("A")}, CaseSensitive: true}
	if in, _ := rules.Classify("a"); in {
		t.Error("case-sensitive rules matched a lowercase name")
	}
	if in, _ := rules.Classify("A"); !in {
		t.Error("case-sensitive rules did not match the exact name")
	}
}

func TestClassifyNilRules(t *testing.T) {
	var rules *Rules
	if in, out := rules.Classify("anything"); in || out {
		t.Errorf("nil rules Classify = (%v, %v), want (false, false)", in, out)
	}
	if rules.Len() != 0 {
		t.Errorf("nil rules Len = %d", rules.Len())
	}
}

func TestStripInternalPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3_A", "A"},
		{"12___state->__4_tmp", "tmp"},
		{"___state->__0_B", "B"},
		{"A", "A"},
		{"1_2_C", "2_C"},
		{"x_1_A", "x_1_A"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := StripInternalPrefix(tt.in); got != tt.want {
				t.Errorf("StripInternalPrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleCaption(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{Input, "Program Input"},
		{Output, "Program Output"},
		{InputOutput, "Program Input & Output"},
		{Other, ""},
	}
	for _, tt := range tests {
		if got := tt.role.Caption(); got != tt.want {
			t.Errorf("%v.Caption() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func ExampleRules_Classify() {
	rules := &Rules{
		InOut: []Matcher{Literal("state")},
		In:    []Matcher{MustPattern(`^w\d$`)},
	}
	fmt.Println(rules.Classify("STATE"))
	fmt.Println(rules.Classify("w1"))
	fmt.Println(rules.Classify("tmp"))
	// Output:
	// true true
	// true false
	// false false
}
