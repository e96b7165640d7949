package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size is an allocation size as it appears in a trace: either a JSON number
// or a numeric string. Parsing is deferred to [Size.Bytes] so that callers
// decide how to report malformed values.
type Size struct {
	raw     string
	numeric bool
}

// SizeOf returns a numeric Size.
func SizeOf(n float64) Size {
	return Size{raw: strconv.FormatFloat(n, 'f', -1, 64), numeric: true}
}

// SizeString returns a Size holding an unparsed string.
func SizeString(s string) Size {
	return Size{raw: s}
}

// UnmarshalJSON accepts numbers, strings and null.
func (s *Size) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = Size{numeric: true}
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Size{raw: str}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*s = Size{raw: string(b), numeric: true}
	default:
		*s = Size{raw: string(b)}
	}
	return nil
}

// MarshalJSON writes numeric sizes as numbers and everything else as strings.
func (s Size) MarshalJSON() ([]byte, error) {
	if s.numeric {
		if s.raw == "" {
			return []byte("0"), nil
		}
		return []byte(s.raw), nil
	}
	return json.Marshal(s.raw)
}

// String returns the size as written in the trace.
func (s Size) String() string {
	return s.raw
}

// Bytes parses the size. Strings are trimmed; an empty string is zero;
// decimal, exponent and 0x/0o/0b integer forms are accepted. NaN and
// anything else is an error.
func (s Size) Bytes() (float64, error) {
	str := strings.TrimSpace(s.raw)
	if str == "" {
		return 0, nil
	}
	if v, err := strconv.ParseFloat(str, 64); err == nil {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("size %q is not a number", s.raw)
		}
		return v, nil
	}
	if v, err := strconv.ParseInt(str, 0, 64); err == nil {
		return float64(v), nil
	}
	return 0, fmt.Errorf("size %q is not a number", s.raw)
}
