package errors

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// ValidateFormat checks that format is one of allowed.
// The comparison is exact; callers normalize case beforehand.
func ValidateFormat(format string, allowed []string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !slices.Contains(allowed, format) {
		return New(ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}

// ValidateDimension checks that a layout constant is a positive finite number.
func ValidateDimension(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidDimension, "%s must be finite", name)
	}
	if v <= 0 {
		return New(ErrCodeInvalidDimension, "%s must be positive, got %g", name, v)
	}
	return nil
}

// ValidatePath validates a file path supplied by a caller for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
