package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateEpsilon validates a fractional population tolerance.
// Epsilon must be a finite number in [0, 1).
func ValidateEpsilon(eps float64) error {
	if math.IsNaN(eps) || math.IsInf(eps, 0) {
		return New(ErrCodeInvalidInput, "epsilon must be finite")
	}
	if eps < 0 || eps >= 1 {
		return New(ErrCodeInvalidInput, "epsilon must be in [0, 1), got %g", eps)
	}
	return nil
}

// ValidateTarget validates an ideal per-part population.
func ValidateTarget(target float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return New(ErrCodeInvalidInput, "population target must be a positive number, got %g", target)
	}
	return nil
}

// ValidateNodeRepeats validates a tree-redraw budget.
func ValidateNodeRepeats(n int) error {
	if n < 1 {
		return New(ErrCodeInvalidInput, "node repeats must be at least 1, got %d", n)
	}
	return nil
}

// ValidateColumn validates an attribute column name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No leading or trailing whitespace
//   - Maximum length of 128 characters
func ValidateColumn(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "column name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "column name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "column name contains invalid control characters")
		}
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidInput, "column name %q has surrounding whitespace", name)
	}

	return nil
}
