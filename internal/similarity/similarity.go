// Package similarity scores fingerprint vectors against each other.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine calculates the cosine similarity of two equal-length vectors.
// Result is in [-1, 1]. If either vector has zero magnitude, similarity is
// defined as 0. Comparing vectors of unequal length is a caller error.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	cos := floats.Dot(a, b) / (normA * normB)

	// Floating point can push the ratio a hair outside [-1, 1]
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return cos, nil
}

// Percent maps a raw cosine similarity linearly onto a 0-100 percent scale:
// -1 -> 0, 0 -> 50, 1 -> 100. Rounded to the nearest integer and clamped.
func Percent(raw float64) int {
	pct := int(math.Round((raw + 1) / 2 * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
