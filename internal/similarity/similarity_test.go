package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine_IdenticalVectors(t *testing.T) {
	// Self-similarity of any non-zero vector is maximal
	vectors := [][]float64{
		{1, 0, 0, 0},
		{0.5, 0.25, 0.125},
		{-3, 2, -1},
	}

	for _, v := range vectors {
		cos, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, cos, 1e-9)
	}
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	cos, err := Cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, cos, 1e-9)
}

func TestCosine_OppositeVectors(t *testing.T) {
	cos, err := Cosine([]float64{1, 2}, []float64{-1, -2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, cos, 1e-9)
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	// Zero-magnitude vectors have defined similarity 0, not NaN
	cos, err := Cosine([]float64{0, 0, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, cos)

	cos, err = Cosine([]float64{0, 0}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, cos)
}

func TestCosine_LengthMismatch(t *testing.T) {
	_, err := Cosine([]float64{1, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")
}

func TestCosine_Bounds(t *testing.T) {
	// Cosine of arbitrary equal-length vectors stays within [-1, 1]
	testCases := [][2][]float64{
		{{1, 2, 3}, {4, 5, 6}},
		{{-1, 0.5, 2}, {3, -2, 0.1}},
		{{100, 200}, {0.001, 0.002}},
	}

	for _, tc := range testCases {
		cos, err := Cosine(tc[0], tc[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cos, -1.0)
		assert.LessOrEqual(t, cos, 1.0)
	}
}

func TestPercent_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		raw      float64
		expected int
	}{
		{"opposite maps to 0", -1, 0},
		{"orthogonal maps to 50", 0, 50},
		{"identical maps to 100", 1, 100},
		{"midpoint positive", 0.5, 75},
		{"midpoint negative", -0.5, 25},
		{"rounding", 0.59, 80}, // (0.59+1)/2*100 = 79.5 -> 80
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percent(tt.raw))
		})
	}
}

func TestPercent_Monotonic(t *testing.T) {
	prev := Percent(-1)
	for raw := -1.0; raw <= 1.0; raw += 0.01 {
		pct := Percent(raw)
		assert.GreaterOrEqual(t, pct, prev, "Percent must be non-decreasing at raw=%f", raw)
		assert.GreaterOrEqual(t, pct, 0)
		assert.LessOrEqual(t, pct, 100)
		prev = pct
	}
}

func TestPercent_ClampsOutOfRange(t *testing.T) {
	// Floating point drift slightly outside [-1,1] must not escape [0,100]
	assert.Equal(t, 100, Percent(1+1e-9))
	assert.Equal(t, 0, Percent(-1-1e-9))
	assert.Equal(t, 100, Percent(math.Nextafter(1, 2)))
}
