package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.5, 0.2, 0.8}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosine_Opposite(t *testing.T) {
	a := []float32{1, 1}
	b := []float32{-1, -1}
	assert.InDelta(t, -1.0, Cosine(a, b), 1e-9)
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	assert.Equal(t, 0.0, Cosine(a, b))
	assert.Equal(t, 0.0, Cosine(b, a))
}

func TestCosine_MismatchedDimensions(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{1, 2, 3}
	assert.Equal(t, 0.0, Cosine(a, b))
}

func TestCosine_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, nil))
}
