package facematch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDimensionMismatch is returned when embeddings differ in length or from the configured dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDegenerateVector is returned when an embedding has zero norm or a non-finite component
	ErrDegenerateVector = errors.New("degenerate embedding vector")
)

// Scorer computes cosine similarity between embeddings of a fixed dimension
type Scorer struct {
	Dim int
}

// NewScorer creates a scorer for embeddings of the given dimension
func NewScorer(dim int) Scorer {
	return Scorer{Dim: dim}
}

// Score returns the cosine similarity of a and b in [-1, 1].
func (s Scorer) Score(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) != s.Dim {
		return 0, fmt.Errorf("%w: %d vs %d (want %d)", ErrDimensionMismatch, len(a), len(b), s.Dim)
	}

	va := widen(a)
	vb := widen(b)

	normA := floats.Norm(va, 2)
	normB := floats.Norm(vb, 2)
	if !usableNorm(normA) || !usableNorm(normB) {
		return 0, ErrDegenerateVector
	}

	similarity := floats.Dot(va, vb) / (normA * normB)
	if math.IsNaN(similarity) {
		return 0, ErrDegenerateVector
	}
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity, nil
}

// Validate reports whether v can take part in comparisons: right dimension, finite and non-zero.
func (s Scorer) Validate(v []float32) error {
	_, err := s.Score(v, v)
	return err
}

// usableNorm rejects zero norms and the NaN or Inf produced by non-finite components.
func usableNorm(n float64) bool {
	return n != 0 && !math.IsNaN(n) && !math.IsInf(n, 0)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
