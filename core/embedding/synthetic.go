package embedding

import (
	"context"
	"math"
	"math/rand"
)

// Synthetic produces randomized unit-normalized vectors with the same shape
// as the real model, so downstream code never observes a type or dimension
// difference when the embedding service is unavailable.
type Synthetic struct {
	dimension int
}

func NewSynthetic(dimension int) *Synthetic {
	return &Synthetic{dimension: dimension}
}

func (s *Synthetic) Dimension() int {
	return s.dimension
}

func (s *Synthetic) Embed(ctx context.Context, texts []string) (*Result, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = s.randomUnitVector()
	}
	return &Result{Vectors: vectors, Degraded: true}, nil
}

func (s *Synthetic) randomUnitVector() []float32 {
	vec := make([]float32, s.dimension)
	var norm float64
	for i := range vec {
		v := rand.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
