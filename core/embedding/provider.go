package embedding

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
)

// Result carries the vectors for one Embed call plus whether the call was
// served by the degraded path. Shape is identical on both paths; only
// retrieval quality differs.
type Result struct {
	Vectors  [][]float32
	Degraded bool
}

// Provider converts texts into fixed-dimension vectors, one per input,
// order-preserving.
type Provider interface {
	Embed(ctx context.Context, texts []string) (*Result, error)
	Dimension() int
}

// Fallback wraps a real provider and a degraded stub. Transport failures and
// non-success responses from the real provider are recovered locally by the
// stub, logged as a distinct degraded condition, never surfaced as an error.
type Fallback struct {
	real     Provider
	degraded Provider
}

// NewFallback builds the standard provider pair: real service first, synthetic
// vectors when it fails.
func NewFallback(real, degraded Provider) *Fallback {
	return &Fallback{real: real, degraded: degraded}
}

func (f *Fallback) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return &Result{Vectors: [][]float32{}}, nil
	}

	res, err := f.real.Embed(ctx, texts)
	if err == nil {
		return res, nil
	}

	g.Log().Warningf(ctx, "embedding service degraded, using synthetic vectors for %d texts: %v", len(texts), err)
	res, err = f.degraded.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	res.Degraded = true
	return res, nil
}

func (f *Fallback) Dimension() int {
	return f.real.Dimension()
}
