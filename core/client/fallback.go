package client

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
)

// Fallback wraps a real chat client. When the provider fails, it returns an
// empty degraded completion instead of an error so callers can substitute a
// task-appropriate placeholder and stay available.
type Fallback struct {
	real ChatClient
}

func NewFallback(real ChatClient) *Fallback {
	return &Fallback{real: real}
}

func (f *Fallback) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	completion, err := f.real.Complete(ctx, req)
	if err == nil {
		return completion, nil
	}
	g.Log().Warningf(ctx, "chat service degraded, generation falls back to placeholder output: %v", err)
	return &Completion{Degraded: true}, nil
}

// Unavailable is the ChatClient used when no completion provider is
// configured. Every completion is degraded.
type Unavailable struct{}

func (Unavailable) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	return &Completion{Degraded: true}, nil
}
