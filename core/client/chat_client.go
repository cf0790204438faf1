package client

import "context"

// Message is one turn of a chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CompletionRequest chat completion parameters
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSONMode    bool // ask the provider to emit a single JSON object
}

// Completion carries the model output plus whether it was produced by the
// degraded placeholder path instead of the real provider.
type Completion struct {
	Content  string
	Degraded bool
}

// ChatClient produces a completion for a conversation
type ChatClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
