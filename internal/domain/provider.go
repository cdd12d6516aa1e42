package domain

import "context"

// LLMProvider is the interface for a hosted chat-completion backend.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "openai").
	Name() string
}
