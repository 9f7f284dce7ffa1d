package gateway

import "context"

// Message is one role-tagged turn of a completion exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries the messages and sampling parameters for one completion.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider sends a completion request and returns the raw text reply.
// Reply validation and parsing belong to the caller.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
