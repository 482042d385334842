// Package ai talks to the upstream chat-completion provider.
package ai

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// Usage is the token accounting reported by the provider for one call.
// TotalTokens is the amount billed against the user's quota.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Provider is a chat-completion backend. Implementations must honor context
// cancellation: the quota gate relies on a caller-supplied timeout to bound
// the costly call.
type Provider interface {
	Name() string
	ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
