package provider

import "context"

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Response represents a provider response
type Response struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a completion request
	Complete(ctx context.Context, req *CompletionRequest) (*Response, error)

	// Stream sends a streaming completion request
	Stream(ctx context.Context, req *CompletionRequest, handler StreamHandler) error
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

// StreamHandler handles streaming events
type StreamHandler func(event StreamEvent)

// StreamEvent represents a streaming event
type StreamEvent struct {
	Type       string `json:"type"` // text, done
	Content    string `json:"content,omitempty"`
	Done       bool   `json:"done"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage,omitempty"`
}
