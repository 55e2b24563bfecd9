// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
)

// Role is the role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolDefinition describes a tool the model may invoke during generation.
// Parameters is a JSON Schema object describing the arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult carries the outcome of a tool invocation back to the model.
// Content is JSON-encoded before being sent.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    any
}

// ChatMessage is one turn of a conversation. Assistant turns may carry tool
// calls; user turns may carry the matching tool results.
type ChatMessage struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is a generation request.
type Request struct {
	Model       string
	System      string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// Response is a completed generation. When the model stopped to invoke
// tools, ToolCalls is non-empty and Content holds any text produced before
// the stop. Model is the effective model after provider defaults.
type Response struct {
	Model      string
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	TokensIn   int
	TokensOut  int
	LatencyMs  int64
}

// StreamCallback is called for each text delta during streaming. Returning
// an error aborts the stream.
type StreamCallback func(delta string) error

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a non-streaming generation request.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a streaming generation request, invoking onDelta for
	// each text fragment. The returned Response carries the full text and
	// any tool calls the model stopped on.
	Stream(ctx context.Context, req *Request, onDelta StreamCallback) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client for the given provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
