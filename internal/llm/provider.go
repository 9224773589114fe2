// Package llm defines the chat-completion contract agents run against and
// its provider implementations.
package llm

import (
	"context"
)

// Provider is the chat-completion backend an agent talks to. Implementations
// exist for Anthropic, OpenAI-compatible endpoints and in-process mocks.
type Provider interface {
	// Chat sends one completion request and returns the model's reply.
	// The context carries the per-run deadline.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// SupportsToolCalling reports whether tool definitions may be attached
	// to requests against this provider.
	SupportsToolCalling() bool

	// GetDefaultModel returns the model used when the agent definition
	// does not name one.
	GetDefaultModel() string
}

// Role identifies who authored a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn in the conversation sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCallID ties a RoleTool result back to the call that produced it
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls is set on RoleAssistant messages that requested tool calls,
	// so the turn can be replayed to the provider on the next iteration
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatRequest carries the full conversation plus sampling parameters for
// one completion call.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`

	// Tools the model may call. Ignored by providers without tool support.
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// ToolDefinition describes one callable tool to the model. Parameters is a
// JSON Schema object for the tool's input.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatResponse is the provider's reply to a ChatRequest.
type ChatResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	ToolCalls    []ToolCall   `json:"tool_calls"`
	Usage        Usage        `json:"usage"`

	// Model that actually served the completion, which may differ from the
	// one requested
	Model string `json:"model"`
}

// ToolCall is a tool invocation requested by the model. Arguments is the
// raw JSON argument object as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
)

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
