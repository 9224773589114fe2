// Package tools manages the function-calling tools exposed to agents.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Tool is one callable function an agent may invoke during a run.
type Tool interface {
	// Name returns the unique name the model calls the tool by.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Parameters returns a JSON Schema object for the tool's input, in
	// OpenAI function-calling format.
	Parameters() map[string]interface{}

	// Execute runs the tool. args is the JSON argument object produced
	// by the model.
	Execute(args string) (string, error)
}

// ContextualTool is implemented by tools that honor cancellation. When a
// tool implements it, ExecuteWithContext is called instead of Execute.
type ContextualTool interface {
	Tool

	ExecuteWithContext(ctx context.Context, args string) (string, error)
}

// Registry is a thread-safe collection of tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in no particular order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}

	return tools
}

// Subset returns a new registry holding only the named tools.
// Unknown names are reported as an error so misspelled tool lists fail loudly.
func (r *Registry) Subset(names []string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		tool, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
		if err := sub.Register(tool); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// ToSchema renders the registered tools as function definitions ready to
// attach to a provider request.
func (r *Registry) ToSchema() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		schemas = append(schemas, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	return schemas
}

// ToolDefinition is a tool description in OpenAI function-calling format.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model. Arguments is the
// raw JSON argument object.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the outcome of one tool call, fed back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// ExecutionConfig bounds a single tool execution.
type ExecutionConfig struct {
	Timeout        time.Duration // Per-call timeout, wins when set
	DefaultTimeout time.Duration // Fallback when Timeout is zero
}

// DefaultExecutionConfig returns the default execution configuration.
func DefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		DefaultTimeout: 30 * time.Second,
	}
}

// ExecuteToolCall executes a tool call with execution context and configuration.
// Tool failures are reported inside the ToolResult rather than as an error,
// so a failed call never aborts the surrounding agent run.
func ExecuteToolCall(ctx context.Context, registry *Registry, tc ToolCall, cfg *ExecutionConfig) (ToolResult, error) {
	tool, ok := registry.Get(tc.Name)
	if !ok {
		notFound := NewNotFoundError("tool_not_found",
			fmt.Sprintf("tool not found: %s", tc.Name),
			"check the tool name against the configured tool list")
		return ToolResult{
			ToolCallID: tc.ID,
			Error:      notFound.ToLLMContext(),
		}, nil
	}

	timeout := resolveTimeout(cfg)

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type toolResult struct {
		result string
		err    error
	}
	resultChan := make(chan toolResult, 1)

	go func() {
		res, err := runTool(execCtx, tool, tc.Arguments)
		resultChan <- toolResult{result: res, err: err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return ToolResult{
				ToolCallID: tc.ID,
				Error:      formatToolError(res.err),
			}, nil
		}

		return ToolResult{
			ToolCallID: tc.ID,
			Content:    res.result,
		}, nil

	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return ToolResult{
				ToolCallID: tc.ID,
				Error:      fmt.Sprintf("tool execution timed out after %v", timeout),
				TimedOut:   true,
			}, nil
		}

		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("tool execution cancelled: %v", execCtx.Err()),
		}, nil
	}
}

// runTool dispatches to the context-aware entry point when the tool has one.
func runTool(ctx context.Context, tool Tool, args string) (string, error) {
	if contextual, ok := tool.(ContextualTool); ok {
		return contextual.ExecuteWithContext(ctx, args)
	}
	return tool.Execute(args)
}

func resolveTimeout(cfg *ExecutionConfig) time.Duration {
	if cfg == nil {
		return 0
	}
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return cfg.DefaultTimeout
}

// formatToolError prefers the structured LLM-facing rendering when the
// failure is a ToolError.
func formatToolError(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.ToLLMContext()
	}
	return err.Error()
}
