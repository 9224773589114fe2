package tools

import (
	"fmt"

	"github.com/aatumaykin/cronbot/internal/logger"
)

// ToolError is a structured tool execution failure. The Code is stable for
// programmatic handling while Message and Suggestion are meant for the model.
type ToolError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

func (e *ToolError) Error() string {
	return e.Message
}

// ToLLMContext renders the error as structured context for the LLM.
func (e *ToolError) ToLLMContext() string {
	result := fmt.Sprintf("Tool Error:\n - Code: %s\n - Message: %s", e.Code, e.Message)

	if e.Suggestion != "" {
		result += fmt.Sprintf("\n - Suggestion: %s", e.Suggestion)
	}

	if len(e.Details) > 0 {
		result += "\n - Details:"
		for key, value := range e.Details {
			result += fmt.Sprintf("\n     - %s: %v", key, value)
		}
	}

	return result
}

// LogFields returns fields for structured logging.
func (e *ToolError) LogFields() []logger.Field {
	fields := []logger.Field{
		{Key: "error_code", Value: e.Code},
		{Key: "error_message", Value: e.Message},
	}
	if e.Suggestion != "" {
		fields = append(fields, logger.Field{Key: "error_suggestion", Value: e.Suggestion})
	}
	return fields
}

// NewNotFoundError creates a "not found" error.
func NewNotFoundError(code, message, suggestion string) *ToolError {
	return &ToolError{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(code, message string, details map[string]any) *ToolError {
	return &ToolError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewExecutionError creates an execution error carrying the exit code.
func NewExecutionError(code, message, suggestion string, exitCode int) *ToolError {
	return &ToolError{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Details:    map[string]any{"exit_code": exitCode},
	}
}
