package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aatumaykin/cronbot/internal/logger"
)

// PluginTool exposes a container plugin to the model as a callable tool.
type PluginTool struct {
	plugin *Plugin
	logger *logger.Logger
}

// NewPluginTool wraps a plugin as a tool.
func NewPluginTool(plugin *Plugin, log *logger.Logger) *PluginTool {
	return &PluginTool{plugin: plugin, logger: log}
}

// Name returns the plugin's name.
func (t *PluginTool) Name() string {
	return t.plugin.Name()
}

// Description returns a description of the tool.
func (t *PluginTool) Description() string {
	return fmt.Sprintf("Runs the %s plugin with the given input and returns its output.", t.plugin.Name())
}

// Parameters returns the JSON schema for the tool's arguments.
func (t *PluginTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"input": map[string]interface{}{
				"type":        "string",
				"description": "Input passed to the plugin container",
			},
		},
		"required": []string{"input"},
	}
}

// Execute runs the plugin with a background context.
func (t *PluginTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext runs the plugin container with the provided input.
func (t *PluginTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	var parsed struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	t.logger.DebugCtx(ctx, "Plugin tool invoked",
		logger.Field{Key: "plugin", Value: t.plugin.Name()},
		logger.Field{Key: "input_length", Value: len(parsed.Input)})
	return t.plugin.Run(ctx, parsed.Input)
}
