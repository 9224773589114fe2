package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/retry"
)

const defaultAnthropicMaxTokens = 8192

// AnthropicProvider implements Provider on top of the Anthropic Messages API.
type AnthropicProvider struct {
	client       *anthropic.Client
	defaultModel string
	maxTokens    int
	retry        retry.Config
}

// NewAnthropicProvider creates a provider from the application configuration.
func NewAnthropicProvider(cfg config.AnthropicConfig) *AnthropicProvider {
	// The retry package owns the retry policy, not the SDK.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}))
	}

	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicProvider{
		client:       &client,
		defaultModel: cfg.Model,
		maxTokens:    maxTokens,
	}
}

// Chat implements the Provider interface.
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	system, messages := convertAnthropicMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertAnthropicTools(req.Tools)
	}

	var resp *anthropic.Message
	err := retry.Do(ctx, p.retry, func() error {
		r, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic chat failed: %w", err)
	}

	return convertAnthropicResponse(resp), nil
}

// SupportsToolCalling implements the Provider interface.
func (p *AnthropicProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel implements the Provider interface.
func (p *AnthropicProvider) GetDefaultModel() string {
	return p.defaultModel
}

// convertAnthropicMessages splits out the system prompt (the Messages API
// takes it separately) and maps the remaining turns to SDK message params.
func convertAnthropicMessages(msgs []Message) (string, []anthropic.MessageParam) {
	var system string
	var out []anthropic.MessageParam

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			if len(m.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				if m.Content != "" {
					blocks = append(blocks, anthropic.NewTextBlock(m.Content))
				}
				for _, tc := range m.ToolCalls {
					var input any
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						input = tc.Arguments
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
				}
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			} else {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		}
	}

	return system, out
}

func convertAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if data, err := json.Marshal(t.Parameters); err == nil {
			if err := json.Unmarshal(data, &schema); err != nil {
				schema = anthropic.ToolInputSchemaParam{}
			}
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		}
	}
	return out
}

func convertAnthropicResponse(resp *anthropic.Message) *ChatResponse {
	var text string
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			toolCalls = append(toolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(args),
			})
		}
	}

	finish := FinishReasonStop
	switch resp.StopReason {
	case anthropic.StopReasonMaxTokens:
		finish = FinishReasonLength
	case anthropic.StopReasonToolUse:
		finish = FinishReasonToolCalls
	}

	return &ChatResponse{
		Content:      text,
		ToolCalls:    toolCalls,
		Model:        string(resp.Model),
		FinishReason: finish,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}
