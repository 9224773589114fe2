package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/llm"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/storage"
	"github.com/aatumaykin/cronbot/internal/tools"
)

// AgentConfig holds everything needed to build an agent handle.
type AgentConfig struct {
	Def      jobs.AgentDef
	Provider llm.Provider
	Logger   *logger.Logger

	// Model is the application default for the provider. The definition's
	// own model takes precedence when set.
	Model       string
	Temperature float64
	MaxTokens   int

	// Registry holds the tools this agent may call. Nil means no tools.
	Registry *tools.Registry

	// Plugin is an optional container plugin exposed to the agent as an
	// additional tool.
	Plugin *Plugin

	// Store is an optional conversation store shared across agents.
	Store *storage.Store

	MaxToolIterations int
	HistoryLimit      int
}

// Agent runs tasks against a chat model, executing requested tool calls
// until the model produces a final answer.
type Agent struct {
	name         string
	description  string
	instructions []string
	markdown     bool

	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int

	registry *tools.Registry
	execCfg  *tools.ExecutionConfig
	store    *storage.Store
	logger   *logger.Logger

	maxToolIterations int
	historyLimit      int
}

// NewAgent creates an agent handle from its definition.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Def.Name == "" {
		return nil, fmt.Errorf("agent name cannot be empty")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxToolIterations == 0 {
		cfg.MaxToolIterations = 10
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 20
	}

	model := cfg.Def.Model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = cfg.Provider.GetDefaultModel()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if cfg.Plugin != nil {
		if err := registry.Register(NewPluginTool(cfg.Plugin, cfg.Logger)); err != nil {
			return nil, fmt.Errorf("register plugin tool for agent %s: %w", cfg.Def.Name, err)
		}
	}

	return &Agent{
		name:              cfg.Def.Name,
		description:       cfg.Def.Description,
		instructions:      cfg.Def.Instructions,
		markdown:          markdownEnabled(cfg.Def.Markdown),
		provider:          cfg.Provider,
		model:             model,
		temperature:       cfg.Temperature,
		maxTokens:         cfg.MaxTokens,
		registry:          registry,
		execCfg:           tools.DefaultExecutionConfig(),
		store:             cfg.Store,
		logger:            cfg.Logger,
		maxToolIterations: cfg.MaxToolIterations,
		historyLimit:      cfg.HistoryLimit,
	}, nil
}

// Name returns the agent's configured name.
func (a *Agent) Name() string {
	return a.name
}

// Run executes the task and returns the model's final answer. Prior
// conversation turns are replayed from the store when one is configured,
// and the new exchange is recorded after a successful run.
func (a *Agent) Run(ctx context.Context, task string) (Response, error) {
	runID := uuid.New().String()[:8]
	a.logger.DebugCtx(ctx, "Agent run starting",
		logger.Field{Key: "agent", Value: a.name},
		logger.Field{Key: "run_id", Value: runID},
		logger.Field{Key: "task_length", Value: len(task)})

	content, err := a.converse(ctx, a.startMessages(ctx, task))
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("agent %s: %w", a.name, err))
	}

	a.record(ctx, runID, task, content)

	a.logger.DebugCtx(ctx, "Agent run finished",
		logger.Field{Key: "agent", Value: a.name},
		logger.Field{Key: "run_id", Value: runID},
		logger.Field{Key: "response_length", Value: len(content)})
	return ContentResponse{Content: content}, nil
}

// ExecuteDirect performs a single chat completion without conversation
// history or tools.
func (a *Agent) ExecuteDirect(ctx context.Context, task string) (string, error) {
	a.logger.DebugCtx(ctx, "Agent direct execution",
		logger.Field{Key: "agent", Value: a.name})

	var messages []llm.Message
	if prompt := a.systemPrompt(); prompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: task})

	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages:    messages,
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("direct execution of agent %s: %w", a.name, err)
	}
	return resp.Content, nil
}

// converse drives the chat loop, executing tool calls until the model
// stops requesting them.
func (a *Agent) converse(ctx context.Context, messages []llm.Message) (string, error) {
	for iteration := 0; iteration < a.maxToolIterations; iteration++ {
		req := llm.ChatRequest{
			Messages:    messages,
			Model:       a.model,
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		}
		if a.provider.SupportsToolCalling() {
			if schemas := a.registry.ToSchema(); len(schemas) > 0 {
				req.Tools = toolDefinitions(schemas)
			}
		}

		resp, err := a.provider.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		a.logger.DebugCtx(ctx, "LLM response received",
			logger.Field{Key: "agent", Value: a.name},
			logger.Field{Key: "finish_reason", Value: resp.FinishReason},
			logger.Field{Key: "tool_calls", Value: len(resp.ToolCalls)},
			logger.Field{Key: "iteration", Value: iteration})

		if resp.FinishReason != llm.FinishReasonToolCalls || len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		// Replay the assistant turn with its tool calls so the provider
		// can associate the results that follow.
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result, err := tools.ExecuteToolCall(ctx, a.registry, tools.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			}, a.execCfg)
			if err != nil {
				return "", fmt.Errorf("execute tool %s: %w", call.Name, err)
			}
			content := result.Content
			if result.Error != "" {
				content = fmt.Sprintf("Error: %s", result.Error)
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}
	return "", fmt.Errorf("reached maximum tool call iterations (%d)", a.maxToolIterations)
}

// startMessages assembles the system prompt, stored history and the new
// task into the opening conversation.
func (a *Agent) startMessages(ctx context.Context, task string) []llm.Message {
	var messages []llm.Message
	if prompt := a.systemPrompt(); prompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt})
	}
	if a.store != nil {
		turns, err := a.store.History(ctx, a.name, a.historyLimit)
		if err != nil {
			a.logger.WarnCtx(ctx, "Failed to load conversation history",
				logger.Field{Key: "agent", Value: a.name},
				logger.Field{Key: "error", Value: err.Error()})
		}
		for _, turn := range turns {
			switch turn.Role {
			case "user":
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: turn.Content})
			case "assistant":
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: turn.Content})
			}
		}
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: task})
}

// record persists the exchange. Storage problems are logged, not fatal;
// the answer already exists.
func (a *Agent) record(ctx context.Context, runID, task, response string) {
	if a.store == nil {
		return
	}
	now := time.Now().UTC()
	turns := []storage.Turn{
		{Agent: a.name, RunID: runID, Role: "user", Content: task, At: now},
		{Agent: a.name, RunID: runID, Role: "assistant", Content: response, At: now},
	}
	for _, turn := range turns {
		if err := a.store.AppendTurn(ctx, turn); err != nil {
			a.logger.WarnCtx(ctx, "Failed to record conversation turn",
				logger.Field{Key: "agent", Value: a.name},
				logger.Field{Key: "error", Value: err.Error()})
			return
		}
	}
	if err := a.store.Prune(ctx, a.name, a.historyLimit); err != nil {
		a.logger.WarnCtx(ctx, "Failed to prune conversation history",
			logger.Field{Key: "agent", Value: a.name},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

func (a *Agent) systemPrompt() string {
	var parts []string
	if a.description != "" {
		parts = append(parts, a.description)
	}
	if len(a.instructions) > 0 {
		parts = append(parts, "Instructions:\n- "+strings.Join(a.instructions, "\n- "))
	}
	if a.markdown {
		parts = append(parts, "Format your responses in Markdown.")
	}
	return strings.Join(parts, "\n\n")
}

// toolDefinitions converts registry schemas to the provider's tool
// definition type.
func toolDefinitions(schemas []tools.ToolDefinition) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(schemas))
	for i, schema := range schemas {
		defs[i] = llm.ToolDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Parameters,
		}
	}
	return defs
}
