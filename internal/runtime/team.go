package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/llm"
	"github.com/aatumaykin/cronbot/internal/logger"
)

// TeamConfig holds everything needed to build a team handle. Members are
// usually agents but may be teams themselves.
type TeamConfig struct {
	Def      jobs.TeamDef
	Members  []Runnable
	Provider llm.Provider
	Logger   *logger.Logger

	// Model is the application default for the coordinator. The
	// definition's own model takes precedence when set.
	Model       string
	Temperature float64
	MaxTokens   int
}

// Team runs a task through its member agents in order, then has a
// coordinator model synthesize their findings into the final answer.
type Team struct {
	name         string
	description  string
	instructions []string
	markdown     bool

	members []Runnable

	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int

	logger *logger.Logger
}

// NewTeam creates a team handle from its definition and resolved members.
func NewTeam(cfg TeamConfig) (*Team, error) {
	if cfg.Def.Name == "" {
		return nil, fmt.Errorf("team name cannot be empty")
	}
	if len(cfg.Members) == 0 {
		return nil, fmt.Errorf("team %s has no members", cfg.Def.Name)
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

	model := cfg.Def.Model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = cfg.Provider.GetDefaultModel()
	}

	return &Team{
		name:         cfg.Def.Name,
		description:  cfg.Def.Description,
		instructions: cfg.Def.Instructions,
		markdown:     markdownEnabled(cfg.Def.Markdown),
		members:      cfg.Members,
		provider:     cfg.Provider,
		model:        model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		logger:       cfg.Logger,
	}, nil
}

// Name returns the team's configured name.
func (t *Team) Name() string {
	return t.name
}

// Run executes the task against each member in order and synthesizes
// their answers. The returned turns carry one entry per member plus the
// coordinator's final answer.
func (t *Team) Run(ctx context.Context, task string) (Response, error) {
	t.logger.DebugCtx(ctx, "Team run starting",
		logger.Field{Key: "team", Value: t.name},
		logger.Field{Key: "members", Value: len(t.members)})

	turns := make([]Turn, 0, len(t.members)+1)
	for _, member := range t.members {
		resp, err := member.Run(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("team %s member %s: %w", t.name, member.Name(), err)
		}
		text, err := resp.Text()
		if err != nil {
			return nil, fmt.Errorf("team %s member %s response: %w", t.name, member.Name(), err)
		}
		turns = append(turns, Turn{Agent: member.Name(), Role: "assistant", Content: text})
	}

	final, err := t.synthesize(ctx, task, turns)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("team %s: %w", t.name, err))
	}
	turns = append(turns, Turn{Agent: t.name, Role: "assistant", Content: final})

	t.logger.DebugCtx(ctx, "Team run finished",
		logger.Field{Key: "team", Value: t.name},
		logger.Field{Key: "turns", Value: len(turns)})
	return TurnsResponse{Turns: turns}, nil
}

// ExecuteDirect asks the coordinator model alone, without running any
// members.
func (t *Team) ExecuteDirect(ctx context.Context, task string) (string, error) {
	t.logger.DebugCtx(ctx, "Team direct execution",
		logger.Field{Key: "team", Value: t.name})

	resp, err := t.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: t.systemPrompt()},
			{Role: llm.RoleUser, Content: task},
		},
		Model:       t.model,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("direct execution of team %s: %w", t.name, err)
	}
	return resp.Content, nil
}

// synthesize runs the coordinator completion over the members' findings.
func (t *Team) synthesize(ctx context.Context, task string, turns []Turn) (string, error) {
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nFindings from team members:\n")
	for _, turn := range turns {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", turn.Agent, turn.Content)
	}

	resp, err := t.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: t.systemPrompt()},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Model:       t.model,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis completion: %w", err)
	}
	return resp.Content, nil
}

func (t *Team) systemPrompt() string {
	parts := []string{"You lead a team of specialist agents. Combine their findings into one coherent answer to the task."}
	if t.description != "" {
		parts = append(parts, t.description)
	}
	if len(t.instructions) > 0 {
		parts = append(parts, "Instructions:\n- "+strings.Join(t.instructions, "\n- "))
	}
	if t.markdown {
		parts = append(parts, "Format your responses in Markdown.")
	}
	return strings.Join(parts, "\n\n")
}
