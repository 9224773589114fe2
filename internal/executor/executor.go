// Package executor resolves job targets to runnable handles and executes
// tasks against them. Handles are cached for the executor's lifetime in
// an explicit ExecutionContext, container plugins are started lazily and
// stopped on cleanup, and known upstream defects trigger a direct
// execution fallback when the target supports one.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/docker"
	"github.com/aatumaykin/cronbot/internal/hub"
	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/llm"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/runtime"
	"github.com/aatumaykin/cronbot/internal/storage"
	"github.com/aatumaykin/cronbot/internal/tools"
)

// Config holds the executor's dependencies.
type Config struct {
	Config *config.Config
	Jobs   *jobs.File
	Hub    *hub.Registry
	Logger *logger.Logger

	// Tools is the base registry agents draw their tool subsets from.
	Tools *tools.Registry

	// Docker overrides the lazily created container client.
	Docker docker.DockerClientInterface

	// NewProvider overrides LLM provider construction.
	NewProvider func(name string, cfg *config.Config) (llm.Provider, error)
}

// Executor turns job definitions into runnable handles and runs tasks
// against them.
type Executor struct {
	cfg         *config.Config
	jobs        *jobs.File
	hub         *hub.Registry
	tools       *tools.Registry
	logger      *logger.Logger
	newProvider func(name string, cfg *config.Config) (llm.Provider, error)

	ec *ExecutionContext
}

// ExecutionContext owns every cache the executor builds up: resolved
// handles, plugins, providers, the lazily opened conversation store and
// the container client. All access goes through mu.
type ExecutionContext struct {
	mu        sync.Mutex
	handles   map[string]runtime.Runnable
	plugins   map[string]*runtime.Plugin
	providers map[string]llm.Provider
	resources []any
	store     *storage.Store
	docker    docker.DockerClientInterface
}

func newExecutionContext(client docker.DockerClientInterface) *ExecutionContext {
	return &ExecutionContext{
		handles:   make(map[string]runtime.Runnable),
		plugins:   make(map[string]*runtime.Plugin),
		providers: make(map[string]llm.Provider),
		docker:    client,
	}
}

// New creates an executor over the given configuration.
func New(cfg Config) (*Executor, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("jobs file cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.Hub == nil {
		cfg.Hub = hub.Empty()
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	if cfg.NewProvider == nil {
		cfg.NewProvider = llm.NewProvider
	}

	return &Executor{
		cfg:         cfg.Config,
		jobs:        cfg.Jobs,
		hub:         cfg.Hub,
		tools:       cfg.Tools,
		logger:      cfg.Logger,
		newProvider: cfg.NewProvider,
		ec:          newExecutionContext(cfg.Docker),
	}, nil
}

// Execute runs the job's task against its target and returns the plain
// text result. All failures come back as an ExecutionError wrapping the
// cause.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job) (string, error) {
	kind, name := job.Target()
	if name == "" {
		return "", &ExecutionError{Job: job.Name, Err: fmt.Errorf("job has no agent or team target")}
	}

	handle, created, err := e.resolveTarget(ctx, kind, name, job.AugmentKey(), job.Tools)
	if err != nil {
		return "", &ExecutionError{Job: job.Name, Err: err}
	}
	if err := e.startResources(ctx, created); err != nil {
		return "", &ExecutionError{Job: job.Name, Err: err}
	}

	resp, runErr := handle.Run(ctx, job.Task)
	if runErr != nil {
		resp, runErr = e.defectFallback(ctx, handle, job, runErr)
		if runErr != nil {
			return "", &ExecutionError{Job: job.Name, Err: runErr}
		}
	}

	text, err := resp.Text()
	if err != nil {
		return "", &ExecutionError{Job: job.Name, Err: err}
	}
	return text, nil
}

// Cleanup stops every stoppable resource in reverse creation order,
// clears all caches and releases the shared store. Every stop is
// attempted; failures are logged and do not prevent the rest. Safe to
// call more than once.
func (e *Executor) Cleanup(ctx context.Context) {
	e.ec.mu.Lock()
	defer e.ec.mu.Unlock()

	for i := len(e.ec.resources) - 1; i >= 0; i-- {
		stoppable, ok := e.ec.resources[i].(runtime.Stoppable)
		if !ok {
			continue
		}
		if err := stoppable.Stop(ctx); err != nil {
			e.logger.ErrorCtx(ctx, "Failed to stop resource during cleanup", err)
		}
	}
	e.ec.resources = nil
	e.ec.handles = make(map[string]runtime.Runnable)
	e.ec.plugins = make(map[string]*runtime.Plugin)
	e.ec.providers = make(map[string]llm.Provider)

	if e.ec.store != nil {
		if err := e.ec.store.Close(); err != nil {
			e.logger.ErrorCtx(ctx, "Failed to close conversation store", err)
		}
		e.ec.store = nil
	}
	if e.ec.docker != nil {
		if err := e.ec.docker.Close(); err != nil {
			e.logger.ErrorCtx(ctx, "Failed to close docker client", err)
		}
		e.ec.docker = nil
	}
}

// defectFallback retries through the target's direct execution path when
// the failure is a known upstream defect and the capability exists.
func (e *Executor) defectFallback(ctx context.Context, handle runtime.Runnable, job *jobs.Job, runErr error) (runtime.Response, error) {
	var defect *runtime.KnownRuntimeDefect
	if !errors.As(runErr, &defect) {
		return nil, runErr
	}
	direct, ok := handle.(runtime.DirectExecutable)
	if !ok {
		return nil, runErr
	}

	e.logger.WarnCtx(ctx, "Known runtime defect, falling back to direct execution",
		logger.Field{Key: "job", Value: job.Name},
		logger.Field{Key: "target", Value: handle.Name()},
		logger.Field{Key: "defect_class", Value: defect.Class})

	text, err := direct.ExecuteDirect(ctx, job.Task)
	if err != nil {
		return nil, fmt.Errorf("direct execution fallback: %w", err)
	}
	return runtime.Normalize(text)
}

// resolveTarget returns the cached handle for the target, creating it
// (and anything it depends on) under the context mutex. The second
// return value lists resources created by this call so the caller can
// start them outside the lock.
func (e *Executor) resolveTarget(ctx context.Context, kind, name, augment string, extraTools []string) (runtime.Runnable, []any, error) {
	e.ec.mu.Lock()
	defer e.ec.mu.Unlock()

	rs := &resolution{executor: e, ctx: ctx}
	defer func() {
		e.ec.resources = append(e.ec.resources, rs.created...)
	}()

	var handle runtime.Runnable
	var err error
	switch kind {
	case "agent":
		handle, err = rs.agent(name, augment, extraTools)
	case "team":
		handle, err = rs.team(name, augment, extraTools)
	default:
		err = fmt.Errorf("unknown target kind %q", kind)
	}
	if err != nil {
		return nil, nil, err
	}
	return handle, rs.created, nil
}

// startResources runs the startup capability query over newly created
// resources. Start is idempotent per resource, so concurrent resolution
// of the same plugin is safe.
func (e *Executor) startResources(ctx context.Context, created []any) error {
	for _, r := range created {
		startable, ok := r.(runtime.Startable)
		if !ok {
			continue
		}
		if err := startable.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolution tracks one lookup-or-create pass. The caller holds the
// context mutex for the resolution's whole lifetime.
type resolution struct {
	executor *Executor
	ctx      context.Context
	created  []any
	chain    []string // teams being resolved, guards membership cycles
}

func (rs *resolution) agent(name, augment string, extraTools []string) (runtime.Runnable, error) {
	e := rs.executor
	key := handleKey("agent", name, augment)
	if handle, ok := e.ec.handles[key]; ok {
		return handle, nil
	}

	def, ok := e.jobs.Agent(name)
	if !ok {
		def, ok = e.hub.Agent(name)
	}
	if !ok {
		return nil, &TargetNotFoundError{Kind: "agent", Name: name}
	}

	provider, err := rs.provider(def.Provider)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	var registry *tools.Registry
	if toolNames := mergeTools(def.Tools, extraTools); len(toolNames) > 0 {
		registry, err = e.tools.Subset(toolNames)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
	}

	var plugin *runtime.Plugin
	if def.Plugin != "" {
		plugin, err = rs.plugin(def.Plugin)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
	}

	store, err := e.ec.openStore(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}

	agent, err := runtime.NewAgent(runtime.AgentConfig{
		Def:      *def,
		Provider: provider,
		Logger:   e.logger,
		Registry: registry,
		Plugin:   plugin,
		Store:    store,
	})
	if err != nil {
		return nil, err
	}

	e.ec.handles[key] = agent
	rs.created = append(rs.created, agent)
	e.logger.DebugCtx(rs.ctx, "Agent handle created",
		logger.Field{Key: "agent", Value: name},
		logger.Field{Key: "augment", Value: augment})
	return agent, nil
}

func (rs *resolution) team(name, augment string, extraTools []string) (runtime.Runnable, error) {
	e := rs.executor
	key := handleKey("team", name, augment)
	if handle, ok := e.ec.handles[key]; ok {
		return handle, nil
	}

	for _, inProgress := range rs.chain {
		if inProgress == name {
			return nil, &CyclicTeamError{
				Team:  name,
				Chain: append(append([]string(nil), rs.chain...), name),
			}
		}
	}

	def, ok := e.jobs.Team(name)
	if !ok {
		def, ok = e.hub.Team(name)
	}
	if !ok {
		return nil, &TargetNotFoundError{Kind: "team", Name: name}
	}

	rs.chain = append(rs.chain, name)
	defer func() {
		rs.chain = rs.chain[:len(rs.chain)-1]
	}()

	members := make([]runtime.Runnable, 0, len(def.Members))
	for _, memberName := range def.Members {
		member, err := rs.member(memberName, augment, extraTools)
		if err != nil {
			return nil, fmt.Errorf("team %s: %w", name, err)
		}
		members = append(members, member)
	}

	provider, err := rs.provider(def.Provider)
	if err != nil {
		return nil, fmt.Errorf("team %s: %w", name, err)
	}

	team, err := runtime.NewTeam(runtime.TeamConfig{
		Def:      *def,
		Members:  members,
		Provider: provider,
		Logger:   e.logger,
	})
	if err != nil {
		return nil, err
	}

	e.ec.handles[key] = team
	rs.created = append(rs.created, team)
	e.logger.DebugCtx(rs.ctx, "Team handle created",
		logger.Field{Key: "team", Value: name},
		logger.Field{Key: "members", Value: len(members)})
	return team, nil
}

// member resolves a team member by name: agents take precedence, then
// nested teams.
func (rs *resolution) member(name, augment string, extraTools []string) (runtime.Runnable, error) {
	e := rs.executor
	if _, ok := e.jobs.Agent(name); ok {
		return rs.agent(name, augment, extraTools)
	}
	if _, ok := e.hub.Agent(name); ok {
		return rs.agent(name, augment, extraTools)
	}
	if _, ok := e.jobs.Team(name); ok {
		return rs.team(name, augment, extraTools)
	}
	if _, ok := e.hub.Team(name); ok {
		return rs.team(name, augment, extraTools)
	}
	return nil, &TargetNotFoundError{Kind: "member", Name: name}
}

func (rs *resolution) plugin(name string) (*runtime.Plugin, error) {
	e := rs.executor
	if plugin, ok := e.ec.plugins[name]; ok {
		return plugin, nil
	}

	def, ok := e.jobs.Plugin(name)
	if !ok {
		def, ok = e.hub.Plugin(name)
	}
	if !ok {
		return nil, &TargetNotFoundError{Kind: "plugin", Name: name}
	}

	if !e.cfg.Docker.Enabled {
		return nil, fmt.Errorf("plugin %s requires docker, which is disabled", name)
	}
	client, err := e.ec.dockerClient()
	if err != nil {
		return nil, err
	}

	plugin, err := runtime.NewPlugin(runtime.PluginConfig{
		Def:    *def,
		Client: client,
		Docker: e.cfg.Docker,
		Logger: e.logger,
	})
	if err != nil {
		return nil, err
	}

	e.ec.plugins[name] = plugin
	rs.created = append(rs.created, plugin)
	e.logger.DebugCtx(rs.ctx, "Plugin handle created",
		logger.Field{Key: "plugin", Value: name})
	return plugin, nil
}

// provider returns the cached LLM provider for the given name, creating
// it on first use.
func (rs *resolution) provider(name string) (llm.Provider, error) {
	e := rs.executor
	if provider, ok := e.ec.providers[name]; ok {
		return provider, nil
	}
	provider, err := e.newProvider(name, e.cfg)
	if err != nil {
		return nil, err
	}
	e.ec.providers[name] = provider
	return provider, nil
}

// openStore opens the shared conversation store on first use. Callers
// hold mu.
func (ec *ExecutionContext) openStore(cfg *config.Config, log *logger.Logger) (*storage.Store, error) {
	if ec.store != nil {
		return ec.store, nil
	}
	store, err := storage.Open(cfg.StorePath(), log)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	ec.store = store
	return store, nil
}

// dockerClient returns the shared container client, connecting on first
// use. Callers hold mu.
func (ec *ExecutionContext) dockerClient() (docker.DockerClientInterface, error) {
	if ec.docker != nil {
		return ec.docker, nil
	}
	client, err := docker.NewDockerClient()
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	ec.docker = client
	return client, nil
}

func handleKey(kind, name, augment string) string {
	if augment == "" {
		return kind + "/" + name
	}
	return kind + "/" + name + "+" + augment
}

// mergeTools joins the definition's tools with the job's extra tools,
// preserving order and dropping duplicates.
func mergeTools(defTools, jobTools []string) []string {
	seen := make(map[string]bool, len(defTools)+len(jobTools))
	var merged []string
	for _, group := range [][]string{defTools, jobTools} {
		for _, name := range group {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			merged = append(merged, name)
		}
	}
	return merged
}
