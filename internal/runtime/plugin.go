package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/docker"
	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/tools"
)

// PluginConfig holds everything needed to build a plugin handle.
type PluginConfig struct {
	Def    jobs.PluginDef
	Client docker.DockerClientInterface
	Docker config.DockerConfig
	Logger *logger.Logger
}

// Plugin is a container-backed capability. Each invocation runs a
// short-lived container from the plugin image with the input as its
// argument and returns the container's stdout. Plugins whose definition
// carries a command additionally keep a long-lived service container
// alive between Start and Stop.
type Plugin struct {
	def    jobs.PluginDef
	client docker.DockerClientInterface
	dcfg   config.DockerConfig
	logger *logger.Logger

	taskTimeout time.Duration
	stopTimeout time.Duration

	mu        sync.Mutex
	started   bool
	serviceID string
}

// NewPlugin creates a plugin handle from its definition.
func NewPlugin(cfg PluginConfig) (*Plugin, error) {
	if cfg.Def.Name == "" {
		return nil, fmt.Errorf("plugin name cannot be empty")
	}
	if cfg.Def.Image == "" {
		return nil, fmt.Errorf("plugin %s has no image", cfg.Def.Name)
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("docker client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	taskTimeout := time.Duration(cfg.Docker.TaskTimeoutSeconds) * time.Second
	if taskTimeout == 0 {
		taskTimeout = 120 * time.Second
	}
	stopTimeout := time.Duration(cfg.Docker.StopTimeoutSeconds) * time.Second
	if stopTimeout == 0 {
		stopTimeout = 10 * time.Second
	}

	return &Plugin{
		def:         cfg.Def,
		client:      cfg.Client,
		dcfg:        cfg.Docker,
		logger:      cfg.Logger,
		taskTimeout: taskTimeout,
		stopTimeout: stopTimeout,
	}, nil
}

// Name returns the plugin's configured name.
func (p *Plugin) Name() string {
	return p.def.Name
}

// Start prepares the plugin: the image is pulled and, for service
// plugins, the service container is launched. Safe to call repeatedly; a
// service that died since the last call is relaunched.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started && !p.serviceDead(ctx) {
		return nil
	}

	if len(p.def.Command) == 0 {
		if err := p.client.PullImage(ctx, p.runConfig()); err != nil {
			return fmt.Errorf("pull plugin %s image: %w", p.def.Name, err)
		}
		p.started = true
		return nil
	}

	if p.serviceID != "" {
		if err := docker.StopService(ctx, p.client, p.serviceID, p.stopTimeout); err != nil {
			p.logger.WarnCtx(ctx, "Failed to remove stale plugin service",
				logger.Field{Key: "plugin", Value: p.def.Name},
				logger.Field{Key: "error", Value: err.Error()})
		}
		p.serviceID = ""
	}

	cfg := p.runConfig()
	cfg.Cmd = append([]string(nil), p.def.Command...)
	id, err := docker.StartService(ctx, p.client, cfg)
	if err != nil {
		return fmt.Errorf("start plugin %s service: %w", p.def.Name, err)
	}
	p.serviceID = id
	p.started = true
	p.logger.InfoCtx(ctx, "Plugin service started",
		logger.Field{Key: "plugin", Value: p.def.Name},
		logger.Field{Key: "container_id", Value: shortID(id)})
	return nil
}

// Stop releases the plugin's resources. Safe to call repeatedly.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	if p.serviceID == "" {
		return nil
	}
	id := p.serviceID
	p.serviceID = ""
	if err := docker.StopService(ctx, p.client, id, p.stopTimeout); err != nil {
		return fmt.Errorf("stop plugin %s service: %w", p.def.Name, err)
	}
	p.logger.InfoCtx(ctx, "Plugin service stopped",
		logger.Field{Key: "plugin", Value: p.def.Name},
		logger.Field{Key: "container_id", Value: shortID(id)})
	return nil
}

// Run executes one plugin invocation in a fresh container and returns
// its stdout. The input is passed as the container's argument.
func (p *Plugin) Run(ctx context.Context, input string) (string, error) {
	if err := p.Start(ctx); err != nil {
		return "", err
	}

	cfg := p.runConfig()
	cfg.Cmd = []string{input}
	result, err := docker.RunTask(ctx, p.client, p.logger, cfg, p.taskTimeout)
	if err != nil {
		return "", fmt.Errorf("plugin %s: %w", p.def.Name, err)
	}
	if result.ExitCode != 0 {
		msg := fmt.Sprintf("plugin %s exited with code %d", p.def.Name, result.ExitCode)
		if errOut := strings.TrimSpace(result.Stderr); errOut != "" {
			msg = fmt.Sprintf("%s: %s", msg, truncateText(errOut, 2000))
		}
		return "", tools.NewExecutionError("plugin_failed", msg,
			"check the plugin image and its input", result.ExitCode)
	}
	return strings.TrimRight(result.Stdout, "\n"), nil
}

// serviceDead reports whether a previously launched service container is
// gone or stopped. Callers must hold p.mu.
func (p *Plugin) serviceDead(ctx context.Context) bool {
	if p.serviceID == "" {
		return false
	}
	running, err := docker.ServiceRunning(ctx, p.client, p.serviceID)
	return err == nil && !running
}

// runConfig renders the shared container settings for this plugin.
func (p *Plugin) runConfig() docker.RunConfig {
	return docker.RunConfig{
		Image:          p.def.Image,
		Env:            envList(p.def.Env),
		MemoryLimit:    p.dcfg.MemoryLimit,
		CPULimit:       p.dcfg.CPULimit,
		PidsLimit:      p.dcfg.PidsLimit,
		PullPolicy:     p.dcfg.PullPolicy,
		SecurityOpt:    p.dcfg.SecurityOpt,
		ReadonlyRootfs: p.dcfg.ReadonlyRootfs,
		StopTimeout:    p.stopTimeout,
	}
}

// envList renders an environment map as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
