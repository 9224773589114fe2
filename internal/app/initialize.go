package app

import (
	"fmt"

	"github.com/aatumaykin/cronbot/internal/docker"
	"github.com/aatumaykin/cronbot/internal/executor"
	"github.com/aatumaykin/cronbot/internal/hub"
	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/metrics"
	"github.com/aatumaykin/cronbot/internal/notify"
	"github.com/aatumaykin/cronbot/internal/output"
	"github.com/aatumaykin/cronbot/internal/scheduler"
	"github.com/aatumaykin/cronbot/internal/tools"
	"github.com/aatumaykin/cronbot/internal/tools/fetch"
	"github.com/aatumaykin/cronbot/internal/workspace"
)

// Initialize builds all application components: the workspace, the jobs
// file, the hub registry, tools, the executor, the notifier, metrics and
// the scheduler. Nothing is started here; Run and RunJob drive the built
// components.
func (a *App) Initialize() error {
	// 1. Ensure the workspace exists
	ws := workspace.New(a.config.Workspace)
	if err := ws.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	// 2. Load and validate the jobs file
	jobsFile, err := jobs.Load(a.config.JobsFile())
	if err != nil {
		return fmt.Errorf("failed to load jobs file: %w", err)
	}
	if err := jobsFile.Validate(); err != nil {
		return fmt.Errorf("invalid jobs file: %w", err)
	}

	// 3. Load the hub registry when configured
	hubReg := hub.Empty()
	if path := a.config.HubFile(); path != "" {
		hubReg, err = hub.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load hub registry: %w", err)
		}
	}

	// 4. Register tools
	toolRegistry := tools.NewRegistry()
	if err := toolRegistry.Register(tools.NewSystemTimeTool(a.logger)); err != nil {
		return fmt.Errorf("failed to register system_time tool: %w", err)
	}
	if a.config.Tools.Fetch.Enabled {
		if err := toolRegistry.Register(fetch.NewFetchTool(a.config, a.logger)); err != nil {
			return fmt.Errorf("failed to register web_fetch tool: %w", err)
		}
	}

	// 5. Connect to Docker when container plugins are enabled
	var dockerClient docker.DockerClientInterface
	if a.config.Docker.Enabled {
		client, err := docker.NewDockerClient()
		if err != nil {
			return fmt.Errorf("failed to connect to Docker: %w", err)
		}
		dockerClient = client
	}

	// 6. Create the executor
	exec, err := executor.New(executor.Config{
		Config: a.config,
		Jobs:   jobsFile,
		Hub:    hubReg,
		Logger: a.logger,
		Tools:  toolRegistry,
		Docker: dockerClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	// 7. Create the notifier
	notifier, err := notify.FromConfig(a.config.Notify, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	// 8. Create metrics when enabled
	var schedMetrics *metrics.SchedulerMetrics
	var metricsServer *metrics.Server
	if a.config.Metrics.Enabled {
		schedMetrics = metrics.InitSchedulerMetrics("cronbot", nil)
		metricsServer = metrics.NewServer(a.logger)
	}

	// 9. Create the scheduler
	sched, err := scheduler.New(scheduler.Config{
		Jobs:     jobsFile,
		Executor: exec,
		Output:   output.NewWriter(a.logger),
		Notifier: notifier,
		Metrics:  schedMetrics,
		Logger:   a.logger,
		Timezone: a.config.Scheduler.Timezone,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	a.mu.Lock()
	a.jobs = jobsFile
	a.hub = hubReg
	a.tools = toolRegistry
	a.docker = dockerClient
	a.executor = exec
	a.notifier = notifier
	a.metrics = schedMetrics
	a.metricsServer = metricsServer
	a.scheduler = sched
	a.started = true
	a.mu.Unlock()

	agents, teams, plugins := hubReg.Counts()
	a.logger.Info("Components initialized",
		logger.Field{Key: "jobs", Value: len(jobsFile.Jobs)},
		logger.Field{Key: "hub_agents", Value: agents},
		logger.Field{Key: "hub_teams", Value: teams},
		logger.Field{Key: "hub_plugins", Value: plugins})
	return nil
}
