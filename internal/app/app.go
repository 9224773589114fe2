// Package app provides the main application structure for Cronbot.
// It coordinates all components including the jobs file, the hub
// registry, the tool registry, the execution adapter, the notifier,
// metrics and the job scheduler.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/docker"
	"github.com/aatumaykin/cronbot/internal/executor"
	"github.com/aatumaykin/cronbot/internal/hub"
	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/metrics"
	"github.com/aatumaykin/cronbot/internal/notify"
	"github.com/aatumaykin/cronbot/internal/scheduler"
	"github.com/aatumaykin/cronbot/internal/tools"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// Job definitions and shared hub registry
	jobs *jobs.File
	hub  *hub.Registry

	// Execution pipeline
	tools    *tools.Registry
	docker   docker.DockerClientInterface
	executor *executor.Executor
	notifier notify.Notifier

	// Observability
	metrics       *metrics.SchedulerMetrics
	metricsServer *metrics.Server

	// Scheduled jobs
	scheduler *scheduler.Scheduler

	// Thread-safety
	mu      sync.Mutex
	started bool
}

// New creates a new App instance with the provided configuration and logger.
// Only initializes config and logger fields; other components are initialized
// in the Initialize() method.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run starts the application and blocks until the context is cancelled.
// It performs the following steps:
//  1. Initializes all components via Initialize()
//  2. Starts the metrics listener when metrics are enabled
//  3. Starts the job scheduler
//  4. Waits for the context to be cancelled
//  5. Performs graceful shutdown via Shutdown()
func (a *App) Run(ctx context.Context) error {
	// Initialize all components
	if err := a.Initialize(); err != nil {
		return err
	}

	// Start metrics listener
	if a.metricsServer != nil {
		if err := a.metricsServer.Start(a.config.Metrics.Listen); err != nil {
			_ = a.Shutdown()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Start the scheduler
	if err := a.scheduler.Start(); err != nil {
		_ = a.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Log that application is running
	a.logger.Info("Application is running")

	// Wait for context cancellation
	<-ctx.Done()

	// Graceful shutdown
	return a.Shutdown()
}

// RunJob initializes the components, executes one named job immediately
// and tears everything down again. The scheduler's dispatcher never
// starts, so no other job can fire during the run.
func (a *App) RunJob(ctx context.Context, name string) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	runErr := a.scheduler.RunOnce(ctx, name)

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Scheduler returns the job scheduler instance, or nil before
// initialization.
func (a *App) Scheduler() *scheduler.Scheduler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scheduler
}

// Jobs returns the loaded jobs file, or nil before initialization.
func (a *App) Jobs() *jobs.File {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jobs
}
