// Package app provides graceful shutdown functionality for the application.
// It ensures all components are stopped in the correct order.
package app

import (
	"context"
	"time"
)

// metricsStopTimeout bounds how long shutdown waits for the metrics
// listener to close its connections.
const metricsStopTimeout = 5 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops the scheduler, draining any in-flight job runs
//  2. Cleans up the executor (plugins, conversation store, Docker)
//  3. Stops the metrics listener
//
// The method is thread-safe and can be called from multiple goroutines.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// If not started, nothing to do
	if !a.started {
		return nil
	}

	// Stop the scheduler first so nothing new reaches the executor.
	// The drain is unbounded; runs carry their own timeouts.
	var schedErr error
	if a.scheduler != nil {
		schedErr = a.scheduler.Stop(context.Background())
		if schedErr != nil {
			a.logger.Error("Failed to stop scheduler", schedErr)
		}
	}

	// Release executor resources
	if a.executor != nil {
		a.executor.Cleanup(context.Background())
	}

	// Stop metrics listener
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsStopTimeout)
		if err := a.metricsServer.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop metrics server", err)
		}
		cancel()
	}

	// Mark application as stopped
	a.started = false

	// Log completion
	a.logger.Info("Application shutdown complete")

	return schedErr
}
