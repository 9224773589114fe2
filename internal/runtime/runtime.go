// Package runtime builds the runnable handles jobs execute against:
// single agents, coordinated teams and container-backed plugins. Handles
// advertise optional lifecycle capabilities through small interfaces that
// callers discover by type assertion.
package runtime

import (
	"context"
)

// Runnable is the invocation surface shared by every target handle.
type Runnable interface {
	// Name returns the configured name of the target.
	Name() string

	// Run executes the task against the target and returns its response.
	Run(ctx context.Context, task string) (Response, error)
}

// Startable is implemented by handles that own resources needing explicit
// startup before the first run.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable is implemented by handles holding resources that must be
// released when the owning execution context is cleaned up.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// DirectExecutable is implemented by handles offering a reduced invocation
// path that bypasses conversation history and the tool loop. It is the
// recovery route when a normal run fails with a KnownRuntimeDefect.
type DirectExecutable interface {
	ExecuteDirect(ctx context.Context, task string) (string, error)
}

// markdownEnabled resolves the optional markdown flag. Unset means on.
func markdownEnabled(v *bool) bool {
	return v == nil || *v
}
