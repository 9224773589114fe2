// Package workspace provides workspace management for Cronbot.
// The workspace is the root directory where Cronbot keeps its data:
// the jobs file, the conversation store and, unless a job says
// otherwise, the output files its runs produce.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aatumaykin/cronbot/internal/config"
)

// Workspace represents a Cronbot workspace with path management
// capabilities.
type Workspace struct {
	path string // Expanded workspace path
}

// New creates a Workspace from the given configuration. A leading ~ in
// the configured path is expanded to the user's home directory.
func New(cfg config.WorkspaceConfig) *Workspace {
	return &Workspace{path: expandHome(cfg.Path)}
}

// Path returns the expanded workspace path.
func (w *Workspace) Path() string {
	return w.path
}

// EnsureDir creates the workspace directory if it doesn't exist.
func (w *Workspace) EnsureDir() error {
	if w.path == "" {
		return fmt.Errorf("workspace path is empty")
	}

	info, err := os.Stat(w.path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("workspace path exists but is not a directory: %s", w.path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access workspace path %s: %w", w.path, err)
	}

	if err := os.MkdirAll(w.path, 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory %s: %w", w.path, err)
	}
	return nil
}

// expandHome expands ~ to the user's home directory.
// If the path doesn't start with ~/, it's returned unchanged.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' && (len(path) == 1 || path[1] == '/') {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if len(path) == 1 {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
