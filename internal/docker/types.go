// Package docker runs plugin containers: long-lived sidecar services and
// one-shot task containers whose output is captured for the caller.
package docker

import (
	"fmt"
	"time"
)

// RunConfig describes a container to run for a plugin.
type RunConfig struct {
	Image string
	Cmd   []string
	Env   []string

	MemoryLimit string
	CPULimit    float64
	PidsLimit   int64

	PullPolicy string

	SecurityOpt    []string
	ReadonlyRootfs bool

	StopTimeout time.Duration
}

// RunResult is the outcome of a one-shot container run.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

type DockerError struct {
	Op      string
	Err     error
	Message string
}

func (e *DockerError) Error() string {
	return fmt.Sprintf("docker %s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *DockerError) Unwrap() error {
	return e.Err
}
