package executor

import (
	"fmt"
	"strings"
)

// TargetNotFoundError reports a name absent from both the jobs file and
// the hub registry.
type TargetNotFoundError struct {
	Kind string // "agent", "team", "member" or "plugin"
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in jobs file or hub", e.Kind, e.Name)
}

// CyclicTeamError reports a team that includes itself, directly or
// through nested team members.
type CyclicTeamError struct {
	Team  string
	Chain []string
}

func (e *CyclicTeamError) Error() string {
	return fmt.Sprintf("team %q includes itself: %s", e.Team, strings.Join(e.Chain, " -> "))
}

// ExecutionError wraps any failure of a job execution. The underlying
// cause stays matchable through errors.As.
type ExecutionError struct {
	Job string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute job %s: %v", e.Job, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
