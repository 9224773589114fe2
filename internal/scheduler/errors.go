package scheduler

import "fmt"

// JobNotFoundError reports a run request for a name absent from the
// configured job list.
type JobNotFoundError struct {
	Name string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.Name)
}
