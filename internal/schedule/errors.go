package schedule

import "fmt"

// InvalidScheduleError reports a schedule specification that cannot be turned
// into trigger fields. It is fatal at scheduler startup for the job carrying
// the spec.
type InvalidScheduleError struct {
	Spec   string
	Reason string
	Err    error
}

func (e *InvalidScheduleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid schedule %q: %s: %v", e.Spec, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid schedule %q: %s", e.Spec, e.Reason)
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Err
}
