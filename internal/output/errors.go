package output

import "fmt"

// UnknownOutputTypeError reports an output spec whose type is not one of
// the supported formats.
type UnknownOutputTypeError struct {
	Type string
}

func (e *UnknownOutputTypeError) Error() string {
	return fmt.Sprintf("unknown output type: %s", e.Type)
}
