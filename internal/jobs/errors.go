package jobs

import "fmt"

// ConfigError reports an invalid jobs file. Field points at the offending
// entry in section.name.field form where that is known.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
