package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aatumaykin/cronbot/internal/logger"
)

// SystemTimeArgs are the optional arguments for the system_time tool.
type SystemTimeArgs struct {
	Timezone string `json:"timezone"`
}

// SystemTimeTool reports the current date and time, optionally in a
// requested IANA timezone.
type SystemTimeTool struct {
	logger *logger.Logger
}

// NewSystemTimeTool creates a new SystemTimeTool instance.
func NewSystemTimeTool(logger *logger.Logger) *SystemTimeTool {
	return &SystemTimeTool{
		logger: logger,
	}
}

func (t *SystemTimeTool) Name() string {
	return "system_time"
}

func (t *SystemTimeTool) Description() string {
	return "Returns the current system time and date, optionally in a given timezone"
}

func (t *SystemTimeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "Optional IANA timezone name, e.g. Europe/Berlin. Defaults to the local timezone",
			},
		},
		"required": []string{},
	}
}

func (t *SystemTimeTool) Execute(args string) (string, error) {
	var timeArgs SystemTimeArgs
	if args != "" {
		if err := json.Unmarshal([]byte(args), &timeArgs); err != nil {
			return "", fmt.Errorf("failed to parse arguments: %w", err)
		}
	}

	loc := time.Local
	if timeArgs.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(timeArgs.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", timeArgs.Timezone, err)
		}
	}

	now := time.Now().In(loc)

	result := fmt.Sprintf("RFC3339: %s\n", now.Format(time.RFC3339))
	result += fmt.Sprintf("Human readable: %s", now.Format("Monday, 02 January 2006, 15:04:05 MST"))

	return result, nil
}
