package tools

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemTimeToolName(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())
	assert.Equal(t, "system_time", tool.Name(), "Tool name should be 'system_time'")
}

func TestSystemTimeToolDescription(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())
	desc := tool.Description()
	assert.NotEmpty(t, desc, "Description should not be empty")
	assert.Contains(t, desc, "time", "Description should mention 'time'")
	assert.Contains(t, desc, "date", "Description should mention 'date'")
}

func TestSystemTimeToolParameters(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())
	params := tool.Parameters()

	assert.NotNil(t, params, "Parameters should not be nil")
	assert.Equal(t, "object", params["type"], "Type should be 'object'")

	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok, "Properties should be a map")
	assert.Contains(t, props, "timezone", "Properties should describe the timezone argument")

	required, ok := params["required"].([]string)
	require.True(t, ok, "Required should be a string slice")
	assert.Empty(t, required, "No argument should be required")
}

// rfc3339Pattern matches 2006-01-02T15:04:05-07:00 with a trailing Z for UTC.
var rfc3339Pattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(Z|[+-]\d{2}:\d{2})$`)

func TestSystemTimeToolExecute(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())

	for _, args := range []string{"", "{}"} {
		result, err := tool.Execute(args)
		require.NoError(t, err, "Execute(%q) should not return error", args)
		require.NotEmpty(t, result, "Result should not be empty")

		lines := strings.Split(result, "\n")
		require.Len(t, lines, 2, "Result should have 2 lines")

		assert.Contains(t, lines[0], "RFC3339:", "First line should contain 'RFC3339:'")
		rfc3339Line := strings.TrimSpace(strings.TrimPrefix(lines[0], "RFC3339:"))
		assert.True(t, rfc3339Pattern.MatchString(rfc3339Line), "RFC3339 format should match pattern")

		_, err = time.Parse(time.RFC3339, rfc3339Line)
		assert.NoError(t, err, "RFC3339 time should be parseable")

		assert.Contains(t, lines[1], "Human readable:", "Second line should contain 'Human readable:'")
		humanReadableLine := strings.TrimSpace(strings.TrimPrefix(lines[1], "Human readable:"))
		assert.NotEmpty(t, humanReadableLine, "Human readable time should not be empty")
	}
}

func TestSystemTimeToolExecuteTimezone(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())

	result, err := tool.Execute(`{"timezone": "UTC"}`)
	require.NoError(t, err)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 2)

	rfc3339Line := strings.TrimSpace(strings.TrimPrefix(lines[0], "RFC3339:"))
	parsed, err := time.Parse(time.RFC3339, rfc3339Line)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Zero(t, offset, "UTC result should have no zone offset")
}

func TestSystemTimeToolExecuteBadArgs(t *testing.T) {
	tool := NewSystemTimeTool(logger.Nop())

	_, err := tool.Execute(`{"timezone": "Atlantis/Lost_City"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timezone")

	_, err = tool.Execute(`{not json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse arguments")
}
