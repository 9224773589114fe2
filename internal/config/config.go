package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aatumaykin/cronbot/internal/constants"
)

// Load reads the TOML configuration from path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() []error {
	var errors []error

	if c.Workspace.Path == "" {
		errors = append(errors, fmt.Errorf("workspace.path is required"))
	} else if err := validatePath(c.Workspace.Path, "workspace.path"); err != nil {
		errors = append(errors, err)
	}

	if c.Jobs.File == "" {
		errors = append(errors, fmt.Errorf("jobs.file is required"))
	}

	// Provider keys are optional at startup: a jobs file may reference only
	// plugin targets. Individual agents fail at resolution time instead.
	if c.LLM.Anthropic.APIKey != "" {
		if err := validateAPIKey(c.LLM.Anthropic.APIKey, "llm.anthropic.api_key"); err != nil {
			errors = append(errors, err)
		}
	}
	if c.LLM.OpenAI.APIKey != "" {
		if err := validateAPIKey(c.LLM.OpenAI.APIKey, "llm.openai.api_key"); err != nil {
			errors = append(errors, err)
		}
	}

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("notify.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Notify.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if c.Notify.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled"))
		}
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errors = append(errors, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	if err := c.Docker.Validate(); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// Helper validation functions
func validateAPIKey(key, fieldName string) error {
	if key == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if len(key) < 10 {
		return fmt.Errorf("%s is too short (minimum 10 characters, got %d)", fieldName, len(key))
	}

	return nil
}

func validateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram token cannot be empty")
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskSecret(token))
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	// Check that bot ID contains only digits
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}

// applyDefaults fills in unset fields
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.cronbot"
	}
	if c.Jobs.File == "" {
		c.Jobs.File = constants.DefaultJobsFile
	}

	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Local"
	}

	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.Anthropic.MaxTokens == 0 {
		c.LLM.Anthropic.MaxTokens = 8192
	}
	if c.LLM.Anthropic.TimeoutSeconds == 0 {
		c.LLM.Anthropic.TimeoutSeconds = 120
	}

	if c.LLM.OpenAI.BaseURL == "" {
		c.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.OpenAI.MaxTokens == 0 {
		c.LLM.OpenAI.MaxTokens = 8192
	}
	if c.LLM.OpenAI.TimeoutSeconds == 0 {
		c.LLM.OpenAI.TimeoutSeconds = 120
	}

	// Fetch stays opt-in; only its knobs get defaults.
	if c.Tools.Fetch.TimeoutSeconds == 0 {
		c.Tools.Fetch.TimeoutSeconds = 30
	}
	if c.Tools.Fetch.MaxResponseSize == 0 {
		c.Tools.Fetch.MaxResponseSize = 5 * 1024 * 1024
	}
	if c.Tools.Fetch.UserAgent == "" {
		c.Tools.Fetch.UserAgent = "cronbot/1.0"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Notify.Telegram.MessagesPerMinute == 0 {
		c.Notify.Telegram.MessagesPerMinute = 20
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9090"
	}

	if c.Docker.PullPolicy == "" {
		c.Docker.PullPolicy = "if-not-present"
	}
	if c.Docker.StopTimeoutSeconds == 0 {
		c.Docker.StopTimeoutSeconds = 10
	}
	if c.Docker.TaskTimeoutSeconds == 0 {
		c.Docker.TaskTimeoutSeconds = 300
	}
	if c.Docker.MemoryLimit == "" {
		c.Docker.MemoryLimit = "128m"
	}
	if c.Docker.CPULimit == 0 {
		c.Docker.CPULimit = 0.5
	}
	if c.Docker.PidsLimit == 0 {
		c.Docker.PidsLimit = 50
	}
}

// expandEnvVars expands environment references in the configuration
func expandEnvVars(c *Config) error {
	if strings.HasPrefix(c.LLM.Anthropic.APIKey, "${") {
		c.LLM.Anthropic.APIKey = expandEnv(c.LLM.Anthropic.APIKey)
	}
	if strings.HasPrefix(c.LLM.OpenAI.APIKey, "${") {
		c.LLM.OpenAI.APIKey = expandEnv(c.LLM.OpenAI.APIKey)
	}

	if strings.HasPrefix(c.Notify.Telegram.Token, "${") {
		c.Notify.Telegram.Token = expandEnv(c.Notify.Telegram.Token)
	}

	if strings.HasPrefix(c.Workspace.Path, "${") {
		c.Workspace.Path = expandEnv(c.Workspace.Path)
	}
	c.Workspace.Path = expandHome(c.Workspace.Path)

	if strings.HasPrefix(c.Storage.Path, "${") {
		c.Storage.Path = expandEnv(c.Storage.Path)
	}
	c.Storage.Path = expandHome(c.Storage.Path)

	if strings.HasPrefix(c.Jobs.File, "${") {
		c.Jobs.File = expandEnv(c.Jobs.File)
	}
	c.Jobs.File = expandHome(c.Jobs.File)

	if strings.HasPrefix(c.Hub.File, "${") {
		c.Hub.File = expandEnv(c.Hub.File)
	}
	c.Hub.File = expandHome(c.Hub.File)

	return nil
}

// expandEnv expands an environment reference of the form ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	// No default value
	return os.Getenv(s[2:end])
}

// expandHome expands a leading ~ in a path
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
