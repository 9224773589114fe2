// Package config provides configuration loading and validation for Cronbot.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [workspace]: Workspace directory (jobs file, hub file, conversation store)
//   - [jobs]: Path to the YAML jobs file
//   - [hub]: Path to the shared agent/team registry file
//   - [storage]: Conversation store location
//   - [scheduler]: Dispatcher settings (timezone)
//   - [llm]: LLM provider configuration (Anthropic, OpenAI-compatible)
//   - [logging]: Logging level, format, and output
//   - [notify]: Error notification channels (Telegram)
//   - [metrics]: Prometheus listener
//   - [docker]: Container defaults for plugin targets
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: api_key = "${ANTHROPIC_API_KEY:}"
package config

import (
	"os"
	"path/filepath"

	"github.com/aatumaykin/cronbot/internal/constants"
)

// StoreEnvVar overrides the conversation store path when set.
const StoreEnvVar = "CRONBOT_DB_FILE"

// Config represents the main application configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Jobs      JobsConfig      `toml:"jobs"`
	Hub       HubConfig       `toml:"hub"`
	Storage   StorageConfig   `toml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	LLM       LLMConfig       `toml:"llm"`
	Tools     ToolsConfig     `toml:"tools"`
	Logging   LoggingConfig   `toml:"logging"`
	Notify    NotifyConfig    `toml:"notify"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Docker    DockerConfig    `toml:"docker"`
}

// WorkspaceConfig holds the workspace directory settings
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// JobsConfig points at the YAML jobs file
type JobsConfig struct {
	File string `toml:"file"`
}

// HubConfig points at the shared agent/team registry file (optional)
type HubConfig struct {
	File string `toml:"file"`
}

// StorageConfig holds the conversation store settings
type StorageConfig struct {
	Path string `toml:"path"`
}

// SchedulerConfig holds dispatcher settings
type SchedulerConfig struct {
	Timezone string `toml:"timezone"`
}

// LLMConfig holds per-provider LLM settings
type LLMConfig struct {
	Anthropic AnthropicConfig `toml:"anthropic"`
	OpenAI    OpenAIConfig    `toml:"openai"`
}

// AnthropicConfig holds Anthropic provider settings
type AnthropicConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OpenAIConfig holds OpenAI-compatible provider settings
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ToolsConfig holds per-tool settings
type ToolsConfig struct {
	Fetch FetchToolConfig `toml:"fetch"`
}

// FetchToolConfig holds the web_fetch tool settings
type FetchToolConfig struct {
	Enabled         bool   `toml:"enabled"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxResponseSize int64  `toml:"max_response_size"`
	UserAgent       string `toml:"user_agent"`
}

// LoggingConfig holds the logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// NotifyConfig holds error notification channels
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig holds the Telegram notifier settings
type TelegramConfig struct {
	Enabled           bool   `toml:"enabled"`
	Token             string `toml:"token"`
	ChatID            int64  `toml:"chat_id"`
	MessagesPerMinute int    `toml:"messages_per_minute"`
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// DockerConfig holds container defaults for plugin targets
type DockerConfig struct {
	Enabled            bool     `toml:"enabled"`
	PullPolicy         string   `toml:"pull_policy"`
	StopTimeoutSeconds int      `toml:"stop_timeout_seconds"`
	TaskTimeoutSeconds int      `toml:"task_timeout_seconds"`
	MemoryLimit        string   `toml:"memory_limit"`
	CPULimit           float64  `toml:"cpu_limit"`
	PidsLimit          int64    `toml:"pids_limit"`
	SecurityOpt        []string `toml:"security_opt"`
	ReadonlyRootfs     bool     `toml:"readonly_rootfs"`
}

// JobsFile returns the resolved path to the jobs file. Relative paths are
// anchored at the workspace.
func (c *Config) JobsFile() string {
	if filepath.IsAbs(c.Jobs.File) {
		return c.Jobs.File
	}
	return filepath.Join(c.Workspace.Path, c.Jobs.File)
}

// HubFile returns the resolved path to the hub registry file, or "" when no
// hub is configured.
func (c *Config) HubFile() string {
	if c.Hub.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Hub.File) {
		return c.Hub.File
	}
	return filepath.Join(c.Workspace.Path, c.Hub.File)
}

// StorePath returns the conversation store path. The CRONBOT_DB_FILE
// environment variable wins over the configured value; the fallback is
// scheduler.db inside the workspace.
func (c *Config) StorePath() string {
	if env := os.Getenv(StoreEnvVar); env != "" {
		return expandHome(env)
	}
	if c.Storage.Path != "" {
		if filepath.IsAbs(c.Storage.Path) {
			return c.Storage.Path
		}
		return filepath.Join(c.Workspace.Path, c.Storage.Path)
	}
	return filepath.Join(c.Workspace.Path, constants.DefaultStoreFile)
}
