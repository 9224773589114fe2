package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	tests := []struct {
		name  string
		field string
		want  string
		got   string
	}{
		{"workspace path", "workspace.path", "~/.cronbot", cfg.Workspace.Path},
		{"jobs file", "jobs.file", "jobs.yaml", cfg.Jobs.File},
		{"scheduler timezone", "scheduler.timezone", "Local", cfg.Scheduler.Timezone},
		{"openai base url", "llm.openai.base_url", "https://api.openai.com/v1", cfg.LLM.OpenAI.BaseURL},
		{"logging level", "logging.level", "info", cfg.Logging.Level},
		{"logging format", "logging.format", "json", cfg.Logging.Format},
		{"logging output", "logging.output", "stdout", cfg.Logging.Output},
		{"docker pull policy", "docker.pull_policy", "if-not-present", cfg.Docker.PullPolicy},
		{"fetch user agent", "tools.fetch.user_agent", "cronbot/1.0", cfg.Tools.Fetch.UserAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %s = %s, got %s", tt.field, tt.want, tt.got)
			}
		})
	}

	if cfg.Tools.Fetch.Enabled {
		t.Error("Expected tools.fetch to stay opt-in")
	}
	if cfg.Tools.Fetch.TimeoutSeconds != 30 {
		t.Errorf("Expected tools.fetch.timeout_seconds = 30, got %d", cfg.Tools.Fetch.TimeoutSeconds)
	}
	if cfg.Tools.Fetch.MaxResponseSize != 5*1024*1024 {
		t.Errorf("Expected tools.fetch.max_response_size = 5MiB, got %d", cfg.Tools.Fetch.MaxResponseSize)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Workspace: WorkspaceConfig{Path: "~/.cronbot"},
			Jobs:      JobsConfig{File: "jobs.yaml"},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config with minimal fields",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing workspace path",
			mutate:  func(c *Config) { c.Workspace.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing jobs file",
			mutate:  func(c *Config) { c.Jobs.File = "" },
			wantErr: true,
		},
		{
			name:    "invalid logging level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "short anthropic api key",
			mutate:  func(c *Config) { c.LLM.Anthropic.APIKey = "short" },
			wantErr: true,
		},
		{
			name: "telegram enabled but missing token",
			mutate: func(c *Config) {
				c.Notify.Telegram.Enabled = true
				c.Notify.Telegram.ChatID = 42
			},
			wantErr: true,
		},
		{
			name: "telegram enabled but missing chat id",
			mutate: func(c *Config) {
				c.Notify.Telegram.Enabled = true
				c.Notify.Telegram.Token = "1234567890:ABCdefGHIjklMNOpqrsTUVwxyz"
			},
			wantErr: true,
		},
		{
			name: "telegram fully configured",
			mutate: func(c *Config) {
				c.Notify.Telegram.Enabled = true
				c.Notify.Telegram.Token = "1234567890:ABCdefGHIjklMNOpqrsTUVwxyz"
				c.Notify.Telegram.ChatID = 42
			},
			wantErr: false,
		},
		{
			name:    "metrics enabled without listen address",
			mutate:  func(c *Config) { c.Metrics.Enabled = true },
			wantErr: true,
		},
		{
			name: "docker enabled with bad pull policy",
			mutate: func(c *Config) {
				c.Docker = DefaultDockerConfig()
				c.Docker.Enabled = true
				c.Docker.PullPolicy = "sometimes"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			errors := cfg.Validate()
			hasErrors := len(errors) > 0
			if hasErrors != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errors, tt.wantErr)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple variable",
			input: "${TEST_VAR}",
			want:  "", // Should be empty if not set
		},
		{
			name:  "variable with default",
			input: "${TEST_VAR:default}",
			want:  "default",
		},
		{
			name:  "no expansion",
			input: "plain text",
			want:  "plain text",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandEnv(tt.input)
			if got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home directory: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "tilde expansion",
			input: "~/.cronbot",
			want:  filepath.Join(home, ".cronbot"),
		},
		{
			name:  "tilde with nested path",
			input: "~/projects/cronbot",
			want:  filepath.Join(home, "projects", "cronbot"),
		},
		{
			name:  "absolute path",
			input: "/tmp/cronbot",
			want:  "/tmp/cronbot",
		},
		{
			name:  "relative path",
			input: "./cronbot",
			want:  "./cronbot",
		},
		{
			name:  "plain path without tilde",
			input: "cronbot",
			want:  "cronbot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandHome(tt.input)
			if got != tt.want {
				t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadIntegration(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `[workspace]
path = "` + tmpDir + `"

[jobs]
file = "jobs.yaml"

[llm.anthropic]
api_key = "sk-ant-test-key-valid"

[logging]
level = "debug"
format = "text"
output = "stdout"
`

	configFile := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Workspace.Path != tmpDir {
		t.Errorf("Workspace.Path = %q, want %q", cfg.Workspace.Path, tmpDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if got, want := cfg.JobsFile(), filepath.Join(tmpDir, "jobs.yaml"); got != want {
		t.Errorf("JobsFile() = %q, want %q", got, want)
	}
	// Defaults fill what the file leaves out
	if cfg.LLM.OpenAI.BaseURL == "" {
		t.Error("expected default openai base url")
	}
}

func TestLoadWithEnvVar(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.Setenv("TEST_CRONBOT_KEY", "sk-ant-from-env-12345"); err != nil {
		t.Fatalf("failed to set env var: %v", err)
	}
	defer os.Unsetenv("TEST_CRONBOT_KEY")

	configContent := `[workspace]
path = "` + tmpDir + `"

[llm.anthropic]
api_key = "${TEST_CRONBOT_KEY}"

[logging]
level = "info"
format = "json"
output = "stdout"
`

	configFile := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLM.Anthropic.APIKey != "sk-ant-from-env-12345" {
		t.Errorf("api key = %q, want expanded env value", cfg.LLM.Anthropic.APIKey)
	}
}

func TestStorePath(t *testing.T) {
	cfg := &Config{
		Workspace: WorkspaceConfig{Path: "/data/cronbot"},
	}

	if got, want := cfg.StorePath(), filepath.Join("/data/cronbot", "scheduler.db"); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}

	cfg.Storage.Path = "state/conv.db"
	if got, want := cfg.StorePath(), filepath.Join("/data/cronbot", "state", "conv.db"); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}

	cfg.Storage.Path = "/var/lib/cronbot.db"
	if got := cfg.StorePath(); got != "/var/lib/cronbot.db" {
		t.Errorf("StorePath() = %q, want absolute override", got)
	}

	if err := os.Setenv(StoreEnvVar, "/tmp/env-override.db"); err != nil {
		t.Fatalf("failed to set env var: %v", err)
	}
	defer os.Unsetenv(StoreEnvVar)

	if got := cfg.StorePath(); got != "/tmp/env-override.db" {
		t.Errorf("StorePath() = %q, want env override", got)
	}
}

func TestHubFile(t *testing.T) {
	cfg := &Config{Workspace: WorkspaceConfig{Path: "/data/cronbot"}}

	if got := cfg.HubFile(); got != "" {
		t.Errorf("HubFile() = %q, want empty when unconfigured", got)
	}

	cfg.Hub.File = "hub.yaml"
	if got, want := cfg.HubFile(), filepath.Join("/data/cronbot", "hub.yaml"); got != want {
		t.Errorf("HubFile() = %q, want %q", got, want)
	}
}

// Tests for validateAPIKey
func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		fieldName string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "valid anthropic api key",
			key:       "sk-ant-test-key-valid",
			fieldName: "llm.anthropic.api_key",
			wantErr:   false,
		},
		{
			name:      "empty api key",
			key:       "",
			fieldName: "llm.anthropic.api_key",
			wantErr:   true,
			errMsg:    "cannot be empty",
		},
		{
			name:      "api key too short (9 chars)",
			key:       "sk-short1",
			fieldName: "llm.openai.api_key",
			wantErr:   true,
			errMsg:    "too short",
		},
		{
			name:      "api key exactly 10 chars",
			key:       "sk-1234567",
			fieldName: "llm.openai.api_key",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAPIKey(tt.key, tt.fieldName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAPIKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validateAPIKey() error = %v, want error message to contain %q", err, tt.errMsg)
				}
			}
		})
	}
}

// Tests for validateTelegramToken
func TestValidateTelegramToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid telegram token",
			token:   "1234567890:ABCdefGHIjklMNOpqrsTUVwxyz",
			wantErr: false,
		},
		{
			name:    "valid telegram token with minimum bot ID (3 digits)",
			token:   "123:ABCDEFGHIJKLMNO",
			wantErr: false,
		},
		{
			name:    "empty telegram token",
			token:   "",
			wantErr: true,
			errMsg:  "cannot be empty",
		},
		{
			name:    "missing colon separator",
			token:   "1234567890-ABCdefGHIjklMNOpqrsTUVwxyz",
			wantErr: true,
			errMsg:  "invalid format",
		},
		{
			name:    "bot ID too short (2 digits)",
			token:   "12:ABCdefGHIjklMNOpqrsTUVwxyz",
			wantErr: true,
			errMsg:  "bot ID",
		},
		{
			name:    "bot ID contains non-digits",
			token:   "abc1234567:ABCdefGHIjklMNOpqrsTUVwxyz",
			wantErr: true,
			errMsg:  "bot ID",
		},
		{
			name:    "token too short (9 chars)",
			token:   "1234567890:ABCDEFGHI",
			wantErr: true,
			errMsg:  "token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTelegramToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTelegramToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validateTelegramToken() error = %v, want error message to contain %q", err, tt.errMsg)
				}
			}
		})
	}
}

// Tests for validatePath
func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		fieldName string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "absolute path",
			path:      "/tmp/cronbot",
			fieldName: "workspace.path",
			wantErr:   false,
		},
		{
			name:      "path with tilde",
			path:      "~/.cronbot",
			fieldName: "workspace.path",
			wantErr:   false,
		},
		{
			name:      "empty path",
			path:      "",
			fieldName: "workspace.path",
			wantErr:   true,
			errMsg:    "cannot be empty",
		},
		{
			name:      "path with double dot (path traversal)",
			path:      "/tmp/../etc",
			fieldName: "workspace.path",
			wantErr:   true,
			errMsg:    "path traversal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path, tt.fieldName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validatePath() error = %v, want error message to contain %q", err, tt.errMsg)
				}
			}
		})
	}
}

// Tests for masking functions
func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{
			name:     "empty secret",
			secret:   "",
			expected: "",
		},
		{
			name:     "short secret (less than 8 chars)",
			secret:   "abc",
			expected: "***",
		},
		{
			name:     "secret with 8 chars",
			secret:   "abcdefgh",
			expected: "abcdefgh", // 8 chars, no middle to mask
		},
		{
			name:     "long secret",
			secret:   "sk-ant-api-key-12345678",
			expected: "sk-a***************5678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskSecret(tt.secret)
			if result != tt.expected {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, result, tt.expected)
			}
		})
	}
}

func TestMaskTelegramToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "empty token",
			token:    "",
			expected: "",
		},
		{
			name:     "valid token keeps bot id visible",
			token:    "1234567890:ABCdefGHIjklMNOpqrsTUVwxyz",
			expected: "1234567890:ABCd******************wxyz",
		},
		{
			name:     "invalid format (no colon)",
			token:    "invalid-token",
			expected: "inva*****oken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskTelegramToken(tt.token)
			if result != tt.expected {
				t.Errorf("MaskTelegramToken(%q) = %q, want %q", tt.token, result, tt.expected)
			}
		})
	}
}
