package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Backoff.Interval != 5*time.Minute {
		t.Errorf("Expected default backoff interval to be 5m, got %v", config.Backoff.Interval)
	}

	if config.Backoff.MaxRetries != 0 {
		t.Errorf("Expected unlimited rate-limit retries by default, got %d", config.Backoff.MaxRetries)
	}

	if !config.Collect.StopAtLastPage {
		t.Error("Expected stop_at_last_page to be on by default")
	}

	if config.API.BaseURL != "https://api.twitter.com/1.1" {
		t.Errorf("Unexpected default base URL %s", config.API.BaseURL)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TWSCRAPE_BEARER_TOKEN", "env-token")
	t.Setenv("TWSCRAPE_BASE_URL", "http://localhost:9999/1.1")
	t.Setenv("TWSCRAPE_BACKOFF_INTERVAL", "90s")
	t.Setenv("TWSCRAPE_OUTPUT_DIR", "/tmp/test-collected")
	t.Setenv("TWSCRAPE_CONCURRENT_USERS", "4")
	t.Setenv("TWSCRAPE_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.API.BearerToken != "env-token" {
		t.Errorf("Expected bearer token env-token, got %s", config.API.BearerToken)
	}
	if config.API.BaseURL != "http://localhost:9999/1.1" {
		t.Errorf("Expected base URL override, got %s", config.API.BaseURL)
	}
	if config.Backoff.Interval != 90*time.Second {
		t.Errorf("Expected backoff interval 90s, got %v", config.Backoff.Interval)
	}
	if config.Output.BaseDirectory != "/tmp/test-collected" {
		t.Errorf("Expected output directory /tmp/test-collected, got %s", config.Output.BaseDirectory)
	}
	if config.Collect.ConcurrentUsers != 4 {
		t.Errorf("Expected 4 concurrent users, got %d", config.Collect.ConcurrentUsers)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("TWSCRAPE_BACKOFF_INTERVAL", "five minutes")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error for unparsable backoff interval")
	}
	if config.Backoff.Interval != 5*time.Minute {
		t.Errorf("Expected interval to stay at default, got %v", config.Backoff.Interval)
	}
}

func TestLoadFromEnvInvalidConcurrentUsers(t *testing.T) {
	t.Setenv("TWSCRAPE_CONCURRENT_USERS", "four")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "TWSCRAPE_CONCURRENT_USERS") {
		t.Fatalf("Expected error naming TWSCRAPE_CONCURRENT_USERS, got %v", err)
	}
	if config.Collect.ConcurrentUsers != 2 {
		t.Errorf("Expected concurrent users to stay at default, got %d", config.Collect.ConcurrentUsers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "zero backoff interval",
			mutate:    func(c *Config) { c.Backoff.Interval = 0 },
			wantError: "backoff interval must be positive",
		},
		{
			name:      "negative max retries",
			mutate:    func(c *Config) { c.Backoff.MaxRetries = -1 },
			wantError: "backoff max retries cannot be negative",
		},
		{
			name:      "relative base URL",
			mutate:    func(c *Config) { c.API.BaseURL = "api.twitter.com" },
			wantError: "is not an absolute URL",
		},
		{
			name:      "too many concurrent users",
			mutate:    func(c *Config) { c.Collect.ConcurrentUsers = 15 },
			wantError: "concurrent users should not exceed 10",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: "invalid log level",
		},
		{
			name:      "unknown rate limit strategy",
			mutate:    func(c *Config) { c.RateLimit.Strategy = "leaky_bucket" },
			wantError: "unknown rate limit strategy",
		},
		{
			name:   "sliding window strategy",
			mutate: func(c *Config) { c.RateLimit.Strategy = "sliding_window" },
		},
		{
			name:      "missing output directory",
			mutate:    func(c *Config) { c.Output.BaseDirectory = "" },
			wantError: "output directory is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantError == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantError)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	config := DefaultConfig()
	config.Backoff.Interval = 0
	config.Output.BaseDirectory = ""

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "backoff interval") || !strings.Contains(err.Error(), "output directory") {
		t.Errorf("Expected both problems reported, got %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"bearer-token":      "flag-token",
		"output":            "/flag/output",
		"backoff":           time.Minute,
		"max-retries":       3,
		"max-tweets":        50,
		"max-followers":     0,
		"stop-at-last-page": false,
		"concurrent":        7,
		"log-level":         "error",
	}

	config.MergeCommandLineFlags(flags)

	if config.API.BearerToken != "flag-token" {
		t.Errorf("Expected bearer token flag-token, got %s", config.API.BearerToken)
	}
	if config.Output.BaseDirectory != "/flag/output" {
		t.Errorf("Expected output directory /flag/output, got %s", config.Output.BaseDirectory)
	}
	if config.Backoff.Interval != time.Minute {
		t.Errorf("Expected backoff 1m, got %v", config.Backoff.Interval)
	}
	if config.Backoff.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", config.Backoff.MaxRetries)
	}
	if config.Collect.MaxTweets != 50 {
		t.Errorf("Expected max tweets 50, got %d", config.Collect.MaxTweets)
	}
	if config.Collect.MaxFollowers != 0 {
		t.Errorf("Expected max followers 0, got %d", config.Collect.MaxFollowers)
	}
	if config.Collect.StopAtLastPage {
		t.Error("Expected stop_at_last_page to be disabled by flag")
	}
	if config.Collect.ConcurrentUsers != 7 {
		t.Errorf("Expected concurrent users 7, got %d", config.Collect.ConcurrentUsers)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "test-config.yaml")

	config := DefaultConfig()
	config.API.BearerToken = "save-test-token"
	config.Backoff.Interval = 45 * time.Second
	config.Collect.MaxFollowers = 25

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Saved config missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.API.BearerToken != "save-test-token" {
		t.Errorf("Expected loaded token save-test-token, got %s", loaded.API.BearerToken)
	}
	if loaded.Backoff.Interval != 45*time.Second {
		t.Errorf("Expected loaded backoff 45s, got %v", loaded.Backoff.Interval)
	}
	if loaded.Collect.MaxFollowers != 25 {
		t.Errorf("Expected loaded max followers 25, got %d", loaded.Collect.MaxFollowers)
	}
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backoff:
  interval: 2m30s
  max_retries: 4
collect:
  max_tweets: 400
  stop_at_last_page: false
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Backoff.Interval != 150*time.Second {
		t.Errorf("Expected 2m30s, got %v", config.Backoff.Interval)
	}
	if config.Backoff.MaxRetries != 4 {
		t.Errorf("Expected max retries 4, got %d", config.Backoff.MaxRetries)
	}
	if config.Collect.MaxTweets != 400 {
		t.Errorf("Expected max tweets 400, got %d", config.Collect.MaxTweets)
	}
	if config.Collect.StopAtLastPage {
		t.Error("Expected stop_at_last_page false from file")
	}
	// untouched keys keep their defaults
	if config.Collect.MaxFollowers != 5000 {
		t.Errorf("Expected default max followers, got %d", config.Collect.MaxFollowers)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for explicit missing config file")
	}
}

func TestLoadPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  bearer_token: file-token
output:
  base_directory: /from/file
logging:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("TWSCRAPE_OUTPUT_DIR", "/from/env")
	t.Setenv("TWSCRAPE_LOG_LEVEL", "")

	config, err := Load(configPath, map[string]interface{}{"log-level": "debug"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.API.BearerToken != "file-token" {
		t.Errorf("Expected token from file, got %s", config.API.BearerToken)
	}
	if config.Output.BaseDirectory != "/from/env" {
		t.Errorf("Expected env to override file, got %s", config.Output.BaseDirectory)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected flag to override file, got %s", config.Logging.Level)
	}
}
