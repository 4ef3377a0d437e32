package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "TWSCRAPE_"

// Config holds all configuration options for the collector
type Config struct {
	// API connection settings
	API APIConfig `yaml:"api" json:"api"`

	// Rate-limit backoff
	Backoff BackoffConfig `yaml:"backoff" json:"backoff"`

	// Collection bounds
	Collect CollectConfig `yaml:"collect" json:"collect"`

	// Client-side request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds settings for the upstream REST API
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	BearerToken string        `yaml:"bearer_token" json:"bearer_token"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	// TransportRetries is how many times a network or 5xx failure is retried
	// inside the HTTP client. 429 is never retried here.
	TransportRetries int `yaml:"transport_retries" json:"transport_retries"`
}

// BackoffConfig controls the wait applied when the upstream answers 429.
type BackoffConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	// MaxRetries caps consecutive rate-limit retries for one page. 0 means unlimited.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// CollectConfig holds the per-user collection bounds
type CollectConfig struct {
	MaxTweets    int `yaml:"max_tweets" json:"max_tweets"`
	MaxFollowers int `yaml:"max_followers" json:"max_followers"`
	// StopAtLastPage ends a follower walk at next_cursor 0
	StopAtLastPage  bool `yaml:"stop_at_last_page" json:"stop_at_last_page"`
	ConcurrentUsers int  `yaml:"concurrent_users" json:"concurrent_users"`
}

// RateLimitConfig paces requests per endpoint inside one window
type RateLimitConfig struct {
	// Strategy is fixed_window or sliding_window
	Strategy                   string        `yaml:"strategy" json:"strategy"`
	Window                     time.Duration `yaml:"window" json:"window"`
	TimelineRequestsPerWindow  int           `yaml:"timeline_requests_per_window" json:"timeline_requests_per_window"`
	FollowersRequestsPerWindow int           `yaml:"followers_requests_per_window" json:"followers_requests_per_window"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	CreateUserFolders bool   `yaml:"create_user_folders" json:"create_user_folders"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	Pretty            bool   `yaml:"pretty" json:"pretty"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "https://api.twitter.com/1.1",
			Timeout:          30 * time.Second,
			UserAgent:        "twscrape/1.0",
			TransportRetries: 2,
		},
		Backoff: BackoffConfig{
			Interval:   5 * time.Minute,
			MaxRetries: 0,
		},
		Collect: CollectConfig{
			MaxTweets:       3200,
			MaxFollowers:    5000,
			StopAtLastPage:  true,
			ConcurrentUsers: 2,
		},
		RateLimit: RateLimitConfig{
			Strategy:                   "fixed_window",
			Window:                     15 * time.Minute,
			TimelineRequestsPerWindow:  900,
			FollowersRequestsPerWindow: 15,
		},
		Output: OutputConfig{
			BaseDirectory:     "./collected",
			CreateUserFolders: true,
			OverwriteExisting: false,
			Pretty:            true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if token := os.Getenv(EnvPrefix + "BEARER_TOKEN"); token != "" {
		c.API.BearerToken = token
	}
	if baseURL := os.Getenv(EnvPrefix + "BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}

	if interval := os.Getenv(EnvPrefix + "BACKOFF_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sBACKOFF_INTERVAL: %w", EnvPrefix, err))
		} else {
			c.Backoff.Interval = d
		}
	}

	if outputDir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if concurrent := os.Getenv(EnvPrefix + "CONCURRENT_USERS"); concurrent != "" {
		n, err := strconv.Atoi(concurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONCURRENT_USERS: %w", EnvPrefix, err))
		} else {
			c.Collect.ConcurrentUsers = n
		}
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range SearchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// SearchPaths lists the config file locations in order of precedence.
func SearchPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		"twscrape.yaml",
		".twscrape.yaml",
		".twscrape.yml",
		filepath.Join(home, ".config", "twscrape", "config.yaml"),
		filepath.Join(home, ".config", "twscrape", "config.yml"),
		filepath.Join(home, ".twscrape.yaml"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base URL is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api base URL %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.API.TransportRetries < 0 {
		errs = append(errs, errors.New("api transport retries cannot be negative"))
	}

	if c.Backoff.Interval <= 0 {
		errs = append(errs, errors.New("backoff interval must be positive"))
	}
	if c.Backoff.MaxRetries < 0 {
		errs = append(errs, errors.New("backoff max retries cannot be negative"))
	}

	if c.Collect.ConcurrentUsers <= 0 {
		errs = append(errs, errors.New("concurrent users must be positive"))
	}
	if c.Collect.ConcurrentUsers > 10 {
		errs = append(errs, errors.New("concurrent users should not exceed 10"))
	}

	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	switch c.RateLimit.Strategy {
	case "fixed_window", "sliding_window":
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}
	if c.RateLimit.TimelineRequestsPerWindow < 0 || c.RateLimit.FollowersRequestsPerWindow < 0 {
		errs = append(errs, errors.New("requests per window cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["bearer-token"].(string); ok && token != "" {
		c.API.BearerToken = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if backoff, ok := flags["backoff"].(time.Duration); ok && backoff > 0 {
		c.Backoff.Interval = backoff
	}
	if retries, ok := flags["max-retries"].(int); ok && retries >= 0 {
		c.Backoff.MaxRetries = retries
	}
	if maxTweets, ok := flags["max-tweets"].(int); ok {
		c.Collect.MaxTweets = maxTweets
	}
	if maxFollowers, ok := flags["max-followers"].(int); ok {
		c.Collect.MaxFollowers = maxFollowers
	}
	if stop, ok := flags["stop-at-last-page"].(bool); ok {
		c.Collect.StopAtLastPage = stop
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Collect.ConcurrentUsers = concurrent
	}
	if overwrite, ok := flags["overwrite"].(bool); ok {
		c.Output.OverwriteExisting = overwrite
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".twscrape.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
