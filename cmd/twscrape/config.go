package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"twscrape/pkg/auth"
	"twscrape/pkg/config"
	"twscrape/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage twscrape configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (TWSCRAPE_*, also read from .env)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as 'twscrape.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

The bearer token is masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# twscrape configuration
#
# Every value can also be set with a TWSCRAPE_ environment variable,
# for example TWSCRAPE_BEARER_TOKEN or TWSCRAPE_BACKOFF_INTERVAL.

api:
  base_url: "https://api.twitter.com/1.1"
  # Prefer 'twscrape auth login' over keeping the token here
  bearer_token: ""
  timeout: 30s
  user_agent: "twscrape/1.0"
  # Retries of network and 5xx failures. 429 is handled by backoff below.
  transport_retries: 2

backoff:
  # Wait after a rate-limited request before retrying the same page
  interval: 5m
  # Give up after this many rate-limit retries of one page. 0 retries forever.
  max_retries: 0

collect:
  # Tweets per user. The last page is kept whole, so results may exceed this.
  max_tweets: 3200
  max_followers: 5000
  # End a follower walk when the API reports the last page
  stop_at_last_page: true
  # Users collected at the same time (1-10)
  concurrent_users: 2

rate_limit:
  # Requests are paced to stay inside each window. 0 disables pacing.
  # strategy: fixed_window resets every window, sliding_window spreads requests.
  strategy: fixed_window
  window: 15m
  timeline_requests_per_window: 900
  followers_requests_per_window: 15

output:
  base_directory: "./collected"
  create_user_folders: true
  overwrite_existing: false
  pretty: true

logging:
  # debug, info, warn, error, disabled
  level: "info"
  # JSON log file, in addition to the console
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "twscrape.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store a bearer token with 'twscrape auth login'")
	fmt.Println("2. Run 'twscrape config validate' to check the configuration")
	fmt.Println("3. Start collecting with 'twscrape tweets <user_id>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}

	display := *cfg
	if display.API.BearerToken != "" {
		display.API.BearerToken = auth.SanitizeAccount(&auth.Account{BearerToken: display.API.BearerToken}).BearerToken
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (" + config.EnvPrefix + "*)")
	if path := configPathInUse(); path != "" {
		fmt.Printf("3. Configuration file: %s\n", path)
	} else {
		fmt.Println("3. Configuration file: (none found)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPathInUse()
	if path == "" {
		ui.PrintWarning("No configuration file found, validating defaults and environment")
	} else {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.API.BearerToken == "" {
		if err := resolveToken(cfg, "", auth.NewManager); err != nil {
			warnings = append(warnings, "no bearer token configured or stored")
		}
	}
	if cfg.Backoff.MaxRetries == 0 {
		warnings = append(warnings, "backoff.max_retries is 0: rate-limited pages are retried forever")
	}
	if !cfg.Collect.StopAtLastPage {
		warnings = append(warnings, "collect.stop_at_last_page is off: follower walks keep requesting until max_followers")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return fmt.Errorf("cannot create log directory: %w", err)
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  API: %s\n", cfg.API.BaseURL)
	fmt.Printf("  Backoff: %s\n", cfg.Backoff.Interval)
	fmt.Printf("  Max tweets / followers: %d / %d\n", cfg.Collect.MaxTweets, cfg.Collect.MaxFollowers)
	fmt.Printf("  Concurrent users: %d\n", cfg.Collect.ConcurrentUsers)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// globalFlags maps the persistent flags for config.Load
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if backoff > 0 {
		flags["backoff"] = backoff
	}
	return flags
}

// configPathInUse returns the file config.Load would read, if any
func configPathInUse() string {
	if configFile != "" {
		return configFile
	}
	for _, path := range config.SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
