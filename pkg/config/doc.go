// Package config loads collector settings from defaults, a YAML file, .env files,
// TWSCRAPE_* environment variables and command line flags, in increasing order of
// precedence.
//
// Example:
//
//	cfg, err := config.Load("", map[string]interface{}{
//		"backoff":    30 * time.Second,
//		"max-tweets": 1000,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
package config
