// Package logger provides a structured logging interface for twscrape.
//
// It wraps zerolog with:
//   - Multiple log levels (Debug, Info, Warn, Error, Fatal)
//   - Structured logging with fields
//   - Pretty console output on stderr, optional JSON file output
//   - A global logger instance for the CLI
//   - NewNopLogger and NewTestLogger for tests
//
// Basic usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		return err
//	}
//	logger.WithField("user_id", "12").Info("collection started")
//
// Components take a Logger explicitly and fall back to GetLogger when given nil:
//
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("page collected", map[string]interface{}{
//		"collected": 400,
//		"max":       1000,
//	})
package logger
