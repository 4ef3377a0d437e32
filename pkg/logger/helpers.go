package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an upstream API request at a level matching its status
func LogRequest(log Logger, method, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("API request completed", fields)
	case statusCode == 429:
		// the collector warns before it backs off
		log.DebugWithFields("API request rate limited", fields)
	case statusCode >= 400 && statusCode < 500:
		log.WarnWithFields("API request client error", fields)
	case statusCode >= 500:
		log.ErrorWithFields("API request server error", fields)
	default:
		log.DebugWithFields("API request finished", fields)
	}
}

// LogRateLimit logs the diagnostic emitted before every backoff wait.
// resetAt may be zero when the upstream did not report a window reset.
func LogRateLimit(log Logger, endpoint, userID string, wait time.Duration, attempt int, resetAt time.Time) {
	fields := map[string]interface{}{
		"endpoint": endpoint,
		"user_id":  userID,
		"wait":     wait,
		"attempt":  attempt,
		"action":   "rate_limited",
	}
	if !resetAt.IsZero() {
		fields["window_reset"] = resetAt
	}
	log.WarnWithFields(fmt.Sprintf("rate limit reached, waiting %s", wait), fields)
}

// LogCollectProgress logs accumulator growth after each page
func LogCollectProgress(log Logger, kind, userID string, page, collected, max int) {
	log.DebugWithFields("page collected", map[string]interface{}{
		"kind":      kind,
		"user_id":   userID,
		"page":      page,
		"collected": collected,
		"max":       max,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (nopLogger) Fatal(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (n nopLogger) WithContext(context.Context) Logger           { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (nopLogger) FatalWithFields(string, map[string]interface{}) {}
func (nopLogger) GetZerolog() *zerolog.Logger                    { return nil }
