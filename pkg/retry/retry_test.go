package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	errs "twscrape/pkg/errors"
	"twscrape/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
		{6, 1 * time.Second, "Sixth attempt (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	delays := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Fatalf("Delay %v outside jitter bounds", delay)
		}
		delays[delay] = true
	}

	if len(delays) < 2 {
		t.Error("Expected multiple different delays with jitter, but got consistent delays")
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 5 * time.Minute}
	for attempt := 1; attempt <= 4; attempt++ {
		if delay := backoff.NextDelay(attempt); delay != 5*time.Minute {
			t.Errorf("Attempt %d: expected 5m, got %v", attempt, delay)
		}
	}
	if delay := backoff.NextDelay(0); delay != 0 {
		t.Errorf("Expected no delay before the first attempt, got %v", delay)
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	}

	if err := Do(op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	waits := 0
	persistent := errors.New("persistent error")
	op := func() error {
		attempts++
		return persistent
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		OnRetry:     func(int, error, time.Duration) { waits++ },
		Context:     context.Background(),
	}

	err := Do(op, cfg)
	if !errors.Is(err, persistent) {
		t.Errorf("Expected wrapped persistent error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if waits != 2 {
		t.Errorf("Expected 2 waits between 3 attempts, got %d", waits)
	}
}

func TestRetryUnlimitedAttempts(t *testing.T) {
	attempts := 0
	rateLimited := &errs.Error{Type: errs.ErrorTypeRateLimit, Code: http.StatusTooManyRequests}
	op := func() error {
		attempts++
		if attempts < 12 {
			return rateLimited
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     errs.IsRateLimited,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}

	if err := Do(op, cfg); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 12 {
		t.Errorf("Expected 12 attempts, got %d", attempts)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	authError := &errs.Error{
		Type:    errs.ErrorTypeAuth,
		Message: "authentication required",
		Code:    401,
	}

	op := func() error {
		attempts++
		return authError
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}

	err := Do(op, cfg)
	if err != authError {
		t.Errorf("Expected auth error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry for auth error), got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func() error {
		attempts++
		cancel()
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		RetryIf:     func(err error) bool { return true },
		Context:     ctx,
	}

	done := make(chan error, 1)
	go func() { done <- Do(op, cfg) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected the wait to be cancelled after 1 attempt, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"rate limit", &errs.Error{Type: errs.ErrorTypeRateLimit, Code: 429}, true},
		{"server error", &errs.Error{Type: errs.ErrorTypeServerError, Code: 503}, true},
		{"not found", &errs.Error{Type: errs.ErrorTypeNotFound, Code: 404}, false},
		{"plain error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetrierWithContext(t *testing.T) {
	base := NewRetrier(&Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		RetryIf:     func(err error) bool { return true },
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var hooked int
	r := base.WithContext(ctx).WithOnRetry(func(int, error, time.Duration) { hooked++ })
	err := r.Do(func() error { return errors.New("nope") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if hooked != 1 {
		t.Errorf("Expected OnRetry before the wait, got %d calls", hooked)
	}
	if base.config.Context != nil || base.config.OnRetry != nil {
		t.Error("Derived retrier must not mutate its parent")
	}
	if base.MaxAttempts() != 0 {
		t.Errorf("Expected unlimited attempts, got %d", base.MaxAttempts())
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Errorf("Expected zero wait to return nil, got %v", err)
	}

	start := time.Now()
	if err := Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, expected at least 20ms", elapsed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
