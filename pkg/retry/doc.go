// Package retry provides backoff strategies and a retry loop for operations
// against the Twitter API.
//
// Two strategies are used in practice:
//   - ConstantBackoff: the fixed wait applied when the upstream answers 429.
//     The collectors retry these with MaxAttempts 0 (unlimited) by default.
//   - ExponentialBackoff: short jittered waits for transient transport and
//     5xx failures inside the HTTP client.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return api.Get(ctx, endpoint, params, &page)
//	}, &retry.Config{
//		Backoff: &retry.ConstantBackoff{Delay: 5 * time.Minute},
//		RetryIf: errs.IsRateLimited,
//		Context: ctx,
//		OnRetry: func(attempt int, err error, delay time.Duration) {
//			log.Warn("rate limit reached")
//		},
//	})
//
// Every wait goes through Wait, so cancelling the context aborts the retry
// loop and Do returns an error wrapping ctx.Err().
package retry
