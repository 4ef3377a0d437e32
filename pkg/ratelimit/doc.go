// Package ratelimit paces requests on the client side so that twscrape
// stays inside Twitter's per-endpoint request windows instead of relying
// on 429 responses alone.
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Mirrors the 15 minute windows of the v1.1 API
//   - Drain empties it until an upstream x-rate-limit-reset time
//
// Sliding Window:
//   - Tracks requests within a moving time window
//
// Endpoints maps endpoint names to limiters:
//
//	limits := ratelimit.NewEndpoints()
//	limits.Set("followers/list", ratelimit.NewTokenBucket(15, 15*time.Minute))
//	limits.Set("statuses/user_timeline", ratelimit.NewTokenBucket(900, 15*time.Minute))
//
//	if err := limits.Wait(ctx, "followers/list"); err != nil {
//		return err // ctx cancelled
//	}
package ratelimit
