package collector

import (
	"context"
	"fmt"
	"time"

	"twscrape/pkg/config"
	errs "twscrape/pkg/errors"
	"twscrape/pkg/logger"
	"twscrape/pkg/retry"
	"twscrape/pkg/twitter"
)

const (
	// DefaultBackoff is how long to wait after the API answers 429
	DefaultBackoff = 5 * time.Minute

	// shortPage is the page size below which a timeline is considered exhausted
	shortPage = 50
)

// Collector paginates timelines and follower lists for one user per call.
// It holds only settings, so one Collector may serve concurrent calls.
type Collector struct {
	api            API
	backoff        time.Duration
	maxRetries     int
	stopAtLastPage bool
	onBackoff      BackoffFunc
	logger         logger.Logger
	retrier        *retry.Retrier
}

// BackoffFunc is told about every rate-limit wait before it starts
type BackoffFunc func(endpoint, userID string, wait time.Duration, attempt int)

// Option configures a Collector
type Option func(*Collector)

// WithBackoff sets the wait applied before retrying a rate-limited request
func WithBackoff(d time.Duration) Option {
	return func(c *Collector) { c.backoff = d }
}

// WithMaxRetries caps consecutive rate-limit retries of one page.
// 0 retries forever.
func WithMaxRetries(n int) Option {
	return func(c *Collector) { c.maxRetries = n }
}

// WithStopAtLastPage makes CollectFollowers stop when the API returns a
// next_cursor of 0. Without it only the size bound ends the walk.
func WithStopAtLastPage(stop bool) Option {
	return func(c *Collector) { c.stopAtLastPage = stop }
}

// WithOnBackoff registers fn to run before each rate-limit wait
func WithOnBackoff(fn BackoffFunc) Option {
	return func(c *Collector) { c.onBackoff = fn }
}

// WithLogger sets the collector logger
func WithLogger(log logger.Logger) Option {
	return func(c *Collector) { c.logger = log }
}

// New creates a Collector reading from api
func New(api API, opts ...Option) *Collector {
	c := &Collector{
		api:     api,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	c.logger = c.logger.WithField("component", "collector")

	maxAttempts := 0
	if c.maxRetries > 0 {
		maxAttempts = c.maxRetries + 1
	}
	c.retrier = retry.NewRetrier(&retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.backoff},
		RetryIf:     errs.IsRateLimited,
		Logger:      c.logger,
	})
	return c
}

// NewFromConfig creates a Collector using the backoff and collect sections
func NewFromConfig(api API, cfg *config.Config, log logger.Logger, opts ...Option) *Collector {
	return New(api, append([]Option{
		WithBackoff(cfg.Backoff.Interval),
		WithMaxRetries(cfg.Backoff.MaxRetries),
		WithStopAtLastPage(cfg.Collect.StopAtLastPage),
		WithLogger(log),
	}, opts...)...)
}

// CollectTweets walks the timeline of userID from the newest tweet backward.
// Each request asks for older tweets than the smallest id collected so far.
// It stops after a page of fewer than 50 tweets or once at least maxTweets
// are collected; the last page is kept whole, so the result may exceed
// maxTweets. Rate-limited requests are retried after the backoff with the
// same cursor; any other error is returned with no partial result.
func (c *Collector) CollectTweets(ctx context.Context, userID string, maxTweets int) ([]twitter.Tweet, error) {
	log := c.logger.WithFields(map[string]interface{}{"user_id": userID, "kind": "tweets"})
	log.InfoWithFields("collecting tweets", map[string]interface{}{"max": maxTweets})

	tweets := make([]twitter.Tweet, 0)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect tweets for user %s: %w", userID, err)
		}

		maxID, hasMaxID := MinID(tweets)
		params := twitter.TimelineParams(userID, twitter.TimelinePageSize, maxID, hasMaxID)

		var batch []twitter.Tweet
		err := c.fetch(ctx, twitter.EndpointUserTimeline, userID, func() error {
			batch = nil
			return c.api.Get(ctx, twitter.EndpointUserTimeline, params, &batch)
		})
		if err != nil {
			log.WithError(err).ErrorWithFields("tweet collection failed", map[string]interface{}{
				"page":      page,
				"collected": len(tweets),
			})
			return nil, fmt.Errorf("collect tweets for user %s: %w", userID, err)
		}

		tweets = append(tweets, batch...)
		logger.LogCollectProgress(log, "tweets", userID, page, len(tweets), maxTweets)

		if len(batch) < shortPage || len(tweets) >= maxTweets {
			break
		}
	}

	log.InfoWithFields("tweets collected", map[string]interface{}{"count": len(tweets)})
	return tweets, nil
}

// CollectFollowers walks the follower list of userID forward from the first
// cursor. Before every request it stops if maxFollowers are already
// collected, so maxFollowers <= 0 makes no request at all. A rate-limited
// page is retried after the backoff with the same cursor; any other error
// is returned with no partial result.
func (c *Collector) CollectFollowers(ctx context.Context, userID string, maxFollowers int) ([]twitter.Follower, error) {
	log := c.logger.WithFields(map[string]interface{}{"user_id": userID, "kind": "followers"})
	log.InfoWithFields("collecting followers", map[string]interface{}{"max": maxFollowers})

	followers := make([]twitter.Follower, 0)
	cursor := twitter.FirstCursor
	for page := 1; len(followers) < maxFollowers; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect followers for user %s: %w", userID, err)
		}

		params := twitter.FollowersParams(userID, cursor)

		var batch twitter.FollowerPage
		err := c.fetch(ctx, twitter.EndpointFollowersList, userID, func() error {
			batch = twitter.FollowerPage{}
			return c.api.Get(ctx, twitter.EndpointFollowersList, params, &batch)
		})
		if err != nil {
			log.WithError(err).ErrorWithFields("follower collection failed", map[string]interface{}{
				"page":      page,
				"cursor":    cursor,
				"collected": len(followers),
			})
			return nil, fmt.Errorf("collect followers for user %s: %w", userID, err)
		}

		followers = append(followers, batch.Users...)
		cursor = batch.NextCursor
		logger.LogCollectProgress(log, "followers", userID, page, len(followers), maxFollowers)

		if c.stopAtLastPage && cursor == twitter.LastCursor {
			log.Debug("last follower page reached")
			break
		}
	}

	log.InfoWithFields("followers collected", map[string]interface{}{"count": len(followers)})
	return followers, nil
}

// fetch runs one page request, waiting out rate limits. request must reset
// its decode target so a retried page never carries stale data.
func (c *Collector) fetch(ctx context.Context, endpoint, userID string, request retry.Operation) error {
	onRetry := func(attempt int, err error, delay time.Duration) {
		resetAt, _ := errs.ResetTime(err)
		logger.LogRateLimit(c.logger, endpoint, userID, delay, attempt, resetAt)
		if c.onBackoff != nil {
			c.onBackoff(endpoint, userID, delay, attempt)
		}
	}
	return c.retrier.WithContext(ctx).WithOnRetry(onRetry).Do(request)
}

// Tweets collects with default settings. See CollectTweets.
func Tweets(ctx context.Context, api API, userID string, maxTweets int) ([]twitter.Tweet, error) {
	return New(api).CollectTweets(ctx, userID, maxTweets)
}

// Followers collects with default settings. See CollectFollowers.
func Followers(ctx context.Context, api API, userID string, maxFollowers int) ([]twitter.Follower, error) {
	return New(api).CollectFollowers(ctx, userID, maxFollowers)
}
