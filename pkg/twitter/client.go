package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"twscrape/pkg/config"
	errs "twscrape/pkg/errors"
	"twscrape/pkg/logger"
	"twscrape/pkg/ratelimit"
	"twscrape/pkg/retry"
)

// Client is the consumer-side view of the API used by the collectors.
type Client interface {
	Get(ctx context.Context, endpoint string, params url.Values, out interface{}) error
}

// HTTPClient talks to the v1.1 REST API with an app-only bearer token.
type HTTPClient struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
	limits     *ratelimit.Endpoints
	retrier    *retry.Retrier
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithBaseURL points the client at another API root (tests, proxies)
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(c *HTTPClient) { c.logger = log }
}

// WithRateLimits paces requests per endpoint before they are sent
func WithRateLimits(limits *ratelimit.Endpoints) Option {
	return func(c *HTTPClient) { c.limits = limits }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) { c.headers["User-Agent"] = ua }
}

// WithTransportRetries retries network and 5xx failures up to n extra times.
// Rate-limit responses are always returned to the caller.
func WithTransportRetries(n int, backoff retry.BackoffStrategy) Option {
	return func(c *HTTPClient) {
		if backoff == nil {
			backoff = retry.DefaultExponentialBackoff()
		}
		c.retrier = retry.NewRetrier(&retry.Config{
			MaxAttempts: n + 1,
			Backoff:     backoff,
			RetryIf:     isTransientError,
		})
	}
}

// NewClient creates a new API client authenticating with bearerToken
func NewClient(bearerToken string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Authorization": "Bearer " + bearerToken,
			"Accept":        "application/json",
			"User-Agent":    "twscrape/1.0",
		},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	if c.retrier == nil {
		c.retrier = retry.NewRetrier(&retry.Config{MaxAttempts: 1, RetryIf: isTransientError})
	}
	c.logger = c.logger.WithField("component", "twitter")
	return c
}

// NewClientFromConfig builds a client from the api and rate_limit sections.
func NewClientFromConfig(cfg *config.Config, log logger.Logger) *HTTPClient {
	limits := ratelimit.NewEndpoints()
	if n := cfg.RateLimit.TimelineRequestsPerWindow; n > 0 {
		limits.Set(EndpointUserTimeline, ratelimit.NewLimiter(cfg.RateLimit.Strategy, n, cfg.RateLimit.Window))
	}
	if n := cfg.RateLimit.FollowersRequestsPerWindow; n > 0 {
		limits.Set(EndpointFollowersList, ratelimit.NewLimiter(cfg.RateLimit.Strategy, n, cfg.RateLimit.Window))
	}

	return NewClient(cfg.API.BearerToken, cfg.API.Timeout,
		WithBaseURL(cfg.API.BaseURL),
		WithUserAgent(cfg.API.UserAgent),
		WithLogger(log),
		WithRateLimits(limits),
		WithTransportRetries(cfg.API.TransportRetries, nil),
	)
}

// Get requests endpoint with params and decodes the JSON body into out.
// Failures are *errs.Error values carrying the HTTP status code.
func (c *HTTPClient) Get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if c.limits != nil {
		if err := c.limits.Wait(ctx, endpoint); err != nil {
			return fmt.Errorf("waiting for %s rate limit: %w", endpoint, err)
		}
	}

	err := c.retrier.WithContext(ctx).Do(func() error {
		return c.getOnce(ctx, endpoint, params, out)
	})
	if err != nil && c.limits != nil {
		if resetAt, ok := errs.ResetTime(err); ok && errs.IsRateLimited(err) {
			c.limits.Drain(endpoint, resetAt)
		}
	}
	return err
}

func (c *HTTPClient) getOnce(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := EndpointURL(c.baseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := c.checkResponseStatus(resp, endpoint, body); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// doRequest performs an HTTP request with the configured headers
func (c *HTTPClient) doRequest(req *http.Request, endpoint string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("request %s: %w", endpoint, ctxErr)
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	logger.LogRequest(c.logger, req.Method, endpoint, resp.StatusCode, duration)
	return resp, nil
}

// apiErrorBody is the Twitter error envelope
type apiErrorBody struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// checkResponseStatus maps non-2xx responses to *errs.Error
func (c *HTTPClient) checkResponseStatus(resp *http.Response, endpoint string, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &errs.Error{
		Type:    errs.TypeForStatus(resp.StatusCode),
		Message: http.StatusText(resp.StatusCode),
		Code:    resp.StatusCode,
	}

	var envelope apiErrorBody
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Errors) > 0 {
		apiErr.APICode = envelope.Errors[0].Code
		if envelope.Errors[0].Message != "" {
			apiErr.Message = envelope.Errors[0].Message
		}
	}

	fields := map[string]interface{}{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
	}
	if apiErr.APICode != 0 {
		fields["api_code"] = apiErr.APICode
	}

	switch apiErr.Type {
	case errs.ErrorTypeRateLimit:
		if resetAt, ok := parseRateLimitReset(resp.Header.Get("x-rate-limit-reset")); ok {
			apiErr.ResetAt = resetAt
			fields["reset_at"] = resetAt
		}
		c.logger.DebugWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", fields)
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return apiErr
}

// parseRateLimitReset parses the x-rate-limit-reset unix timestamp header.
// A missing or invalid header leaves the reset unknown, so only the
// collector's own backoff applies.
func parseRateLimitReset(v string) (time.Time, bool) {
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ts <= 0 {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}

// isTransientError reports failures worth retrying inside the transport.
func isTransientError(err error) bool {
	if errs.IsRateLimited(err) {
		return false
	}
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Type == errs.ErrorTypeNetwork {
		return true
	}
	// Code 0 without a network failure means the request was never sent
	return apiErr.Code != 0 && errs.IsRetryableStatusCode(apiErr.Code)
}
