package collector

import (
	"context"
	"net/url"
)

// API is the single operation the collectors need from a Twitter client.
// Errors must expose the HTTP status through *errs.Error so a 429 can be
// told apart from everything else.
type API interface {
	Get(ctx context.Context, endpoint string, params url.Values, out interface{}) error
}
