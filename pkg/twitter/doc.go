// Package twitter is the HTTP collaborator behind the collectors: a small
// client for the two Twitter v1.1 endpoints twscrape paginates.
//
// This package includes:
//   - HTTPClient, sending app-only bearer token requests
//   - Tweet, Follower and FollowerPage models that keep the raw JSON objects
//   - Endpoint names and parameter builders
//   - Mapping of error responses to *errs.Error (status, API code, reset time)
//
// Example usage:
//
//	client := twitter.NewClient(token, 30*time.Second)
//
//	var tweets []twitter.Tweet
//	params := twitter.TimelineParams("783214", twitter.TimelinePageSize, 0, false)
//	if err := client.Get(ctx, twitter.EndpointUserTimeline, params, &tweets); err != nil {
//		if errs.IsRateLimited(err) {
//			// wait and try again
//		}
//	}
package twitter
