// Package collector paginates a user's timeline or follower list through the
// Twitter API, waiting out rate limits instead of failing.
//
// Tweets are walked backward: each request asks for tweets older than the
// smallest id collected so far. The walk ends after a page of fewer than 50
// tweets or once the requested number is reached; the last page is kept
// whole, so results may overshoot the bound.
//
// Followers are walked forward with the cursor returned by each page,
// starting from -1. The size bound is checked before every request. The
// terminal cursor 0 only ends the walk when WithStopAtLastPage is set.
//
// When the API answers 429 the collector logs a warning, waits the backoff
// interval (5 minutes unless WithBackoff says otherwise) and repeats the same
// request. Other errors are returned to the caller.
//
//	c := collector.New(client, collector.WithBackoff(time.Minute))
//	tweets, err := c.CollectTweets(ctx, "783214", 3200)
package collector
