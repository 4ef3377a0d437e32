// Package storage persists collected tweets and followers as JSON.
//
// The storage package handles:
//   - Creating the output directory and per-user folders
//   - Writing records with atomic temp-file-and-rename writes
//   - A manifest per collection with a run id, count and timing
//   - Refusing to overwrite existing output unless configured to
//
// Layout with create_user_folders enabled:
//
//	<base>/<user_id>/tweets.json
//	<base>/<user_id>/tweets.manifest.json
//	<base>/<user_id>/followers.json
//	<base>/<user_id>/followers.manifest.json
//
// Records are written exactly as the API returned them.
//
// Usage:
//
//	manager, err := storage.NewManager(&cfg.Output)
//	if err != nil {
//		return err
//	}
//	run := storage.NewRun(cfg.Collect.MaxTweets)
//	tweets, err := c.CollectTweets(ctx, userID, run.Max)
//	// ...
//	manifest, err := manager.SaveTweets(userID, tweets, run)
package storage
