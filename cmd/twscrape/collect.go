package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"twscrape/internal/batch"
	"twscrape/pkg/auth"
	"twscrape/pkg/collector"
	"twscrape/pkg/config"
	"twscrape/pkg/logger"
	"twscrape/pkg/storage"
	"twscrape/pkg/twitter"
	"twscrape/pkg/ui"
)

// collectOptions are the flags shared by the tweets and followers commands
type collectOptions struct {
	max            int
	output         string
	concurrent     int
	maxRetries     int
	account        string
	baseURL        string
	overwrite      bool
	stopAtLastPage bool
}

func addCollectFlags(cmd *cobra.Command, opts *collectOptions, maxUsage string) {
	cmd.Flags().IntVarP(&opts.max, "max", "n", 0, maxUsage)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default ./collected)")
	cmd.Flags().IntVar(&opts.concurrent, "concurrent", 0, "number of users collected at once")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 0, "give up after this many rate-limit retries of one page (0 retries forever)")
	cmd.Flags().StringVarP(&opts.account, "account", "a", "", "use a specific stored account")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "API base URL")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "replace existing output")
}

// flagMap returns only the flags the user set, keyed as config.MergeCommandLineFlags expects
func (o *collectOptions) flagMap(cmd *cobra.Command, kind storage.Kind) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if changed("max") {
		if kind == storage.KindTweets {
			flags["max-tweets"] = o.max
		} else {
			flags["max-followers"] = o.max
		}
	}
	if changed("output") {
		flags["output"] = o.output
	}
	if changed("concurrent") {
		flags["concurrent"] = o.concurrent
	}
	if changed("max-retries") {
		flags["max-retries"] = o.maxRetries
	}
	if changed("base-url") {
		flags["base-url"] = o.baseURL
	}
	if changed("overwrite") {
		flags["overwrite"] = o.overwrite
	}
	if changed("stop-at-last-page") {
		flags["stop-at-last-page"] = o.stopAtLastPage
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if backoff > 0 {
		flags["backoff"] = backoff
	}
	return flags
}

// runCollectCommand loads configuration, resolves the token and collects kind for every user
func runCollectCommand(cmd *cobra.Command, args []string, opts *collectOptions, kind storage.Kind) error {
	userIDs, err := parseUserIDs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, opts.flagMap(cmd, kind))
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()

	if err := resolveToken(cfg, opts.account, auth.NewManager); err != nil {
		return err
	}

	api := twitter.NewClientFromConfig(cfg, log)
	results, err := collectUsers(cmd.Context(), cfg, api, kind, userIDs, log)
	if err != nil {
		return err
	}
	return summarize(results)
}

// parseUserIDs sanitizes and validates the positional user ids
func parseUserIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	seen := make(map[string]bool)
	for _, arg := range args {
		id := twitter.SanitizeUserID(arg)
		if !twitter.IsValidUserID(id) {
			return nil, fmt.Errorf("invalid user id %q: expected a numeric id", arg)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// resolveToken fills cfg.API.BearerToken from stored credentials when the
// configuration does not carry one, or when account names a stored account.
func resolveToken(cfg *config.Config, account string, newManager func() (*auth.Manager, error)) error {
	if account == "" && cfg.API.BearerToken != "" {
		return nil
	}

	manager, err := newManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var acc *auth.Account
	if account != "" {
		acc, err = manager.Retrieve(account)
	} else {
		acc, err = manager.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return fmt.Errorf("no bearer token found: run 'twscrape auth login' or set %s", auth.TokenEnvVar)
		}
		return err
	}

	cfg.API.BearerToken = acc.BearerToken
	logger.WithField("account", acc.Name).Debug("using stored bearer token")
	return nil
}

// collectUsers runs one collection per user on a bounded pool and stores each result
func collectUsers(ctx context.Context, cfg *config.Config, api collector.API, kind storage.Kind, userIDs []string, log logger.Logger) ([]batch.Result, error) {
	manager, err := storage.NewManager(&cfg.Output)
	if err != nil {
		return nil, err
	}

	c := collector.NewFromConfig(api, cfg, log, collector.WithOnBackoff(
		func(endpoint, userID string, wait time.Duration, attempt int) {
			ui.RateLimitWarning(userID, wait)
		},
	))

	limit := cfg.Collect.MaxTweets
	if kind == storage.KindFollowers {
		limit = cfg.Collect.MaxFollowers
	}

	ui.PrintInfo("Collecting", fmt.Sprintf("%s of %d users (max %d each)", kind, len(userIDs), limit))
	progress := ui.NewProgressDisplay(string(kind), len(userIDs))

	handler := func(ctx context.Context, job batch.Job) (*storage.Manifest, error) {
		start := time.Now()
		manifest, err := collectOne(ctx, c, manager, job, limit)
		outcome := ui.Outcome{
			UserID:   job.UserID,
			Kind:     string(job.Kind),
			Max:      limit,
			Duration: time.Since(start),
			Err:      err,
		}
		if manifest != nil {
			outcome.Count = manifest.Count
			outcome.Path = manager.Path(job.UserID, job.Kind)
		}
		progress.Complete(outcome)
		return manifest, err
	}

	jobs := make([]batch.Job, len(userIDs))
	for i, id := range userIDs {
		jobs[i] = batch.Job{UserID: id, Kind: kind}
	}

	results := batch.Run(ctx, cfg.Collect.ConcurrentUsers, jobs, handler, log)
	progress.Finish()
	if n := manager.GetSavedCount(); n > 0 {
		ui.PrintInfo("Saved", fmt.Sprintf("%d files under %s", n, manager.GetOutputDir()))
	}
	return results, nil
}

func collectOne(ctx context.Context, c *collector.Collector, manager *storage.Manager, job batch.Job, limit int) (*storage.Manifest, error) {
	if err := manager.CheckWritable(job.UserID, job.Kind); err != nil {
		return nil, err
	}

	run := storage.NewRun(limit)
	switch job.Kind {
	case storage.KindTweets:
		tweets, err := c.CollectTweets(ctx, job.UserID, limit)
		if err != nil {
			return nil, err
		}
		return manager.SaveTweets(job.UserID, tweets, run)
	case storage.KindFollowers:
		followers, err := c.CollectFollowers(ctx, job.UserID, limit)
		if err != nil {
			return nil, err
		}
		return manager.SaveFollowers(job.UserID, followers, run)
	default:
		return nil, fmt.Errorf("unknown collection kind %q", job.Kind)
	}
}

// summarize turns failed jobs into the command error
func summarize(results []batch.Result) error {
	failed := 0
	for _, r := range results {
		if !r.Success() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d users failed", failed, len(results))
	}
	return nil
}
