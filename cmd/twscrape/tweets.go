package main

import (
	"github.com/spf13/cobra"
	"twscrape/pkg/storage"
)

var tweetsOpts collectOptions

// tweetsCmd represents the tweets command
var tweetsCmd = &cobra.Command{
	Use:   "tweets <user_id>...",
	Short: "Collect the timelines of one or more users",
	Long: `Collect tweets from the timeline of each user, newest first.

Pages of 200 are requested until a page holds fewer than 50 tweets or at
least --max tweets are collected. The last page is kept whole, so a user
may end with slightly more than --max.

Results are written to <output>/<user_id>/tweets.json.`,
	Example: `  # Collect up to 1000 tweets
  twscrape tweets 783214 --max 1000

  # Several users, two at a time, with a shorter backoff
  twscrape tweets 783214 6253282 17874544 --concurrent 2 --backoff 1m`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollectCommand(cmd, args, &tweetsOpts, storage.KindTweets)
	},
}

func init() {
	rootCmd.AddCommand(tweetsCmd)
	addCollectFlags(tweetsCmd, &tweetsOpts, "stop after at least this many tweets per user (default 3200)")
}
