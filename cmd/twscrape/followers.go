package main

import (
	"github.com/spf13/cobra"
	"twscrape/pkg/storage"
)

var followersOpts collectOptions

// followersCmd represents the followers command
var followersCmd = &cobra.Command{
	Use:   "followers <user_id>...",
	Short: "Collect the followers of one or more users",
	Long: `Collect the follower list of each user by walking its cursors.

Pages are requested while fewer than --max followers are collected. With
--stop-at-last-page (the default) the walk also ends at the last page.

Results are written to <output>/<user_id>/followers.json.`,
	Example: `  # Collect up to 500 followers
  twscrape followers 783214 --max 500

  # Keep requesting until --max even past the last page
  twscrape followers 783214 --stop-at-last-page=false`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollectCommand(cmd, args, &followersOpts, storage.KindFollowers)
	},
}

func init() {
	rootCmd.AddCommand(followersCmd)
	addCollectFlags(followersCmd, &followersOpts, "stop once this many followers per user are collected (default 5000)")
	followersCmd.Flags().BoolVar(&followersOpts.stopAtLastPage, "stop-at-last-page", true, "end the walk when the API reports the last page")
}
