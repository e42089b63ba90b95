package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgprobe/pkg/lookup"
	"imgprobe/pkg/manufacturer"
	"imgprobe/pkg/ui"
)

var feedSource string

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed <style>",
	Short: "Find images in the manufacturer's product feeds",
	Long: `Look a style code up in the manufacturer's product feeds.

Sources:
  rollup   product rollup feed (squarish, portrait and cover images)
  threads  product threads feed (squarish image per product)
  all      both feeds, one after the other`,
	Example: `  # Query both feeds
  imgprobe feed DZ5485-612

  # Only the rollup feed, as JSON
  imgprobe feed DZ5485-612 --source rollup -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().StringVarP(&feedSource, "source", "s", "all", "feed to query (rollup, threads, all)")
}

func runFeed(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	feed := manufacturer.NewFeed(a.client, manufacturer.OptionsFromConfig(a.cfg), a.log)
	style := args[0]

	switch strings.ToLower(feedSource) {
	case manufacturer.SourceRollup, manufacturer.SourceThreads:
		results, err := feed.Lookup(cmd.Context(), style, feedSource)
		if err != nil {
			return err
		}
		return a.finish(results...)
	case "", manufacturer.SourceAll:
	default:
		return fmt.Errorf("unknown feed source %q (valid: rollup, threads, all)", feedSource)
	}

	tracker := ui.NewTracker("feed "+style, 2)
	var results []*lookup.Result

	tracker.Step(manufacturer.SourceRollup)
	results = append(results, feed.Rollup(cmd.Context(), style))

	tracker.Step(manufacturer.SourceThreads)
	results = append(results, feed.Threads(cmd.Context(), style))

	tracker.Finish()
	return a.finish(results...)
}
