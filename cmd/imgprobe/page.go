package main

import (
	"strings"

	"github.com/spf13/cobra"

	"imgprobe/pkg/marketplace"
	"imgprobe/pkg/probe"
)

var (
	pageProfile string
	pageLimit   int
)

// pageCmd represents the page command
var pageCmd = &cobra.Command{
	Use:   "page <slug|url>",
	Short: "Find images on a marketplace product page",
	Long: `Fetch a marketplace product page and report its og:image and the
image-host URLs embedded in the HTML.

The header profile changes the User-Agent the page is requested with.
Some pages only expose their og:image to crawlers.`,
	Example: `  # Look up a product page by slug
  imgprobe page air-jordan-1-retro-high-og-chicago-2022

  # Pretend to be a link preview crawler
  imgprobe page air-jordan-1-retro-high-og-chicago-2022 --profile facebook`,
	Args: cobra.ExactArgs(1),
	RunE: runPage,
}

func init() {
	rootCmd.AddCommand(pageCmd)

	pageCmd.Flags().StringVarP(&pageProfile, "profile", "p", "", "header profile ("+strings.Join(probe.ProfileNames(), ", ")+")")
	pageCmd.Flags().IntVarP(&pageLimit, "limit", "n", 0, "maximum image-host URLs to report (default 5, 0 for all)")
}

func runPage(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	name := a.cfg.Marketplace.Profile
	if pageProfile != "" {
		name = pageProfile
	}
	profile, err := probe.LookupProfile(name)
	if err != nil {
		return err
	}

	opts := marketplace.PagesOptionsFromConfig(a.cfg)
	if cmd.Flags().Changed("limit") {
		opts.Limit = pageLimit
	}

	pages := marketplace.NewPages(a.client, opts, a.log)
	return a.finish(pages.Lookup(cmd.Context(), args[0], profile))
}
