package main

import (
	"github.com/spf13/cobra"

	"imgprobe/pkg/inspect"
	"imgprobe/pkg/probe"
)

var (
	inspectContains string
	inspectProfile  string
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "Look for embedded data store keys in a page",
	Long: `Fetch a page and list the JWTs in its HTML whose payload names a project
ref, together with their role. Tokens are masked in the output.

With --contains the page is also searched for a literal string.`,
	Example: `  imgprobe inspect https://example.com/app
  imgprobe inspect https://example.com/app --contains supabase.co`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectContains, "contains", "", "report whether the page contains this text")
	inspectCmd.Flags().StringVarP(&inspectProfile, "profile", "p", probe.ProfileBrowser, "header profile")
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	profile, err := probe.LookupProfile(inspectProfile)
	if err != nil {
		return err
	}

	rep, err := inspect.New(a.client, a.log).Inspect(cmd.Context(), args[0], profile, inspectContains)
	if err != nil {
		return err
	}
	return a.reporter.Inspect(rep)
}
