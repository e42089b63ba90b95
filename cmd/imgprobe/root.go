package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"imgprobe/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile       string
	logLevel         string
	outputFormat     string
	dumpDir          string
	noColor          bool
	quiet            bool
	timeout          time.Duration
	attempts         int
	cloudflareBypass bool
)

// errLookupFailed signals a failure that has already been reported
var errLookupFailed = errors.New("lookup failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgprobe",
	Short: "Probe marketplace and manufacturer endpoints for product images",
	Long: `imgprobe locates product image URLs by probing third-party endpoints:

  - marketplace product pages (og:image and image-host URLs)
  - the authenticated catalog API (product, variants, search, browse)
  - the manufacturer's product feeds (by style code)

Every lookup ends as found, not found or failed. When nothing is found
the page length and title, or a truncated JSON body, are printed instead.

Exit status is 0 when a lookup completed, found or not, and 1 on failure.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errLookupFailed):
		return 1
	default:
		ui.PrintError("Error", err)
		return 1
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/imgprobe/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVarP(&outputFormat, "output", "o", "", "output format (text, json)")
	flags.StringVar(&dumpDir, "dump-dir", "", "write every raw HTTP exchange to this directory")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "print reports and errors only")
	flags.DurationVar(&timeout, "timeout", 0, "per-request timeout (default 10s)")
	flags.IntVar(&attempts, "attempts", 0, "attempts per request (default 1)")
	flags.BoolVar(&cloudflareBypass, "cloudflare-bypass", false, "send requests through the Cloudflare bypass transport")

	rootCmd.SetVersionTemplate(`imgprobe {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// changedFlags collects the global flags the user actually set, keyed the
// way config.MergeCommandLineFlags expects.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags()

	if set.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if set.Changed("output") {
		flags["output"] = outputFormat
	}
	if set.Changed("dump-dir") {
		flags["dump-dir"] = dumpDir
	}
	if set.Changed("no-color") {
		flags["no-color"] = noColor
	}
	if set.Changed("quiet") {
		flags["quiet"] = quiet
	}
	if set.Changed("timeout") {
		flags["timeout"] = timeout
	}
	if set.Changed("attempts") {
		flags["attempts"] = attempts
	}
	if set.Changed("cloudflare-bypass") {
		flags["cloudflare-bypass"] = cloudflareBypass
	}
	return flags
}
