package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgprobe/pkg/config"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgprobe configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGPROBE_*)
  - .env files
  - Configuration file, then its .local override
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to $HOME/.config/imgprobe/config.yaml unless a
different path is given with --config. Keys are left empty; store them
with 'imgprobe keys set' or set them in the environment.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

Keys are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration from all sources and check it.

This command checks:
  - YAML or JSON5 syntax
  - Required endpoints
  - Value ranges
  - Whether catalog keys are available`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# imgprobe configuration file
#
# Every option can also be set with an IMGPROBE_ environment variable,
# for example IMGPROBE_CATALOG_API_KEY or IMGPROBE_TOKEN_STORE_URL.
# Keep keys out of this file: use 'imgprobe keys set' instead.

# Marketplace product pages
marketplace:
  base_url: "https://stockx.com"
  # Only URLs starting with this prefix are collected from page HTML
  image_host: "https://images.stockx.com/images/"
  # Maximum image-host URLs per page (0 for all)
  image_limit: 5
  # Header profile: browser, facebook, googlebot, generic
  profile: "browser"

# Authenticated catalog API
catalog:
  base_url: "https://api.stockx.com"
  api_key: ""
  page_size: 50

# Where catalog bearer tokens are read from
token_store:
  base_url: ""
  service_key: ""
  table: "stockx_tokens"
  field: "access_token"
  # Column to sort by, for example "created_at.desc"
  order: ""
  # How long a resolved token is reused (0 disables)
  cache_ttl: 5m

# Manufacturer product feed
manufacturer:
  base_url: "https://api.nike.com"
  channel_id: "d9a5bc42-4b9c-4976-858a-f159cf99c647"
  marketplace: "US"
  language: "en"
  country: "us"
  anonymous_id: "test"
  caller_id: "nike:dotcom:snkrs.web"

http:
  timeout: 10s
  cloudflare_bypass: false

# Attempts per request; 1 disables retries
retry:
  max_attempts: 1
  strategy: "exponential"
  initial_delay: 1s
  max_delay: 10s
  multiplier: 2.0

# Pacing for catalog probe sweeps
rate_limit:
  requests_per_minute: 60
  burst_size: 1

output:
  # text or json
  format: "text"
  # Write every raw HTTP exchange here (empty disables)
  dump_dir: ""
  no_color: false
  quiet: false

logging:
  # debug, info, warn, error, disabled
  level: "warn"
  # console or json
  format: "console"
  # Optional log file, rotated by size
  file: ""
  max_size: 100
  max_backups: 3
  max_age: 7
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	if !ui.IsQuiet() {
		fmt.Fprintln(ui.Stdout, "\nNext steps:")
		fmt.Fprintln(ui.Stdout, "1. Set token_store.base_url in the configuration file")
		fmt.Fprintln(ui.Stdout, "2. Store keys with 'imgprobe keys set catalog_api_key' and 'imgprobe keys set token_store_key'")
		fmt.Fprintln(ui.Stdout, "3. Run 'imgprobe config validate' to check the configuration")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(ui.Stdout, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, log: logger.NewNopLogger()}
	a.fillSecrets()

	var warnings []error
	if cfg.TokenStore.BaseURL == "" {
		warnings = append(warnings, errors.New("token_store.base_url is not set"))
	}
	if cfg.TokenStore.ServiceKey == "" {
		warnings = append(warnings, errors.New("token store service key is not set"))
	}
	if cfg.Catalog.APIKey == "" {
		warnings = append(warnings, errors.New("catalog API key is not set"))
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Catalog and token commands will fail until these are set")
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}
