package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"imgprobe/pkg/auth"
	"imgprobe/pkg/report"
	"imgprobe/pkg/ui"
)

// prompter reads key values, and the secret file passphrase goes through
// the same terminal
var prompter = auth.TerminalPrompter()

var keysValue string

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys",
	Long: `Manage the keys used by catalog lookups.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file in the config directory
  - IMGPROBE_* environment variables (read only)

Well-known names:
  ` + auth.SecretCatalogAPIKey + `   catalog x-api-key
  ` + auth.SecretServiceKey + `   token store service key

Keys in the config file or environment take precedence over stored keys.`,
}

var keysSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a key",
	Example: `  # Prompt for the value without echoing it
  imgprobe keys set catalog_api_key

  # Read the value from a pipe
  echo "$KEY" | imgprobe keys set token_store_key`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysSet,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys with masked values",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysDelete,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd, keysListCmd, keysDeleteCmd)

	keysSetCmd.Flags().StringVar(&keysValue, "value", "", "key value (prompted for when omitted)")
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	manager, err := secretManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	value := keysValue
	if value == "" {
		value, err = prompter.Read(args[0])
		if err != nil {
			return fmt.Errorf("failed to read value: %w", err)
		}
	}
	if value == "" {
		return errors.New("a value is required")
	}

	if err := manager.Store(args[0], value); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Stored %s", args[0]))
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	manager, err := secretManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	secrets, err := manager.List()
	if err != nil {
		return err
	}

	format := report.FormatText
	if outputFormat != "" {
		format = outputFormat
	}
	reporter, err := report.New(ui.Stdout, format)
	if err != nil {
		return err
	}
	return reporter.Secrets(secrets)
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	manager, err := secretManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Deleted %s", args[0]))
	return nil
}
