package main

import (
	"github.com/spf13/cobra"

	"imgprobe/pkg/config"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/tokenstore"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with the catalog token store",
}

var tokenResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Read the current bearer token from the token store",
	Long: `Read the most recent bearer token from the token store and print it
masked, along with the request that was made. Useful to check the token
store settings before running catalog lookups.`,
	Args: cobra.NoArgs,
	RunE: runTokenResolve,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenResolveCmd)
}

func runTokenResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.fillSecrets()

	resolver := tokenstore.NewResolver(a.client, tokenstore.OptionsFromConfig(a.cfg), a.log)
	token, err := resolver.Resolve(cmd.Context())
	if err != nil {
		return err
	}

	return a.reporter.Pairs([]lookup.Field{
		{Name: "url", Value: resolver.RequestURL()},
		{Name: "table", Value: a.cfg.TokenStore.Table},
		{Name: "field", Value: a.cfg.TokenStore.Field},
		{Name: "token", Value: config.MaskSecret(token)},
	})
}
