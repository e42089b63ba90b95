package main

import (
	"github.com/spf13/cobra"

	"imgprobe/pkg/marketplace"
	"imgprobe/pkg/tokenstore"
)

var (
	catalogToken     string
	catalogQuery     string
	variantsPageSize int
	searchPageSize   int
	probeSuffixes    []string
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Look products up on the authenticated catalog API",
	Long: `Query the marketplace's catalog API for product images.

Every request carries the catalog API key and a bearer token. The token is
read from the token store unless --token is given. Keys come from the
config file, IMGPROBE_* environment variables or 'imgprobe keys set'.`,
}

var catalogProductCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Fetch a catalog product",
	Example: `  imgprobe catalog product 5e6a1e57-1c7d-435a-82bd-5666a13560fe
  imgprobe catalog product 5e6a1e57-1c7d-435a-82bd-5666a13560fe --query includes=media`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogProduct,
}

var catalogVariantsCmd = &cobra.Command{
	Use:   "variants <id>",
	Short: "List a product's variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogVariants,
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog and report the closest match",
	Example: `  imgprobe catalog search DZ5485-612
  imgprobe catalog search "jordan 1 chicago" --page-size 10`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogSearch,
}

var catalogBrowseCmd = &cobra.Command{
	Use:   "browse <query>",
	Short: "Query the browse endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogBrowse,
}

var catalogV1Cmd = &cobra.Command{
	Use:   "v1 <id>",
	Short: "Fetch a product from the legacy v1 endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogV1,
}

var catalogProbeCmd = &cobra.Command{
	Use:   "probe <id>",
	Short: "Try query suffixes on a product and report which mention images",
	Long: `Request the same product once per query suffix, one at a time and paced
by the rate limit settings, and report whether each response mentions
media or images.`,
	Example: `  imgprobe catalog probe 5e6a1e57-1c7d-435a-82bd-5666a13560fe
  imgprobe catalog probe 5e6a1e57-1c7d-435a-82bd-5666a13560fe --suffix includes=media --suffix expand=all`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogProbe,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogProductCmd, catalogVariantsCmd, catalogSearchCmd, catalogBrowseCmd, catalogV1Cmd, catalogProbeCmd)

	catalogCmd.PersistentFlags().StringVar(&catalogToken, "token", "", "bearer token to use instead of the token store")

	catalogProductCmd.Flags().StringVar(&catalogQuery, "query", "", "query string appended to the product URL")
	catalogVariantsCmd.Flags().IntVar(&variantsPageSize, "page-size", 0, "variants per page (default from config)")
	catalogSearchCmd.Flags().IntVar(&searchPageSize, "page-size", marketplace.DefaultSearchPageSize, "results per page")
	catalogProbeCmd.Flags().StringSliceVar(&probeSuffixes, "suffix", nil, "query suffix to try (repeatable, default a built-in set)")
}

// newCatalog builds a catalog client whose credentials come from --token
// or the token store.
func newCatalog(a *app) *marketplace.Catalog {
	a.fillSecrets()

	var creds tokenstore.Source
	if catalogToken != "" {
		creds = tokenstore.Static{Token: catalogToken, APIKey: a.cfg.Catalog.APIKey}
	} else {
		creds = tokenstore.NewResolver(a.client, tokenstore.OptionsFromConfig(a.cfg), a.log)
	}
	return marketplace.NewCatalog(a.client, creds, marketplace.CatalogOptionsFromConfig(a.cfg), a.log)
}

func runCatalogProduct(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.finish(newCatalog(a).Product(cmd.Context(), args[0], catalogQuery))
}

func runCatalogVariants(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.finish(newCatalog(a).Variants(cmd.Context(), args[0], variantsPageSize))
}

func runCatalogSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.finish(newCatalog(a).Search(cmd.Context(), args[0], searchPageSize))
}

func runCatalogBrowse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.finish(newCatalog(a).Browse(cmd.Context(), args[0]))
}

func runCatalogV1(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return a.finish(newCatalog(a).ProductV1(cmd.Context(), args[0]))
}

func runCatalogProbe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	suffixes := probeSuffixes
	if len(suffixes) == 0 {
		suffixes = marketplace.DefaultSuffixes
	}
	outcomes, probeErr := newCatalog(a).Probe(cmd.Context(), args[0], suffixes)
	if len(outcomes) > 0 {
		if err := a.reporter.Probe(args[0], outcomes); err != nil {
			return err
		}
	}
	if probeErr != nil {
		return probeErr
	}
	if allUnreachable(outcomes) {
		return errLookupFailed
	}
	return nil
}

// allUnreachable reports whether no suffix got an HTTP response
func allUnreachable(outcomes []marketplace.ProbeOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o.Error == "" {
			return false
		}
	}
	return true
}
