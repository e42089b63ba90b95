package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"imgprobe/pkg/auth"
	"imgprobe/pkg/config"
	"imgprobe/pkg/logger"
	"imgprobe/pkg/lookup"
	"imgprobe/pkg/probe"
	"imgprobe/pkg/report"
	"imgprobe/pkg/storage"
	"imgprobe/pkg/ui"
)

// secretManager opens the secret stores; replaced in tests
var secretManager = func() (*auth.Manager, error) { return auth.NewManager(prompter) }

// app bundles what every lookup command needs
type app struct {
	cfg      *config.Config
	log      logger.Logger
	client   *probe.Client
	reporter *report.Reporter
	// dumps also receives each result as JSON when a dump dir is set
	dumps *storage.Manager
}

// newApp loads configuration and builds the shared HTTP client and reporter
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ui.SetColor(!cfg.Output.NoColor)
	ui.SetQuietMode(cfg.Output.Quiet)

	opts := probe.OptionsFromConfig(cfg, log)
	if cfg.Output.DumpDir != "" {
		dumps, err := storage.NewManager(cfg.Output.DumpDir)
		if err != nil {
			return nil, err
		}
		opts.Dumps = dumps
		log.WithField("dir", dumps.GetOutputDir()).Debug("Dumping raw exchanges")
	}

	reporter, err := report.New(ui.Stdout, cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		client:   probe.NewClient(opts, log),
		reporter: reporter,
		dumps:    opts.Dumps,
	}, nil
}

// fillSecrets takes catalog and token store keys from the secret stores
// when configuration left them empty.
func (a *app) fillSecrets() {
	if a.cfg.Catalog.APIKey != "" && a.cfg.TokenStore.ServiceKey != "" {
		return
	}

	manager, err := secretManager()
	if err != nil {
		a.log.WithError(err).Debug("Secret stores unavailable")
		return
	}
	if a.cfg.Catalog.APIKey == "" {
		a.cfg.Catalog.APIKey = manager.Value(auth.SecretCatalogAPIKey)
	}
	if a.cfg.TokenStore.ServiceKey == "" {
		a.cfg.TokenStore.ServiceKey = manager.Value(auth.SecretServiceKey)
	}
}

// finish renders results and turns any failed lookup into errLookupFailed
func (a *app) finish(results ...*lookup.Result) error {
	var err error
	if len(results) == 1 {
		err = a.reporter.Result(results[0])
	} else {
		err = a.reporter.Results(results)
	}
	if err != nil {
		return err
	}
	failed := false
	for _, res := range results {
		a.saveResult(res)
		if res.Failed() {
			failed = true
		}
	}
	if failed {
		return errLookupFailed
	}
	return nil
}

// saveResult writes res next to the raw exchanges it came from
func (a *app) saveResult(res *lookup.Result) {
	if a.dumps == nil {
		return
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(res, "", "  ")
	if err != nil {
		a.log.WithError(err).Warn("failed to encode result")
		return
	}

	name := a.dumps.NextName(fmt.Sprintf("%s-%s-%s", res.Provider, res.Operation, res.Reference), "json")
	if _, err := a.dumps.WriteString(name, string(data)+"\n"); err != nil {
		a.log.WithError(err).Warn("failed to write result")
	}
}
