package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tally/internal/backend"
	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/log"
)

// app carries what every subcommand shares: flags, config and the opened
// backend.
type app struct {
	backendType string
	dbPath      string
	logLevel    string

	cfg    *config.Config
	logger *log.Logger
	result *backend.BackendResult
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tally",
		Short:         "Track subscriptions and see where the money goes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.backendType, "backend", "", fmt.Sprintf("data backend %v (env DATA_BACKEND)", backend.GetBackendTypeStrings()))
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path (env SQLITE_DB_PATH)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")

	root.AddCommand(
		newSpendCmd(a),
		newDrillCmd(a),
		newUpcomingCmd(a),
		newSubscriptionsCmd(a),
		newItemsCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads .env and the environment config, applies flag overrides and
// installs the logger. Logs go to stderr so command output stays clean.
func (a *app) setup(cmd *cobra.Command) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(func(c *config.Config) {
		if a.backendType != "" {
			c.DataBackend = a.backendType
		}
		if a.dbPath != "" {
			c.SQLiteDBPath = a.dbPath
		}
		if a.logLevel != "" {
			c.LogLevel = a.logLevel
		}
	})
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel, os.Stderr)
	return nil
}

// open creates the configured backend once per process.
func (a *app) open(ctx context.Context) (*backend.BackendResult, error) {
	if a.result != nil {
		return a.result, nil
	}

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(a.logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	if bcfg.Type == backend.MemoryBackend {
		a.logger.Info("Memory backend keeps nothing between runs")
	}
	a.result = result
	return result, nil
}

func (a *app) close() error {
	if a.result == nil {
		return nil
	}
	err := a.result.Close()
	a.result = nil
	return err
}
