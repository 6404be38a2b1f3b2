// Package commands implements the monthwise CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Staniell/MonthWise/internal/buildinfo"
	"github.com/Staniell/MonthWise/internal/config"
	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/storage/sqlite"
	"github.com/Staniell/MonthWise/pkg/logging"
)

// app is the composition root shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	metricsOut string
	logLevel   string

	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	engine   *sqlite.Engine
	logs     io.Closer
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "monthwise",
		Short:   "Local-first monthly allowance and expense tracker",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to monthwise.yaml")
	flags.StringVar(&a.dbPath, "db", "", "database file (overrides config and "+config.EnvDBPath+")")
	flags.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile on exit")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newSummaryCommand(a),
		newProfileCommand(a),
	)

	return rootCmd
}

func (a *app) setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.metricsOut != "" {
		cfg.Metrics.TextfilePath = a.metricsOut
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logs, err = logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	a.engine = sqlite.NewEngine(cfg.Database.Path, sqlite.WithMetrics(a.metrics))
	return nil
}

func (a *app) store(ctx context.Context) (*sqlite.Store, error) {
	s, err := a.engine.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", a.cfg.Database.Path, err)
	}
	return s, nil
}

func (a *app) shutdown() error {
	var firstErr error
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			firstErr = err
		}
	}
	if a.cfg != nil && a.cfg.Metrics.TextfilePath != "" {
		err := prometheus.WriteToTextfile(a.cfg.Metrics.TextfilePath, a.registry)
		switch {
		case err != nil && firstErr == nil:
			firstErr = fmt.Errorf("writing metrics: %w", err)
		case err == nil:
			slog.Debug("Metrics written", "path", a.cfg.Metrics.TextfilePath)
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return firstErr
}
