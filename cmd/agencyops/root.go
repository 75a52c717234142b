package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpggio/agencyops/internal/app"
	"github.com/rpggio/agencyops/internal/config"
	"github.com/rpggio/agencyops/internal/domain/retainer"
	"github.com/rpggio/agencyops/internal/domain/workload"
	"github.com/rpggio/agencyops/internal/metrics"
	"github.com/rpggio/agencyops/internal/notify"
	"github.com/rpggio/agencyops/internal/sqlite"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agencyops",
	Short: "Agency task tracking and retainer reporting",
	Long: `agencyops tracks client work: tasks with dependencies, logged time and
monthly retainer usage. It serves a JSON API and Model Context Protocol tools.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $AGENCYOPS_CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(alertsCmd)
}

// newLogger builds the root logger. Console format is for local use.
func newLogger(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.Log.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w})
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		logger = logger.Level(level)
	}
	log.Logger = logger
	return logger
}

// openDB opens the configured database and applies the schema.
func openDB() (*sqlite.DB, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path, sqlite.Options{BusyTimeout: cfg.DB.BusyTimeout})
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureDBDir(path string) error {
	if path == sqlite.MemoryPath || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// newApp wires the services from the loaded configuration.
func newApp(db *sqlite.DB, m *metrics.Metrics, logger zerolog.Logger) (*app.App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	var notifier interface {
		retainer.Notifier
		workload.DueNotifier
	} = notify.NewLog(logger)
	if cfg.Notify.SlackWebhookURL != "" {
		notifier = notify.NewSlack(cfg.Notify.SlackWebhookURL, cfg.Server.AppURL, logger)
	}
	return app.New(db, app.Options{
		Location:          loc,
		DefaultHourlyRate: cfg.Billing.DefaultHourlyRate,
		ReportConcurrency: cfg.Retainer.ReportConcurrency,
		AlertThresholds:   cfg.Retainer.AlertThresholds,
		Notifier:          notifier,
		DueNotifier:       notifier,
		Metrics:           m,
	}, logger), nil
}
