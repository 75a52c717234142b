package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/health"
	"github.com/rpggio/agencyops/internal/metrics"
	"github.com/rpggio/agencyops/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stdout)

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()
	a, err := newApp(db, m, logger)
	if err != nil {
		return err
	}

	checker := health.NewChecker(logger)
	checker.RegisterPinger("database", db)

	serverCfg := transport.ServerConfig{
		ListenAddr:  cfg.Addr(),
		CORSOrigins: cfg.Server.CORSOrigins,
		CronSecret:  cfg.Cron.Secret,
	}
	if cfg.AuthEnabled() {
		issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		serverCfg.Verifier = issuer
	} else {
		logger.Warn().Msg("auth.jwt_secret is empty: every request acts as the system administrator")
	}
	if cfg.Cron.Secret == "" {
		logger.Warn().Msg("cron.secret is empty: cron endpoints are disabled")
	}

	server := transport.NewServer(serverCfg, a.HTTPServices(), checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info().
		Str("addr", serverCfg.ListenAddr).
		Str("db", cfg.DB.Path).
		Bool("auth", cfg.AuthEnabled()).
		Bool("slack", cfg.Notify.SlackWebhookURL != "").
		Msg("agencyops started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("agencyops stopped")
	return nil
}
