package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rpggio/agencyops/internal/auth"
	"github.com/rpggio/agencyops/internal/mcp"
	"github.com/rpggio/agencyops/internal/metrics"
)

var mcpTransport string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Model Context Protocol tools over stdio or streamable HTTP",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "", "stdio or http (default from config)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport := cfg.MCP.Transport
	if mcpTransport != "" {
		transport = mcpTransport
	}

	// Stdout carries JSON-RPC in stdio mode.
	logger := newLogger(os.Stderr)

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

	mcpCfg := mcp.Config{
		Services: a.MCPServices(),
		Identity: auth.System,
		Recorder: m,
		Logger:   logger,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch transport {
	case "stdio":
		if cfg.MCP.As != "" {
			u, err := a.Users.Lookup(ctx, cfg.MCP.As)
			if err != nil {
				return fmt.Errorf("resolving mcp.as: %w", err)
			}
			mcpCfg.Identity = auth.Context{UserID: u.ID, Role: u.Role}
		}
		logger.Info().Str("user_id", mcpCfg.Identity.UserID).Msg("starting stdio transport")
		return mcp.NewServer(mcpCfg).Run(ctx, &sdkmcp.StdioTransport{})
	case "http":
		if !cfg.AuthEnabled() {
			return errors.New("mcp over http requires auth.jwt_secret")
		}
		issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		mcpCfg.Verifier = issuer
		return runMCPHTTP(ctx, mcp.NewServer(mcpCfg), logger)
	default:
		return fmt.Errorf("unknown mcp transport %q", transport)
	}
}

func runMCPHTTP(ctx context.Context, server *sdkmcp.Server, logger zerolog.Logger) error {
	handler := mcp.NewHTTPHandler(server, 30*time.Minute)
	router := http.NewServeMux()
	router.Handle("/mcp", handler)
	router.Handle("/mcp/", handler)

	httpServer := &http.Server{
		Addr:              cfg.MCP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.MCP.Addr).Msg("mcp server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
