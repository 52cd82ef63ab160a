package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/api"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/catalog"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/config"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/image"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over MCP (stdio and streamable HTTP)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logs go to stderr: stdout is the MCP stdio transport.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	store, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing catalog", "error", err)
		}
	}()
	slog.Info("catalog opened", "path", cfg.Catalog.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Fetcher: &image.HTTPFetcher{Client: &http.Client{Timeout: cfg.Fetch.Timeout}},
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: api.NewHTTPHandler(mcpSrv),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("MCP stdio transport started")
		err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("HTTP transport listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
