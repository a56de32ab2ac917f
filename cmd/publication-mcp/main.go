package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/publication-rag/app"
	"github.com/upb/publication-rag/config"
	mcpserver "github.com/upb/publication-rag/internal/mcp"
	"github.com/upb/publication-rag/internal/observability"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "publication-mcp: %v\n", err)
		os.Exit(1)
	}
}

// run serves the publication tools until ctx is cancelled. Logs go to
// stderr so stdout carries only protocol frames.
func run(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Error("failed to close dependencies", zap.Error(err))
		}
	}()

	server, err := mcpserver.NewServer(deps.PublicationService, cfg.Retrieval.MaxTopK, logger)
	if err != nil {
		return err
	}

	logger.Info("starting MCP server",
		zap.String("transport", cfg.MCP.Transport),
		zap.String("version", mcpserver.Version))

	if err := server.Run(ctx, cfg.MCP.Transport, cfg.MCP.Addr); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
