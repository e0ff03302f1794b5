package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"agent-host/internal/agent"
	"agent-host/internal/api"
	"agent-host/internal/card"
	"agent-host/internal/config"
	"agent-host/internal/mcp"
	"agent-host/internal/metrics"
	"agent-host/internal/rpc"
	"agent-host/internal/storage"
	"agent-host/internal/task"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the A2A HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer db.Close()

	if err := agent.Seed(ctx, db, cfg); err != nil {
		return err
	}
	logger.Info("seeded agents", "count", len(cfg.Agents), "default", cfg.DefaultAgentID)

	catalog := mcp.NewCatalog(mcp.WithLogger(logger.WithPrefix("mcp")))
	defer catalog.Close()

	registry := agent.NewRegistry(db,
		agent.WithHistory(db),
		agent.WithTools(catalog),
		agent.WithMaxHistory(cfg.MaxHistory),
		agent.WithLogger(logger.WithPrefix("agent")),
	)

	m := metrics.New()
	executor := task.NewExecutor(task.NewStore(), registry,
		task.WithTimeout(cfg.TaskTimeout),
		task.WithObserver(m),
		task.WithLogger(logger.WithPrefix("task")),
	)
	dispatcher := rpc.NewDispatcher(executor,
		rpc.WithObserver(m),
		rpc.WithLogger(logger.WithPrefix("rpc")),
	)

	server := api.New(cfg, dispatcher, card.NewResolver(db),
		api.WithMetrics(m.Handler()),
		api.WithLogger(logger.WithPrefix("api")),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down server")
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", "err", err)
		}
	}()

	logger.Info("starting agent host", "addr", cfg.Addr(), "public_url", cfg.PublicURL)
	return server.Start()
}
