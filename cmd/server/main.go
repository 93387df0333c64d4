// Package main implements the entry point for the Camunda wrapper, an HTTP
// gateway in front of a Zeebe cluster. It exposes synchronous worker calls,
// workflow and form starts, and the active user task API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
)

func main() {
	if err := run(); err != nil {
		slog.Error("camunda wrapper stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the application together and serves until SIGINT or SIGTERM.
func run() error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := engine.Dial(cfg.Engine, logger)
	if err != nil {
		return fmt.Errorf("failed to dial engine: %w", err)
	}

	app, err := newApplication(cfg, logger, conn, os.Stdout)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}
