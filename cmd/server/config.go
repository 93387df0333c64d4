package main

import (
	"fmt"
	"log/slog"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
)

// loadAppConfig loads the application configuration from environment variables or config file.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"engine_address", cfg.Engine.Address)

	if cfg.Auth.Disabled {
		slog.Warn("Authentication is disabled")
	}
	if cfg.Tasks.Disabled {
		slog.Info("Task API is disabled")
	}

	return cfg, nil
}
