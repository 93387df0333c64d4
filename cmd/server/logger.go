package main

import (
	"fmt"
	"log/slog"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
)

// setupAppLogger configures the application logger from the server settings
// and installs it as the default logger.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return l, nil
}
