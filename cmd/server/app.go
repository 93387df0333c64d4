package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/tracing"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/service/auth"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/usertask"
)

// engineConn is an open connection to the engine.
type engineConn interface {
	engine.Client
	engine.Prober
	Close() error
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// conn is the raw engine connection; client is conn with tracing.
	conn   engineConn
	client engine.Client

	jwtService auth.JWTService
	bridge     *bridge.Bridge

	// registry is nil when the task API is disabled.
	registry *usertask.Registry

	shutdownTracing tracing.ShutdownFunc
}

// newApplication creates a new application instance with all dependencies initialized.
// Spans are written to traceOut when tracing is enabled.
func newApplication(cfg *config.Config, logger *slog.Logger, conn engineConn, traceOut io.Writer) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		conn:   conn,
	}

	tp, shutdown, err := tracing.Setup(cfg.Tracing, traceOut)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	app.shutdownTracing = shutdown
	app.client = engine.WithTracing(conn, tracing.Tracer(tp))

	app.jwtService = auth.NewJWTService(cfg.Auth)
	logger.Info("JWT authentication service initialized",
		"auth_disabled", cfg.Auth.Disabled,
		"signing_key_present", cfg.Auth.JWTSecret != "")

	app.bridge = bridge.New(app.client, cfg.Engine, logger)

	if !cfg.Tasks.Disabled {
		app.registry = usertask.NewRegistry(app.client, cfg.Tasks, clock.New(), logger)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns when ctx is done or the server fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(ctx); err != nil {
		app.cleanup()
		return err
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// start waits for the engine and starts the task registry. An engine that is
// still unreachable after the startup wait is reported, not fatal. Dev mode
// skips the wait.
func (app *application) start(ctx context.Context) error {
	if wait := app.config.Engine.StartupWait; wait > 0 && !app.config.Server.DevMode {
		topology, err := engine.WaitReady(ctx, app.conn, wait, app.logger)
		if err != nil {
			app.logger.Warn("engine not reachable, serving anyway",
				"address", app.config.Engine.Address,
				"error", err)
		} else {
			app.logger.Info("engine ready",
				"gateway_version", topology.GatewayVersion,
				"cluster_size", topology.ClusterSize,
				"partitions", topology.PartitionsCount)
		}
	}

	if app.registry != nil {
		if err := app.registry.Start(ctx); err != nil {
			return fmt.Errorf("failed to start task registry: %w", err)
		}
		app.logger.Info("task registry started", "worker", app.registry.Worker())
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.registry != nil {
		app.registry.Stop()
	}

	if err := app.shutdownTracing(context.Background()); err != nil {
		app.logger.Error("Error flushing traces", "error", err)
	}

	if err := app.conn.Close(); err != nil {
		app.logger.Error("Error closing engine connection", "error", err)
	}

	app.logger.Info("Application shutdown completed")
}
