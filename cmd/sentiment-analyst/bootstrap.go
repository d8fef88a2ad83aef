package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"sentiment-analyst/config"
	"sentiment-analyst/internal/app"
	"sentiment-analyst/observability"
)

// runtime holds everything the commands need after startup
type runtime struct {
	cfg *config.Config
	app *app.App
}

// bootstrap loads configuration, configures observability and wires the
// analysis pipeline from the selected providers
func bootstrap(ctx context.Context) (*runtime, error) {
	if err := godotenv.Load(); err != nil {
		// Environment variables may still be set directly
		observability.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	observability.Configure(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	observability.InitMetrics()
	if err := observability.InitTracing(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, version, os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		observability.Warn("provider credentials not configured", "missing", missing)
	}

	application, err := app.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, app: application}, nil
}
