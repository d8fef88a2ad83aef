// Package main provides a standalone HTTP server for E2E and UI testing.
// It serves the real API with every external provider replaced by the
// in-process mock server, so no credentials or network access are needed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentiment-analyst/config"
	"sentiment-analyst/e2e/mocks"
	"sentiment-analyst/internal/api"
	"sentiment-analyst/internal/app"
	"sentiment-analyst/observability"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	observability.InitMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}

	mockServer := mocks.NewMockServer()
	defer mockServer.Close()
	observability.Info("mock provider APIs started", "url", mockServer.URL())

	cfg := config.NewTestConfig()
	cfg.OpenAI.APIKey = "e2e-openai-key"
	cfg.OpenAI.BaseURL = mockServer.URL() + "/v1/"
	cfg.NewsAPI.APIKey = "e2e-news-key"
	cfg.NewsAPI.BaseURL = mockServer.URL() + "/v2"
	cfg.FMP.APIKey = "e2e-fmp-key"
	cfg.FMP.BaseURL = mockServer.URL() + "/api/v3"
	cfg.Analysis.EnrichProfile = true

	ctx := context.Background()

	application, err := app.NewFromConfig(ctx, cfg)
	if err != nil {
		observability.Fatal("failed to wire application", "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.Analysis.TimeoutSeconds+10) * time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("E2E test server stopped")
}
