// Package e2e provides end-to-end testing infrastructure for sentiment-analyst.
// The real providers are wired against an in-process mock of the external APIs.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sentiment-analyst/config"
	"sentiment-analyst/e2e/mocks"
	"sentiment-analyst/internal/api"
	"sentiment-analyst/internal/app"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	app        *app.App
	router     http.Handler
	config     *config.Config
	metrics    *observability.Metrics

	prevMetrics  *observability.Metrics
	prevBreakers *services.CircuitBreakerRegistry
}

// NewTestHarness creates a new test harness. Call Setup before use.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup starts the mock server and wires the application against it.
// Optional modifiers adjust the configuration before wiring.
func (h *TestHarness) Setup(modify ...func(*config.Config)) error {
	h.mockServer = mocks.NewMockServer()
	h.config = h.createTestConfig()
	for _, fn := range modify {
		fn(h.config)
	}

	// Fresh metrics and circuit breakers keep scenarios independent
	h.prevMetrics = observability.GetMetrics()
	h.metrics = observability.NewMetrics(prometheus.NewRegistry())
	observability.SetMetrics(h.metrics)
	h.prevBreakers = services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	var err error
	h.app, err = app.NewFromConfig(h.ctx, h.config)
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)
	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
	if h.prevMetrics != nil {
		observability.SetMetrics(h.prevMetrics)
	}
	if h.prevBreakers != nil {
		services.SetGlobalRegistry(h.prevBreakers)
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// Metrics returns the metrics instance scoped to this harness.
func (h *TestHarness) Metrics() *observability.Metrics {
	return h.metrics
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(h.ctx)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() *config.Config {
	mockURL := h.mockServer.URL()

	cfg := config.NewTestConfig()
	cfg.OpenAI.APIKey = "test-openai-key"
	cfg.OpenAI.BaseURL = mockURL + "/v1/"
	cfg.NewsAPI.APIKey = "test-news-key"
	cfg.NewsAPI.BaseURL = mockURL + "/v2"
	cfg.FMP.APIKey = "test-fmp-key"
	cfg.FMP.BaseURL = mockURL + "/api/v3"
	cfg.HTTP.ClientTimeoutSeconds = 5
	cfg.Analysis.TimeoutSeconds = 30
	cfg.Analysis.EnrichProfile = true

	return cfg
}
