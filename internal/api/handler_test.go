package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"sentiment-analyst/agents"
	"sentiment-analyst/config"
	"sentiment-analyst/internal/app"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

type mockPipeline struct {
	err          error
	lastCompany  string
	lastLookback int
	lastMax      int
}

func (m *mockPipeline) RunAnalysis(ctx context.Context, company string, lookbackDays, maxArticles int) (models.SentimentReport, error) {
	m.lastCompany = company
	m.lastLookback = lookbackDays
	m.lastMax = maxArticles
	if m.err != nil {
		return models.SentimentReport{}, m.err
	}
	report, err := models.NewSentimentReport(models.ReportParams{
		Company:          company,
		OverallSentiment: models.SentimentPositive,
		PositiveCount:    1,
		ConfidenceScore:  0.7,
		BullCase:         []string{"Growth"},
		Articles:         []models.Article{{Title: "Acme rises", URL: "https://example.com/a"}},
		ParseStatus:      models.ParseStatusSuccess,
	})
	return report.WithTicker("ACME"), err
}

func (m *mockPipeline) Health(ctx context.Context) agents.HealthReport {
	return agents.HealthReport{
		Healthy:   m.err == nil,
		Providers: []agents.ProviderHealth{{Name: "mock", Role: "llm", Available: m.err == nil, CircuitState: "closed"}},
		CheckedAt: time.Now().UTC(),
	}
}

type mockTickers []models.TickerRecord

func (m mockTickers) Cached() []models.TickerRecord { return m }

type mockLimits []models.RateLimitState

func (m mockLimits) Status() []models.RateLimitState { return m }

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

// testRouter creates a Chi router around an App backed by the given pipeline
func testRouter(pipeline *mockPipeline) (http.Handler, *app.App) {
	cfg := testConfig()
	a := app.New(cfg, pipeline,
		mockTickers{{CompanyName: "Acme Corporation", Symbol: "ACME"}},
		mockLimits{{Service: "llm", MinInterval: 4 * time.Second}},
	)
	return NewRouter(NewHandler(a, cfg), cfg), a
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Analyze_Success(t *testing.T) {
	pipeline := &mockPipeline{}
	router, _ := testRouter(pipeline)

	w := doJSON(t, router, http.MethodPost, "/api/analyze", `{"company":"Acme Corp","lookback_days":7,"max_articles":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var report models.SentimentReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Ticker != "ACME" || report.OverallSentiment != models.SentimentPositive {
		t.Errorf("unexpected report %+v", report)
	}
	if pipeline.lastCompany != "Acme Corp" || pipeline.lastLookback != 7 || pipeline.lastMax != 10 {
		t.Errorf("pipeline got %q %d %d", pipeline.lastCompany, pipeline.lastLookback, pipeline.lastMax)
	}
}

func TestHandler_Analyze_FormDefaults(t *testing.T) {
	pipeline := &mockPipeline{}
	router, _ := testRouter(pipeline)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("company=Acme"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	cfg := testConfig()
	if pipeline.lastLookback != cfg.Analysis.LookbackDays || pipeline.lastMax != cfg.Analysis.MaxArticles {
		t.Errorf("pipeline got %d/%d, want configured defaults", pipeline.lastLookback, pipeline.lastMax)
	}
}

func TestHandler_Analyze_FormInvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lookback not a number", "company=Acme&lookback_days=abc"},
		{"max not a number", "company=Acme&max_articles=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{}
			router, _ := testRouter(pipeline)

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Kind != "invalid_input" {
				t.Errorf("kind = %q, want invalid_input", resp.Kind)
			}
			if pipeline.lastCompany != "" {
				t.Error("pipeline should not run for invalid requests")
			}
		})
	}
}

func TestHandler_Analyze_ErrorCarriesTraceID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	observability.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	defer observability.SetTracerProvider(nil)

	pipeline := &mockPipeline{err: &models.PipelineError{Stage: models.StageFetching, Cause: &models.ExternalServiceError{Provider: "newsapi", Op: "search", Err: errors.New("boom")}}}
	router, _ := testRouter(pipeline)

	w := doJSON(t, router, http.MethodPost, "/api/analyze", `{"company":"Acme"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TraceID == "" {
		t.Fatal("expected trace_id in error body")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "http.analyze" {
		t.Fatalf("spans = %v, want one http.analyze span", spans)
	}
	if got := spans[0].SpanContext.TraceID().String(); got != resp.TraceID {
		t.Errorf("trace_id = %s, span trace = %s", resp.TraceID, got)
	}
}

func TestHandler_Analyze_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"company":`},
		{"missing company", `{"lookback_days":7}`},
		{"bad characters", `{"company":"<script>"}`},
		{"too long", `{"company":"` + strings.Repeat("a", 101) + `"}`},
		{"lookback out of range", `{"company":"Acme","lookback_days":31}`},
		{"max out of range", `{"company":"Acme","max_articles":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{}
			router, _ := testRouter(pipeline)

			w := doJSON(t, router, http.MethodPost, "/api/analyze", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}

			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Kind != "invalid_input" {
				t.Errorf("kind = %q, want invalid_input", resp.Kind)
			}
			if pipeline.lastCompany != "" {
				t.Error("pipeline should not run for invalid requests")
			}
		})
	}
}

func TestHandler_Analyze_PipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStage  string
		wantKind   string
	}{
		{
			name:       "ticker not found",
			err:        &models.PipelineError{Stage: models.StageResolving, Cause: &models.NotFoundError{Query: "ZZZ"}},
			wantStatus: http.StatusNotFound,
			wantStage:  "resolving",
			wantKind:   "not_found",
		},
		{
			name:       "news provider down",
			err:        &models.PipelineError{Stage: models.StageFetching, Cause: &models.ExternalServiceError{Provider: "newsapi", Op: "search_articles", StatusCode: 401, Err: errors.New("bad key")}},
			wantStatus: http.StatusBadGateway,
			wantStage:  "fetching",
			wantKind:   "external_service",
		},
		{
			name:       "llm failure",
			err:        &models.PipelineError{Stage: models.StageAnalyzing, Cause: &models.AnalysisError{Provider: "openai", Err: errors.New("quota")}},
			wantStatus: http.StatusBadGateway,
			wantStage:  "analyzing",
			wantKind:   "analysis_error",
		},
		{
			name:       "timeout",
			err:        &models.PipelineError{Stage: models.StageFetching, Cause: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
			wantStage:  "fetching",
			wantKind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := testRouter(&mockPipeline{err: tt.err})

			w := doJSON(t, router, http.MethodPost, "/api/analyze", `{"company":"Acme"}`)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", resp.Stage, tt.wantStage)
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.Error == "" {
				t.Error("error message should be set")
			}
		})
	}
}

func TestHandler_Reports(t *testing.T) {
	router, _ := testRouter(&mockPipeline{})

	w := doJSON(t, router, http.MethodPost, "/api/analyze", `{"company":"Acme"}`)
	var created models.SentimentReport
	json.NewDecoder(w.Body).Decode(&created)

	w = doJSON(t, router, http.MethodGet, "/api/reports/"+created.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/reports?limit=5", "")
	var list struct {
		Count int `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&list)
	if list.Count != 1 {
		t.Errorf("count = %d, want 1", list.Count)
	}

	w = doJSON(t, router, http.MethodGet, "/api/reports/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/reports/7f1c2a57-1f7e-4a40-9a43-0b2c5b8f0e11", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
}

func TestHandler_HealthTickersRateLimits(t *testing.T) {
	router, _ := testRouter(&mockPipeline{})

	w := doJSON(t, router, http.MethodGet, "/api/health", "")
	var health map[string]interface{}
	json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "ok" {
		t.Errorf("health status = %v", health["status"])
	}
	if _, ok := health["circuit_breakers"]; !ok {
		t.Error("health should include circuit breakers")
	}

	w = doJSON(t, router, http.MethodGet, "/api/tickers", "")
	var tickers struct {
		Tickers []models.TickerRecord `json:"tickers"`
		Count   int                   `json:"count"`
	}
	json.NewDecoder(w.Body).Decode(&tickers)
	if tickers.Count != 1 || tickers.Tickers[0].Symbol != "ACME" {
		t.Errorf("tickers = %+v", tickers)
	}

	w = doJSON(t, router, http.MethodGet, "/api/ratelimits", "")
	var limits []models.RateLimitState
	json.NewDecoder(w.Body).Decode(&limits)
	if len(limits) != 1 || limits[0].MinInterval != 4*time.Second {
		t.Errorf("ratelimits = %+v", limits)
	}
}

func TestHandler_HealthDegraded(t *testing.T) {
	router, _ := testRouter(&mockPipeline{err: errors.New("down")})

	w := doJSON(t, router, http.MethodGet, "/api/health", "")
	var health map[string]interface{}
	json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "degraded" {
		t.Errorf("health status = %v, want degraded", health["status"])
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{app.ErrQueueFull, http.StatusTooManyRequests},
		{models.ErrInvalidInput, http.StatusBadRequest},
		{&models.NotFoundError{Query: "x"}, http.StatusNotFound},
		{app.ErrReportNotFound, http.StatusNotFound},
		{&models.ExternalServiceError{Provider: "x", Err: errors.New("y")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRouter_MetricsAndCORS(t *testing.T) {
	router, _ := testRouter(&mockPipeline{})

	w := doJSON(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodOptions, "/api/analyze", "")
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("CORS header = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
