package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"sentiment-analyst/config"
	"sentiment-analyst/internal/app"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

// maxCompanyLength bounds the company name accepted by /api/analyze
const maxCompanyLength = 100

var companyPattern = regexp.MustCompile(`^[\p{L}\p{N} .,&'()\-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// AnalyzeRequest is the body of POST /api/analyze.
// Zero lookback_days or max_articles use the configured defaults.
type AnalyzeRequest struct {
	Company      string `json:"company"`
	LookbackDays int    `json:"lookback_days,omitempty"`
	MaxArticles  int    `json:"max_articles,omitempty"`
}

// ErrorResponse is the body of every failed API call.
// TraceID is set when tracing is enabled.
type ErrorResponse struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind"`
	TraceID string `json:"trace_id,omitempty"`
}

// HandleHealth returns provider availability and circuit breaker states
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := h.app.Health(r.Context())

	status := "ok"
	if !report.Healthy {
		status = "degraded"
	}

	h.jsonResponse(w, map[string]interface{}{
		"status":           status,
		"providers":        report.Providers,
		"checked_at":       report.CheckedAt,
		"circuit_breakers": services.GetGlobalRegistry().Status(),
	})
}

// HandleAnalyze runs a sentiment analysis for a company
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "http.analyze")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var req AnalyzeRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			err = fmt.Errorf("%w: malformed JSON body", models.ErrInvalidInput)
			h.errorResponse(ctx, w, err)
			return
		}
	} else if req, err = parseAnalyzeForm(r); err != nil {
		err = fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		h.errorResponse(ctx, w, err)
		return
	}

	req.Company = strings.TrimSpace(req.Company)
	if err = h.ValidateAnalyzeRequest(req); err != nil {
		err = fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		h.errorResponse(ctx, w, err)
		return
	}

	ctx = observability.ContextWithRequestID(ctx, requestID(r))
	report, err := h.app.AnalyzeCompany(ctx, "api", req.Company, req.LookbackDays, req.MaxArticles)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}

	h.jsonResponse(w, report)
}

// parseAnalyzeForm reads a form-encoded analyze request. Empty numeric
// fields mean the configured default.
func parseAnalyzeForm(r *http.Request) (AnalyzeRequest, error) {
	if err := r.ParseForm(); err != nil {
		return AnalyzeRequest{}, fmt.Errorf("malformed form body")
	}
	req := AnalyzeRequest{Company: r.FormValue("company")}

	var err error
	if req.LookbackDays, err = formInt(r, "lookback_days"); err != nil {
		return AnalyzeRequest{}, err
	}
	if req.MaxArticles, err = formInt(r, "max_articles"); err != nil {
		return AnalyzeRequest{}, err
	}
	return req, nil
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return n, nil
}

// HandleGetTickers returns every ticker resolved so far
func (h *Handler) HandleGetTickers(w http.ResponseWriter, r *http.Request) {
	tickers := h.app.Tickers()
	h.jsonResponse(w, map[string]interface{}{
		"tickers": tickers,
		"count":   len(tickers),
	})
}

// HandleGetRateLimits returns the pacing state of each external service
func (h *Handler) HandleGetRateLimits(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.RateLimits())
}

// HandleGetReports returns recent reports
func (h *Handler) HandleGetReports(w http.ResponseWriter, r *http.Request) {
	reports := h.app.Reports(h.ParseLimitParam(r, 20))
	h.jsonResponse(w, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// HandleGetReport returns a single recent report by ID
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.ReportByID(chi.URLParam(r, "id"))
	if err != nil {
		h.errorResponse(r.Context(), w, err)
		return
	}
	h.jsonResponse(w, report)
}

// ValidateAnalyzeRequest checks the company name and optional window
func (h *Handler) ValidateAnalyzeRequest(req AnalyzeRequest) error {
	if req.Company == "" {
		return fmt.Errorf("company is required")
	}
	if utf8.RuneCountInString(req.Company) > maxCompanyLength {
		return fmt.Errorf("company too long (max %d characters)", maxCompanyLength)
	}
	if !companyPattern.MatchString(req.Company) {
		return fmt.Errorf("invalid company format (letters, digits, spaces and .,&'()- only)")
	}

	lookback, maxArticles := req.LookbackDays, req.MaxArticles
	if lookback == 0 {
		lookback = h.cfg.Analysis.LookbackDays
	}
	if maxArticles == 0 {
		maxArticles = h.cfg.Analysis.MaxArticles
	}
	return config.ValidateWindow(lookback, maxArticles)
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// StatusForError maps an analysis error to an HTTP status code
func StatusForError(err error) int {
	var extErr *models.ExternalServiceError
	var analysisErr *models.AnalysisError
	switch {
	case errors.Is(err, app.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, app.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &analysisErr), errors.As(err, &extErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(ctx context.Context, w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: models.ErrorKind(err)}
	if traceID, _, ok := observability.TraceFields(ctx); ok {
		resp.TraceID = traceID
	}
	switch {
	case errors.Is(err, app.ErrQueueFull):
		resp.Kind = "queue_full"
	case errors.Is(err, app.ErrReportNotFound):
		resp.Kind = "not_found"
	}

	var pipeErr *models.PipelineError
	if errors.As(err, &pipeErr) {
		resp.Stage = string(pipeErr.Stage)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForError(err))
	json.NewEncoder(w).Encode(resp)
}
