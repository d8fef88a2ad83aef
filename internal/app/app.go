package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentiment-analyst/agents"
	"sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

// ErrQueueFull is returned when the concurrency limit is reached
var ErrQueueFull = errors.New("analysis queue full, too many concurrent requests - try again later")

// ErrReportNotFound is returned for unknown report IDs
var ErrReportNotFound = errors.New("report not found")

// PipelineInterface defines the analysis operations
type PipelineInterface interface {
	RunAnalysis(ctx context.Context, company string, lookbackDays, maxArticles int) (models.SentimentReport, error)
	Health(ctx context.Context) agents.HealthReport
}

// TickerCacheInterface exposes the resolved ticker cache
type TickerCacheInterface interface {
	Cached() []models.TickerRecord
}

// RateLimitInterface exposes the rate limiter state
type RateLimitInterface interface {
	Status() []models.RateLimitState
}

// App holds application dependencies using interfaces for testability
type App struct {
	cfg         *config.Config
	pipeline    PipelineInterface
	tickers     TickerCacheInterface
	limits      RateLimitInterface
	reports     *reportStore
	analysisSem chan struct{}
}

// New creates a new App
func New(cfg *config.Config, pipeline PipelineInterface, tickers TickerCacheInterface, limits RateLimitInterface) *App {
	return &App{
		cfg:         cfg,
		pipeline:    pipeline,
		tickers:     tickers,
		limits:      limits,
		reports:     newReportStore(defaultReportCapacity),
		analysisSem: make(chan struct{}, cfg.Analysis.ConcurrencyLimit),
	}
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// AnalyzeCompany runs one analysis. Zero lookbackDays or maxArticles use the
// configured defaults. source labels the caller in metrics (api, cli).
func (a *App) AnalyzeCompany(ctx context.Context, source, company string, lookbackDays, maxArticles int) (models.SentimentReport, error) {
	if a.pipeline == nil {
		return models.SentimentReport{}, fmt.Errorf("analysis pipeline not initialized")
	}

	observability.GetMetrics().RecordAnalysisRequest(source)

	if lookbackDays == 0 {
		lookbackDays = a.cfg.Analysis.LookbackDays
	}
	if maxArticles == 0 {
		maxArticles = a.cfg.Analysis.MaxArticles
	}

	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return models.SentimentReport{}, ErrQueueFull
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Analysis.TimeoutSeconds)*time.Second)
	defer cancel()

	report, err := a.pipeline.RunAnalysis(ctx, company, lookbackDays, maxArticles)
	if err != nil {
		return models.SentimentReport{}, err
	}

	a.reports.add(report)
	return report, nil
}

// Health returns provider availability
func (a *App) Health(ctx context.Context) agents.HealthReport {
	if a.pipeline == nil {
		return agents.HealthReport{Healthy: false, CheckedAt: time.Now().UTC()}
	}
	return a.pipeline.Health(ctx)
}

// Tickers returns every ticker resolved so far
func (a *App) Tickers() []models.TickerRecord {
	if a.tickers == nil {
		return []models.TickerRecord{}
	}
	return a.tickers.Cached()
}

// RateLimits returns the pacing state of each external service
func (a *App) RateLimits() []models.RateLimitState {
	if a.limits == nil {
		return []models.RateLimitState{}
	}
	return a.limits.Status()
}

// Reports returns up to limit recent reports, newest first
func (a *App) Reports(limit int) []models.SentimentReport {
	return a.reports.list(limit)
}

// ReportByID returns a recent report by its ID
func (a *App) ReportByID(id string) (models.SentimentReport, error) {
	parsed, err := ParseUUID(id)
	if err != nil {
		return models.SentimentReport{}, err
	}
	report, ok := a.reports.get(parsed)
	if !ok {
		return models.SentimentReport{}, ErrReportNotFound
	}
	return report, nil
}

// ParseUUID parses a report ID
func ParseUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid UUID: %v", models.ErrInvalidInput, err)
	}
	return parsed, nil
}

// AnalysisSemCapacity returns the capacity of the analysis semaphore (for testing)
func (a *App) AnalysisSemCapacity() int {
	return cap(a.analysisSem)
}
