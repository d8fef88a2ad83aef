package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

// Orchestrator drives one analysis through resolving, fetching and analyzing.
// It never retries; the first fatal error ends the run.
type Orchestrator struct {
	resolver *TickerResolver
	fetcher  *NewsFetcher
	analyzer *SentimentAnalyzer

	enrichProfile bool
	healthCache   *HealthCache
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithProfileEnrichment attaches the company profile to each report
func WithProfileEnrichment(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.enrichProfile = enabled
	}
}

// WithHealthCacheTTL sets how long a health report is reused
func WithHealthCacheTTL(ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.healthCache = NewHealthCache(ttl)
	}
}

// NewOrchestrator wires the pipeline components together
func NewOrchestrator(resolver *TickerResolver, fetcher *NewsFetcher, analyzer *SentimentAnalyzer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		resolver:    resolver,
		fetcher:     fetcher,
		analyzer:    analyzer,
		healthCache: NewHealthCache(DefaultHealthCacheTTL),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolver returns the ticker resolver, whose cache is shared by all runs
func (o *Orchestrator) Resolver() *TickerResolver {
	return o.resolver
}

// RunAnalysis produces a sentiment report for a company name or ticker.
// Failures are returned as *models.PipelineError naming the failed stage.
// Finding no news is not a failure; the report is then Neutral with no articles.
func (o *Orchestrator) RunAnalysis(ctx context.Context, company string, lookbackDays, maxArticles int) (models.SentimentReport, error) {
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	metrics.AnalysesInFlight.Inc()
	defer metrics.AnalysesInFlight.Dec()

	ctx, span := observability.StartSpan(ctx, "analysis.run",
		trace.WithAttributes(
			attribute.String("company", company),
			attribute.Int("lookback_days", lookbackDays),
			attribute.Int("max_articles", maxArticles),
		))

	report, err := o.run(ctx, company, lookbackDays, maxArticles)

	observability.EndSpan(span, err)
	if err != nil {
		var pipeErr *models.PipelineError
		stage := models.StageFailed
		if errors.As(err, &pipeErr) {
			stage = pipeErr.Stage
		}
		if providerFailure(err) {
			o.healthCache.Invalidate()
		}
		metrics.RecordAnalysisError(string(stage), models.ErrorKind(err))
		timer.ObserveAnalysis("error")
		observability.WithContext(ctx).Error("analysis failed",
			"company", company,
			"stage", stage,
			"error", err)
		return models.SentimentReport{}, err
	}

	timer.ObserveAnalysis("success")
	metrics.RecordReport(string(report.OverallSentiment), report.ConfidenceScore, report.ArticlesAnalyzed)
	observability.WithContext(ctx).Info("analysis complete",
		"company", company,
		"ticker", report.Ticker,
		"sentiment", report.OverallSentiment,
		"articles", report.ArticlesAnalyzed,
		"duration", timer.Duration())
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, company string, lookbackDays, maxArticles int) (models.SentimentReport, error) {
	if err := config.ValidateWindow(lookbackDays, maxArticles); err != nil {
		return models.SentimentReport{}, fail(models.StageResolving, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
	}

	var record models.TickerRecord
	err := o.stage(ctx, models.StageResolving, func(ctx context.Context) error {
		var err error
		record, err = o.resolver.Resolve(ctx, company)
		return err
	})
	if err != nil {
		return models.SentimentReport{}, fail(models.StageResolving, err)
	}

	var articles []models.Article
	err = o.stage(ctx, models.StageFetching, func(ctx context.Context) error {
		var err error
		articles, err = o.fetcher.Fetch(ctx, record.Symbol, record.CompanyName, lookbackDays, maxArticles)
		if errors.Is(err, models.ErrNoArticlesFound) {
			observability.WithSymbol(record.Symbol).Info("no recent articles, continuing with an empty set",
				"lookback_days", lookbackDays)
			return nil
		}
		return err
	})
	if err != nil {
		return models.SentimentReport{}, fail(models.StageFetching, err)
	}

	var report models.SentimentReport
	err = o.stage(ctx, models.StageAnalyzing, func(ctx context.Context) error {
		var err error
		report, err = o.analyzer.Analyze(ctx, record.CompanyName, articles)
		return err
	})
	if err != nil {
		return models.SentimentReport{}, fail(models.StageAnalyzing, err)
	}
	report = report.WithTicker(record.Symbol)

	if o.enrichProfile {
		report = o.attachProfile(ctx, report)
	}

	observability.WithSymbol(record.Symbol).Debug("stage transition", "stage", models.StageDone)
	return report, nil
}

// stage runs one pipeline step inside a span, timing and logging it
func (o *Orchestrator) stage(ctx context.Context, stage models.Stage, fn func(ctx context.Context) error) error {
	timer := observability.GetMetrics().NewTimer()
	ctx, span := observability.StartSpan(ctx, "analysis."+string(stage))
	observability.WithContext(ctx).Debug("stage transition", "stage", stage)

	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	timer.ObserveStage(string(stage), status)
	observability.EndSpan(span, err)
	return err
}

// attachProfile adds the company profile to the report. A failed lookup is
// logged and the report is returned unchanged.
func (o *Orchestrator) attachProfile(ctx context.Context, report models.SentimentReport) models.SentimentReport {
	profile, err := o.resolver.Profile(ctx, report.Ticker)
	if err != nil {
		observability.WithError(err).Warn("company profile unavailable", "symbol", report.Ticker)
		return report
	}
	return report.WithProfile(profile)
}

// providerFailure reports whether err came from a failing external provider,
// which makes any cached health report stale
func providerFailure(err error) bool {
	var extErr *models.ExternalServiceError
	var analysisErr *models.AnalysisError
	return errors.As(err, &extErr) || errors.As(err, &analysisErr)
}

func fail(stage models.Stage, cause error) error {
	return &models.PipelineError{Stage: stage, Cause: cause}
}

// Health reports provider availability. Circuit breaker states are read for
// every provider and the market-data lookup is probed; the result is cached.
func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	if report, ok := o.healthCache.Get(); ok {
		return report
	}

	registry := services.GetGlobalRegistry()
	providers := []ProviderHealth{
		{Name: o.resolver.Provider(), Role: "market_data"},
		{Name: o.fetcher.Provider(), Role: "news"},
		{Name: o.analyzer.Provider(), Role: "llm"},
	}

	healthy := true
	for i := range providers {
		p := &providers[i]
		p.CircuitState = registry.State(p.Name)
		p.Available = p.CircuitState != "open"
	}

	if _, err := o.resolver.lookup.SearchSymbols(ctx, "AAPL"); err != nil {
		providers[0].Available = false
		providers[0].Error = err.Error()
	}

	for _, p := range providers {
		if !p.Available {
			healthy = false
		}
	}

	report := HealthReport{Healthy: healthy, Providers: providers}
	o.healthCache.Set(report)
	report, _ = o.healthCache.Get()
	return report
}

