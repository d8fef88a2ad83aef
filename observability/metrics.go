package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentiment_analyst"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Analysis metrics
	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	AnalysisErrorsTotal   *prometheus.CounterVec
	AnalysesInFlight      prometheus.Gauge
	StageDuration         *prometheus.HistogramVec

	// Report metrics
	SentimentTotal     *prometheus.CounterVec
	ReportConfidence   prometheus.Histogram
	ArticlesAnalyzed   prometheus.Histogram
	ParseOutcomesTotal *prometheus.CounterVec

	// Ticker resolution metrics
	TickerCacheLookups *prometheus.CounterVec

	// Rate limiter metrics
	RateLimitWait *prometheus.HistogramVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// waitBuckets cover rate limiter suspensions up to a minute
var waitBuckets = []float64{0, .1, .5, 1, 2, 4, 8, 15, 30, 60}

// confidenceBuckets are histogram buckets for report confidence (0 to 1)
var confidenceBuckets = []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1}

// articleBuckets are histogram buckets for articles per report
var articleBuckets = []float64{0, 1, 5, 10, 20, 30, 40, 50}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Analysis metrics
		AnalysisRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total number of sentiment analysis requests",
			},
			[]string{"source"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of a full analysis run in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		AnalysisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "errors_total",
				Help:      "Total number of failed analyses by stage and error kind",
			},
			[]string{"stage", "error_type"},
		),
		AnalysesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "in_flight",
				Help:      "Number of analyses currently running",
			},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"stage", "status"},
		),

		// Report metrics
		SentimentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "sentiment_total",
				Help:      "Total number of reports by overall sentiment",
			},
			[]string{"sentiment"},
		),
		ReportConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "confidence",
				Help:      "Distribution of report confidence scores",
				Buckets:   confidenceBuckets,
			},
		),
		ArticlesAnalyzed: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "articles_analyzed",
				Help:      "Distribution of articles analyzed per report",
				Buckets:   articleBuckets,
			},
		),
		ParseOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "parse_outcomes_total",
				Help:      "Total number of LLM responses by parse status",
			},
			[]string{"status"},
		),

		// Ticker resolution metrics
		TickerCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ticker",
				Name:      "cache_lookups_total",
				Help:      "Total number of ticker cache lookups by result",
			},
			[]string{"result"},
		),

		// Rate limiter metrics
		RateLimitWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rate_limiter",
				Name:      "wait_seconds",
				Help:      "Time callers spent waiting for a rate limit slot",
				Buckets:   waitBuckets,
			},
			[]string{"service"},
		),

		// External API metrics
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// SetMetrics replaces the global metrics instance (useful for testing)
func SetMetrics(m *Metrics) {
	globalMetrics = m
}

// RecordAnalysisRequest records an analysis request from the given source (api, cli)
func (m *Metrics) RecordAnalysisRequest(source string) {
	m.AnalysisRequestsTotal.WithLabelValues(source).Inc()
}

// RecordAnalysisDuration records the duration of a full analysis run
func (m *Metrics) RecordAnalysisDuration(status string, duration time.Duration) {
	m.AnalysisDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAnalysisError records a failed analysis
func (m *Metrics) RecordAnalysisError(stage, errorType string) {
	m.AnalysisErrorsTotal.WithLabelValues(stage, errorType).Inc()
}

// RecordStageDuration records how long a pipeline stage took
func (m *Metrics) RecordStageDuration(stage, status string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// RecordReport records the outcome of a completed report
func (m *Metrics) RecordReport(sentiment string, confidence float64, articles int) {
	m.SentimentTotal.WithLabelValues(sentiment).Inc()
	m.ReportConfidence.Observe(confidence)
	m.ArticlesAnalyzed.Observe(float64(articles))
}

// RecordParseOutcome records how an LLM response was parsed
func (m *Metrics) RecordParseOutcome(status string) {
	m.ParseOutcomesTotal.WithLabelValues(status).Inc()
}

// RecordTickerCacheHit records a ticker served from the cache
func (m *Metrics) RecordTickerCacheHit() {
	m.TickerCacheLookups.WithLabelValues("hit").Inc()
}

// RecordTickerCacheMiss records a ticker that required a lookup
func (m *Metrics) RecordTickerCacheMiss() {
	m.TickerCacheLookups.WithLabelValues("miss").Inc()
}

// RecordRateLimitWait records time spent waiting on the rate limiter
func (m *Metrics) RecordRateLimitWait(service string, wait time.Duration) {
	m.RateLimitWait.WithLabelValues(service).Observe(wait.Seconds())
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAnalysis records the analysis duration and status
func (t *Timer) ObserveAnalysis(status string) {
	t.metrics.RecordAnalysisDuration(status, time.Since(t.start))
}

// ObserveStage records the stage duration
func (t *Timer) ObserveStage(stage, status string) {
	t.metrics.RecordStageDuration(stage, status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveRateLimitWait records the rate limiter wait
func (t *Timer) ObserveRateLimitWait(service string) {
	t.metrics.RecordRateLimitWait(service, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
