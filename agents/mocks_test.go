package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

type mockLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastUser   string
	lastSystem string
}

func (m *mockLLM) Name() string { return "mock-llm" }

func (m *mockLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNews struct {
	mu        sync.Mutex
	articles  []models.Article
	err       error
	calls     int
	lastQuery services.NewsQuery
}

func (m *mockNews) Name() string { return "mock-news" }

func (m *mockNews) SearchArticles(ctx context.Context, q services.NewsQuery) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Article, len(m.articles))
	copy(out, m.articles)
	return out, nil
}

func (m *mockNews) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockMarketData struct {
	mu          sync.Mutex
	matches     map[string][]models.SymbolMatch // keyed by upper-cased query
	profile     *models.CompanyProfile
	searchErr   error
	profileErr  error
	delay       time.Duration
	searchCalls int
	queries     []string
}

func (m *mockMarketData) Name() string { return "mock-market" }

func (m *mockMarketData) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	m.mu.Lock()
	m.searchCalls++
	m.queries = append(m.queries, query)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.matches[strings.ToUpper(query)], nil
}

func (m *mockMarketData) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	if m.profile == nil {
		return nil, &models.NotFoundError{Query: symbol}
	}
	return m.profile, nil
}

func (m *mockMarketData) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

func (m *mockMarketData) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// mockLimiter records Acquire calls without pacing
type mockLimiter struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newMockLimiter() *mockLimiter {
	return &mockLimiter{calls: make(map[string]int)}
}

func (m *mockLimiter) Acquire(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[service]++
	return m.err
}

func (m *mockLimiter) Calls(service string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[service]
}

// useTestMetrics installs metrics on a private registry for the test
func useTestMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	prev := observability.GetMetrics()
	m := observability.NewMetrics(prometheus.NewRegistry())
	observability.SetMetrics(m)
	t.Cleanup(func() { observability.SetMetrics(prev) })
	return m
}

// acmeMarket returns a lookup that knows Acme Corporation
func acmeMarket() *mockMarketData {
	acme := models.SymbolMatch{Symbol: "ACME", Name: "Acme Corporation", Exchange: "NASDAQ", Currency: "USD"}
	return &mockMarketData{
		matches: map[string][]models.SymbolMatch{
			"ACME CORP": {acme, {Symbol: "ACMEW", Name: "Acme Corporation Warrants"}},
			"ACME":      {acme},
		},
	}
}

// recentArticles returns n relevant articles published hours before now
func recentArticles(now time.Time, n int) []models.Article {
	articles := make([]models.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, models.Article{
			Title:       fmt.Sprintf("Acme headline %d", i+1),
			Source:      "Wire",
			URL:         fmt.Sprintf("https://news.example.com/acme/%d", i+1),
			Description: "Acme Corporation shares moved after the announcement.",
			PublishedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return articles
}

const acmeLLMResponse = "```json\n" + `{
  "overall_sentiment": "Positive",
  "positive_count": 2,
  "negative_count": 0,
  "neutral_count": 1,
  "confidence": 0.82,
  "bull_case": ["Record quarterly revenue", "New product line"],
  "bear_case": ["Rising input costs"]
}` + "\n```"
