package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentiment-analyst/models"
	"sentiment-analyst/services"
)

func newTestFetcher(news *mockNews, limiter Limiter, now time.Time) *NewsFetcher {
	f := NewNewsFetcher(news, limiter)
	f.now = func() time.Time { return now }
	return f
}

func TestNewsFetcher_FiltersSortsAndTruncates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	news := &mockNews{articles: []models.Article{
		{Title: "Acme older", URL: "u1", PublishedAt: now.Add(-48 * time.Hour)},
		{Title: "Acme newest", URL: "u2", PublishedAt: now.Add(-1 * time.Hour)},
		{Title: "Acme middle", URL: "u3", PublishedAt: now.Add(-24 * time.Hour)},
		{Title: "Acme duplicate", URL: "u2", PublishedAt: now.Add(-2 * time.Hour)},
		{Title: "[Removed]", URL: "u4", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "", URL: "u5", Description: "Acme", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "Unrelated market wrap", URL: "u6", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "Acme too old", URL: "u7", PublishedAt: now.AddDate(0, 0, -8)},
		{Title: "Acme from the future", URL: "u8", PublishedAt: now.Add(time.Hour)},
		{Title: "Acme undated", URL: "u9"},
		{Title: "Acme fourth", URL: "u10", PublishedAt: now.Add(-72 * time.Hour)},
		{Title: "Acme fifth", URL: "u11", PublishedAt: now.Add(-96 * time.Hour)},
		{Title: "Acme sixth", URL: "u12", PublishedAt: now.Add(-120 * time.Hour)},
	}}
	limiter := newMockLimiter()
	fetcher := newTestFetcher(news, limiter, now)

	articles, err := fetcher.Fetch(context.Background(), "acme", "Acme Corporation", 7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTitles := []string{"Acme newest", "Acme middle", "Acme older", "Acme fourth", "Acme fifth"}
	if len(articles) != len(wantTitles) {
		t.Fatalf("got %d articles, want %d", len(articles), len(wantTitles))
	}
	from := now.AddDate(0, 0, -7)
	for i, a := range articles {
		if a.Title != wantTitles[i] {
			t.Errorf("articles[%d] = %q, want %q", i, a.Title, wantTitles[i])
		}
		if a.PublishedAt.Before(from) || a.PublishedAt.After(now) {
			t.Errorf("article %q outside window", a.Title)
		}
	}

	if limiter.Calls(services.RateLimitNews) != 1 {
		t.Errorf("news Acquire calls = %d, want 1", limiter.Calls(services.RateLimitNews))
	}
	q := news.lastQuery
	if q.Query != `"Acme Corporation" OR ACME` {
		t.Errorf("Query = %s", q.Query)
	}
	if q.Ticker != "ACME" || !q.To.Equal(now) || !q.From.Equal(from) {
		t.Errorf("unexpected query %+v", q)
	}
	if q.PageSize != 15 {
		t.Errorf("PageSize = %d, want 15", q.PageSize)
	}
}

func TestNewsFetcher_NeverExceedsMax(t *testing.T) {
	now := time.Now().UTC()
	news := &mockNews{articles: recentArticles(now, 40)}
	fetcher := newTestFetcher(news, newMockLimiter(), now)

	for _, limit := range []int{5, 10, 25, 50} {
		articles, err := fetcher.Fetch(context.Background(), "ACME", "Acme Corporation", 7, limit)
		if err != nil {
			t.Fatalf("limit=%d: unexpected error: %v", limit, err)
		}
		if len(articles) > limit {
			t.Errorf("limit=%d: got %d articles", limit, len(articles))
		}
	}
}

func TestNewsFetcher_NoArticles(t *testing.T) {
	now := time.Now().UTC()
	news := &mockNews{articles: []models.Article{
		{Title: "Unrelated", URL: "u1", PublishedAt: now.Add(-time.Hour)},
	}}
	fetcher := newTestFetcher(news, newMockLimiter(), now)

	_, err := fetcher.Fetch(context.Background(), "ACME", "Acme Corporation", 7, 10)
	if !errors.Is(err, models.ErrNoArticlesFound) {
		t.Errorf("error = %v, want ErrNoArticlesFound", err)
	}
}

func TestNewsFetcher_SingleLetterTicker(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	news := &mockNews{articles: []models.Article{
		{Title: "Ford (F) lifts full-year outlook", URL: "u1", PublishedAt: now.Add(-time.Hour)},
		{Title: "Fed signals patience on rates", URL: "u2", PublishedAt: now.Add(-2 * time.Hour)},
		{Title: "Stocks finish flat after volatile session", URL: "u3", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "Ford Motor recalls pickups", URL: "u4", PublishedAt: now.Add(-4 * time.Hour)},
	}}
	fetcher := newTestFetcher(news, newMockLimiter(), now)

	articles, err := fetcher.Fetch(context.Background(), "F", "Ford Motor Company", 7, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 || articles[0].URL != "u1" || articles[1].URL != "u4" {
		t.Errorf("kept %+v, want only the two Ford articles", articles)
	}
}

func TestNewsFetcher_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		ticker   string
		lookback int
		max      int
	}{
		{"empty ticker", "", 7, 10},
		{"lookback zero", "ACME", 0, 10},
		{"lookback too long", "ACME", 31, 10},
		{"max too small", "ACME", 7, 4},
		{"max too large", "ACME", 7, 51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			news := &mockNews{}
			limiter := newMockLimiter()
			fetcher := newTestFetcher(news, limiter, time.Now())

			_, err := fetcher.Fetch(context.Background(), tt.ticker, "Acme", tt.lookback, tt.max)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if news.Calls() != 0 || limiter.Calls(services.RateLimitNews) != 0 {
				t.Error("invalid input must not reach the limiter or provider")
			}
		})
	}
}

func TestNewsFetcher_ProviderError(t *testing.T) {
	providerErr := &models.ExternalServiceError{Provider: "mock-news", Op: "search_articles", StatusCode: 429, Err: errors.New("rate limited")}
	fetcher := newTestFetcher(&mockNews{err: providerErr}, newMockLimiter(), time.Now())

	_, err := fetcher.Fetch(context.Background(), "ACME", "Acme", 7, 10)
	var extErr *models.ExternalServiceError
	if !errors.As(err, &extErr) || extErr.StatusCode != 429 {
		t.Errorf("error = %v, want the provider's ExternalServiceError", err)
	}
}

func TestNewsFetcher_LimiterError(t *testing.T) {
	news := &mockNews{}
	limiter := newMockLimiter()
	limiter.err = context.Canceled
	fetcher := newTestFetcher(news, limiter, time.Now())

	_, err := fetcher.Fetch(context.Background(), "ACME", "Acme", 7, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if news.Calls() != 0 {
		t.Error("provider must not be called when the limiter fails")
	}
}

func TestBuildNewsQuery(t *testing.T) {
	tests := []struct {
		ticker, company, want string
	}{
		{"ACME", "Acme Corporation", `"Acme Corporation" OR ACME`},
		{"ACME", "", "ACME"},
		{"ACME", "acme", "ACME"},
		{"ACME", `Acme "The Best" Corp`, `"Acme The Best Corp" OR ACME`},
	}

	for _, tt := range tests {
		if got := buildNewsQuery(tt.ticker, tt.company); got != tt.want {
			t.Errorf("buildNewsQuery(%q, %q) = %s, want %s", tt.ticker, tt.company, got, tt.want)
		}
	}
}
