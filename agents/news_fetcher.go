package agents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"sentiment-analyst/config"
	"sentiment-analyst/models"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

// removedTitle marks articles NewsAPI has withdrawn
const removedTitle = "[Removed]"

// maxPageSize is the largest page any news provider accepts
const maxPageSize = 100

// NewsFetcher retrieves recent, relevant articles about a company
type NewsFetcher struct {
	provider NewsProvider
	limiter  Limiter
	now      func() time.Time
}

// NewNewsFetcher creates a fetcher that paces its provider through limiter
func NewNewsFetcher(provider NewsProvider, limiter Limiter) *NewsFetcher {
	return &NewsFetcher{
		provider: provider,
		limiter:  limiter,
		now:      time.Now,
	}
}

// Fetch returns at most maxArticles articles about the company published in
// the last lookbackDays days, newest first. It returns models.ErrNoArticlesFound
// when nothing relevant was published in the window.
func (f *NewsFetcher) Fetch(ctx context.Context, ticker, companyName string, lookbackDays, maxArticles int) ([]models.Article, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is empty", models.ErrInvalidInput)
	}
	if err := config.ValidateWindow(lookbackDays, maxArticles); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	if err := f.limiter.Acquire(ctx, services.RateLimitNews); err != nil {
		return nil, err
	}

	to := f.now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)

	articles, err := f.provider.SearchArticles(ctx, NewsQuery{
		Query:       buildNewsQuery(ticker, companyName),
		Ticker:      ticker,
		CompanyName: companyName,
		From:        from,
		To:          to,
		PageSize:    min(maxArticles*3, maxPageSize),
	})
	if err != nil {
		return nil, err
	}

	relevant := filterArticles(articles, from, to, ticker, models.CoreCompanyName(companyName))
	slices.SortStableFunc(relevant, func(a, b models.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if len(relevant) > maxArticles {
		relevant = relevant[:maxArticles]
	}

	observability.WithSymbol(ticker).Debug("articles fetched",
		"provider", f.provider.Name(),
		"received", len(articles),
		"kept", len(relevant))

	if len(relevant) == 0 {
		return nil, models.ErrNoArticlesFound
	}
	return relevant, nil
}

// Provider returns the name of the news provider in use
func (f *NewsFetcher) Provider() string {
	return f.provider.Name()
}

// buildNewsQuery combines the quoted company name and the ticker, e.g.
// "Acme Corporation" OR ACME
func buildNewsQuery(ticker, companyName string) string {
	name := strings.TrimSpace(strings.ReplaceAll(companyName, `"`, ""))
	if name == "" || strings.EqualFold(name, ticker) {
		return ticker
	}
	return fmt.Sprintf("%q OR %s", name, ticker)
}

// filterArticles drops withdrawn, untitled, duplicate, off-topic and
// out-of-window articles
func filterArticles(articles []models.Article, from, to time.Time, terms ...string) []models.Article {
	seen := make(map[string]bool, len(articles))
	kept := make([]models.Article, 0, len(articles))

	for _, a := range articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == removedTitle {
			continue
		}
		if a.PublishedAt.IsZero() || a.PublishedAt.Before(from) || a.PublishedAt.After(to) {
			continue
		}
		if !a.Mentions(terms...) {
			continue
		}
		if a.URL != "" {
			if seen[a.URL] {
				continue
			}
			seen[a.URL] = true
		}
		kept = append(kept, a)
	}
	return kept
}
