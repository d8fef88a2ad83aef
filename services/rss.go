package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"sentiment-analyst/models"
)

// RSSService reads company headlines from an RSS or Atom feed.
// The feed URL may contain %s, which is replaced by the ticker symbol.
type RSSService struct {
	feedURL    string
	httpClient *http.Client
	parser     *gofeed.Parser
}

// NewRSSService creates a new RSSService for the given feed URL template
func NewRSSService(feedURL string, opts ...ServiceOption) *RSSService {
	o := applyOptions("", opts)
	return &RSSService{
		feedURL:    feedURL,
		httpClient: o.httpClient,
		parser:     gofeed.NewParser(),
	}
}

// Name returns the provider name
func (s *RSSService) Name() string { return BreakerRSS }

// SearchArticles fetches the feed for the query's ticker. Feeds cannot be
// searched or filtered by date server-side, so every item is returned.
func (s *RSSService) SearchArticles(ctx context.Context, q NewsQuery) ([]models.Article, error) {
	feedURL := s.feedURL
	if strings.Contains(feedURL, "%s") {
		feedURL = fmt.Sprintf(feedURL, url.QueryEscape(q.Ticker))
	}

	return callExternal(ctx, BreakerRSS, "fetch_feed", func(ctx context.Context) ([]models.Article, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return nil, &models.ExternalServiceError{Provider: BreakerRSS, Op: "fetch_feed", Err: fmt.Errorf("failed to create request: %w", err)}
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, &models.ExternalServiceError{Provider: BreakerRSS, Op: "fetch_feed", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, &models.ExternalServiceError{
				Provider:   BreakerRSS,
				Op:         "fetch_feed",
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
			}
		}

		feed, err := s.parser.Parse(resp.Body)
		if err != nil {
			return nil, &models.ExternalServiceError{Provider: BreakerRSS, Op: "fetch_feed", Err: fmt.Errorf("failed to parse feed: %w", err)}
		}

		articles := make([]models.Article, 0, len(feed.Items))
		for _, item := range feed.Items {
			article := models.Article{
				Title:       PlainText(item.Title),
				Source:      feed.Title,
				URL:         item.Link,
				Description: PlainText(item.Description),
				Content:     PlainText(item.Content),
			}
			if item.PublishedParsed != nil {
				article.PublishedAt = item.PublishedParsed.UTC()
			} else if item.UpdatedParsed != nil {
				article.PublishedAt = item.UpdatedParsed.UTC()
			}
			articles = append(articles, article)
		}

		return articles, nil
	})
}
