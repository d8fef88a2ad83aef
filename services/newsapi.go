package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

const newsAPIMaxPageSize = 100

// NewsAPIService handles communication with NewsAPI.org
type NewsAPIService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewNewsAPIService creates a new NewsAPIService instance
func NewNewsAPIService(apiKey string, opts ...ServiceOption) *NewsAPIService {
	o := applyOptions("https://newsapi.org/v2", opts)
	return &NewsAPIService{
		apiKey:     apiKey,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
	}
}

// NewsAPIResponse represents the response from NewsAPI
type NewsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Name returns the provider name
func (s *NewsAPIService) Name() string { return BreakerNewsAPI }

// SearchArticles queries the /everything endpoint, newest first.
// Description and content are returned as plain text.
func (s *NewsAPIService) SearchArticles(ctx context.Context, q NewsQuery) ([]models.Article, error) {
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > newsAPIMaxPageSize {
		pageSize = newsAPIMaxPageSize
	}

	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(pageSize))
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}

	return callExternal(ctx, BreakerNewsAPI, "search_articles", func(ctx context.Context) ([]models.Article, error) {
		header := http.Header{}
		header.Set("X-Api-Key", s.apiKey)

		var newsResp NewsAPIResponse
		if err := getJSON(ctx, s.httpClient, BreakerNewsAPI, "search_articles", s.baseURL+"/everything?"+params.Encode(), header, &newsResp); err != nil {
			return nil, err
		}
		if newsResp.Status != "ok" {
			return nil, &models.ExternalServiceError{
				Provider: BreakerNewsAPI,
				Op:       "search_articles",
				Err:      fmt.Errorf("%s: %s", newsResp.Code, newsResp.Message),
			}
		}

		articles := make([]models.Article, 0, len(newsResp.Articles))
		for _, item := range newsResp.Articles {
			publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
			if err != nil {
				// Zero time falls outside every lookback window
				observability.WithError(err).Warn("failed to parse article timestamp",
					"provider", BreakerNewsAPI,
					"published_at", item.PublishedAt)
			}

			articles = append(articles, models.Article{
				Title:       PlainText(item.Title),
				Source:      item.Source.Name,
				PublishedAt: publishedAt,
				URL:         item.URL,
				Description: PlainText(item.Description),
				Content:     PlainText(item.Content),
			})
		}

		return articles, nil
	})
}
