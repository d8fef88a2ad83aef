package services

import (
	"context"
	"time"

	"sentiment-analyst/models"
)

// LLMService is a hosted language model that turns a prompt into text
type LLMService interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewsQuery describes one article search
type NewsQuery struct {
	Query       string // free-text search expression
	Ticker      string
	CompanyName string
	From        time.Time
	To          time.Time
	PageSize    int
}

// NewsProvider searches a news service for articles
type NewsProvider interface {
	Name() string
	SearchArticles(ctx context.Context, q NewsQuery) ([]models.Article, error)
}

// MarketDataProvider looks up ticker symbols and company profiles
type MarketDataProvider interface {
	Name() string
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
	GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)
}

// Compile-time interface verification
var _ LLMService = (*OpenAIService)(nil)
var _ LLMService = (*BedrockService)(nil)
var _ NewsProvider = (*NewsAPIService)(nil)
var _ NewsProvider = (*RSSService)(nil)
var _ MarketDataProvider = (*FMPService)(nil)
var _ MarketDataProvider = (*AlphaVantageService)(nil)
