package app

import (
	"context"
	"fmt"
	"time"

	"sentiment-analyst/agents"
	"sentiment-analyst/config"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

// NewFromConfig builds the providers selected in cfg, wires them into the
// analysis pipeline and returns the App serving it
func NewFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	llm, err := newLLMService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	news, err := newNewsProvider(cfg)
	if err != nil {
		return nil, err
	}
	market, err := newMarketDataProvider(cfg)
	if err != nil {
		return nil, err
	}

	limiter := services.NewRateLimiterFromConfig(cfg)

	orch := agents.NewOrchestrator(
		agents.NewTickerResolver(market),
		agents.NewNewsFetcher(news, limiter),
		agents.NewSentimentAnalyzer(llm, limiter, cfg.Analysis.MaxBodyChars, cfg.Analysis.MaxCaseItems),
		agents.WithProfileEnrichment(cfg.Analysis.EnrichProfile),
		agents.WithHealthCacheTTL(time.Duration(cfg.Analysis.HealthCacheTTLSeconds)*time.Second),
	)

	observability.Info("analysis pipeline ready",
		"llm", llm.Name(),
		"news", news.Name(),
		"market_data", market.Name())

	return New(cfg, orch, orch.Resolver(), limiter), nil
}

func newLLMService(ctx context.Context, cfg *config.Config) (services.LLMService, error) {
	switch cfg.Providers.LLM {
	case config.ProviderOpenAI:
		svc, err := services.NewOpenAIService(cfg)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		return svc, nil
	case config.ProviderBedrock:
		svc, err := services.NewBedrockService(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bedrock: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Providers.LLM)
	}
}

func newNewsProvider(cfg *config.Config) (services.NewsProvider, error) {
	timeout := services.WithTimeout(cfg.ClientTimeout())
	switch cfg.Providers.News {
	case config.ProviderNewsAPI:
		return services.NewNewsAPIService(cfg.NewsAPI.APIKey, services.WithBaseURL(cfg.NewsAPI.BaseURL), timeout), nil
	case config.ProviderRSS:
		return services.NewRSSService(cfg.RSS.FeedURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown news provider %q", cfg.Providers.News)
	}
}

func newMarketDataProvider(cfg *config.Config) (services.MarketDataProvider, error) {
	timeout := services.WithTimeout(cfg.ClientTimeout())
	switch cfg.Providers.MarketData {
	case config.ProviderFMP:
		return services.NewFMPService(cfg.FMP.APIKey, services.WithBaseURL(cfg.FMP.BaseURL), timeout), nil
	case config.ProviderAlphaVantage:
		return services.NewAlphaVantageService(cfg.AlphaVantage.APIKey, services.WithBaseURL(cfg.AlphaVantage.BaseURL), timeout), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.Providers.MarketData)
	}
}
