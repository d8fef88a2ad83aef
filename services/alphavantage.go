package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
)

// AlphaVantageService handles communication with Alpha Vantage API
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey string, opts ...ServiceOption) *AlphaVantageService {
	o := applyOptions("https://www.alphavantage.co/query", opts)
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
	}
}

// avNotice holds the fields Alpha Vantage uses to report errors and
// throttling inside an HTTP 200 response
type avNotice struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (n avNotice) err() error {
	switch {
	case n.ErrorMessage != "":
		return fmt.Errorf("%s", n.ErrorMessage)
	case n.Note != "":
		return fmt.Errorf("%s", n.Note)
	case n.Information != "":
		return fmt.Errorf("%s", n.Information)
	}
	return nil
}

// SymbolSearchResponse represents the SYMBOL_SEARCH response from Alpha Vantage
type SymbolSearchResponse struct {
	avNotice
	BestMatches []struct {
		Symbol     string `json:"1. symbol"`
		Name       string `json:"2. name"`
		Type       string `json:"3. type"`
		Region     string `json:"4. region"`
		Currency   string `json:"8. currency"`
		MatchScore string `json:"9. matchScore"`
	} `json:"bestMatches"`
}

// OverviewResponse represents the company overview response from Alpha Vantage
type OverviewResponse struct {
	avNotice
	Symbol      string `json:"Symbol"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Exchange    string `json:"Exchange"`
	Currency    string `json:"Currency"`
	Country     string `json:"Country"`
	Sector      string `json:"Sector"`
	Industry    string `json:"Industry"`
	MarketCap   string `json:"MarketCapitalization"`
	Website     string `json:"OfficialSite"`
}

// Name returns the provider name
func (s *AlphaVantageService) Name() string { return BreakerAlphaVantage }

// SearchSymbols returns ticker candidates for the query. Only equities are kept.
func (s *AlphaVantageService) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", query)
	params.Set("apikey", s.apiKey)

	return callExternal(ctx, BreakerAlphaVantage, "search_symbols", func(ctx context.Context) ([]models.SymbolMatch, error) {
		var searchResp SymbolSearchResponse
		if err := getJSON(ctx, s.httpClient, BreakerAlphaVantage, "search_symbols", s.baseURL+"?"+params.Encode(), nil, &searchResp); err != nil {
			return nil, err
		}
		if err := searchResp.err(); err != nil {
			return nil, &models.ExternalServiceError{Provider: BreakerAlphaVantage, Op: "search_symbols", Err: err}
		}

		matches := make([]models.SymbolMatch, 0, len(searchResp.BestMatches))
		for _, m := range searchResp.BestMatches {
			if m.Type != "" && !strings.EqualFold(m.Type, "Equity") {
				continue
			}
			matches = append(matches, models.SymbolMatch{
				Symbol:   strings.ToUpper(m.Symbol),
				Name:     m.Name,
				Exchange: m.Region,
				Currency: m.Currency,
			})
		}
		return matches, nil
	})
}

// GetCompanyProfile returns descriptive company data for a symbol.
// OVERVIEW carries no quote, so Price is zero.
func (s *AlphaVantageService) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)

	return callExternal(ctx, BreakerAlphaVantage, "company_profile", func(ctx context.Context) (*models.CompanyProfile, error) {
		var overview OverviewResponse
		if err := getJSON(ctx, s.httpClient, BreakerAlphaVantage, "company_profile", s.baseURL+"?"+params.Encode(), nil, &overview); err != nil {
			return nil, err
		}
		if err := overview.err(); err != nil {
			return nil, &models.ExternalServiceError{Provider: BreakerAlphaVantage, Op: "company_profile", Err: err}
		}
		if overview.Symbol == "" {
			return nil, &models.NotFoundError{Query: symbol, Reason: "no overview data"}
		}

		marketCap, err := decimal.NewFromString(overview.MarketCap)
		if err != nil {
			observability.WithProvider(BreakerAlphaVantage).Debug("unparseable market cap",
				"symbol", symbol,
				"value", overview.MarketCap)
			marketCap = decimal.Zero
		}

		return &models.CompanyProfile{
			Symbol:      overview.Symbol,
			Name:        overview.Name,
			Sector:      overview.Sector,
			Industry:    overview.Industry,
			MarketCap:   marketCap,
			Price:       decimal.Zero,
			Currency:    overview.Currency,
			Country:     overview.Country,
			Website:     overview.Website,
			Description: overview.Description,
		}, nil
	})
}
