package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"sentiment-analyst/models"
)

// fmpSearchLimit caps the candidates returned by a symbol search
const fmpSearchLimit = 10

// FMPService handles communication with Financial Modeling Prep API
type FMPService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey string, opts ...ServiceOption) *FMPService {
	o := applyOptions("https://financialmodelingprep.com/api/v3", opts)
	return &FMPService{
		apiKey:     apiKey,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
	}
}

// fmpSearchResult represents a single result from the FMP symbol search API
type fmpSearchResult struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

// fmpProfileResponse represents a company profile from the FMP API
type fmpProfileResponse struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Price             float64 `json:"price"`
	MktCap            int64   `json:"mktCap"`
	Currency          string  `json:"currency"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Industry          string  `json:"industry"`
	Website           string  `json:"website"`
	Description       string  `json:"description"`
	Sector            string  `json:"sector"`
	Country           string  `json:"country"`
	IsActivelyTrading bool    `json:"isActivelyTrading"`
}

// Name returns the provider name
func (s *FMPService) Name() string { return BreakerFMP }

// SearchSymbols returns ticker candidates whose symbol or name matches query.
// No matches is an empty slice, not an error.
func (s *FMPService) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprintf("%d", fmpSearchLimit))
	params.Set("apikey", s.apiKey)

	return callExternal(ctx, BreakerFMP, "search_symbols", func(ctx context.Context) ([]models.SymbolMatch, error) {
		var results []fmpSearchResult
		if err := getJSON(ctx, s.httpClient, BreakerFMP, "search_symbols", s.baseURL+"/search?"+params.Encode(), nil, &results); err != nil {
			return nil, err
		}

		matches := make([]models.SymbolMatch, 0, len(results))
		for _, r := range results {
			if r.Symbol == "" {
				continue
			}
			exchange := r.ExchangeShortName
			if exchange == "" {
				exchange = r.StockExchange
			}
			matches = append(matches, models.SymbolMatch{
				Symbol:   strings.ToUpper(r.Symbol),
				Name:     r.Name,
				Exchange: exchange,
				Currency: r.Currency,
			})
		}
		return matches, nil
	})
}

// GetCompanyProfile returns descriptive company data for a symbol
func (s *FMPService) GetCompanyProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	reqURL := fmt.Sprintf("%s/profile/%s?apikey=%s", s.baseURL, url.PathEscape(symbol), url.QueryEscape(s.apiKey))

	return callExternal(ctx, BreakerFMP, "company_profile", func(ctx context.Context) (*models.CompanyProfile, error) {
		var profileResp []fmpProfileResponse
		if err := getJSON(ctx, s.httpClient, BreakerFMP, "company_profile", reqURL, nil, &profileResp); err != nil {
			return nil, err
		}

		if len(profileResp) == 0 {
			return nil, &models.NotFoundError{Query: symbol, Reason: "no profile data"}
		}

		p := profileResp[0]
		return &models.CompanyProfile{
			Symbol:      p.Symbol,
			Name:        p.CompanyName,
			Sector:      p.Sector,
			Industry:    p.Industry,
			MarketCap:   decimal.NewFromInt(p.MktCap),
			Price:       decimal.NewFromFloat(p.Price),
			Currency:    p.Currency,
			Country:     p.Country,
			Website:     p.Website,
			Description: p.Description,
		}, nil
	})
}
