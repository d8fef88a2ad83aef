package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TickerRecord maps a company name to its canonical stock ticker
type TickerRecord struct {
	CompanyName string    `json:"company_name"`
	Symbol      string    `json:"symbol"`
	Exchange    string    `json:"exchange,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// SymbolMatch is a single candidate returned by a market-data symbol search
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// CompanyProfile holds descriptive company data shown next to a report
type CompanyProfile struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Sector      string          `json:"sector,omitempty"`
	Industry    string          `json:"industry,omitempty"`
	MarketCap   decimal.Decimal `json:"market_cap"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency,omitempty"`
	Country     string          `json:"country,omitempty"`
	Website     string          `json:"website,omitempty"`
	Description string          `json:"description,omitempty"`
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^A-Z0-9& ]+`)
)

// corporateSuffixes are dropped when comparing company names
var corporateSuffixes = map[string]bool{
	"INC": true, "INCORPORATED": true, "CORP": true, "CORPORATION": true,
	"CO": true, "COMPANY": true, "LTD": true, "LIMITED": true, "PLC": true,
	"LLC": true, "LP": true, "HOLDINGS": true, "HOLDING": true, "GROUP": true,
	"SA": true, "AG": true, "NV": true, "SE": true, "THE": true,
}

// CollapseSpaces trims s and replaces every run of whitespace with one space
func CollapseSpaces(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeInput trims, collapses whitespace and uppercases free-text input.
// It is the cache key for ticker resolution.
func NormalizeInput(s string) string {
	return strings.ToUpper(CollapseSpaces(s))
}

// CoreCompanyName reduces a company name to its distinguishing words, e.g.
// "Apple Inc." and "APPLE" both become "APPLE"
func CoreCompanyName(name string) string {
	cleaned := punctuationRe.ReplaceAllString(NormalizeInput(name), " ")
	words := strings.Fields(cleaned)

	kept := make([]string, 0, len(words))
	for i, w := range words {
		if w == "THE" && i == 0 {
			continue
		}
		kept = append(kept, w)
	}
	for len(kept) > 1 && corporateSuffixes[kept[len(kept)-1]] {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, " ")
}
