package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentiment is the classification assigned to news coverage
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// ParseSentiment converts free text such as "positive", " BULLISH " or
// "Negative" to a Sentiment. The second return value is false when the text
// is not recognized.
func ParseSentiment(s string) (Sentiment, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'.`)) {
	case "positive", "bullish":
		return SentimentPositive, true
	case "negative", "bearish":
		return SentimentNegative, true
	case "neutral", "mixed":
		return SentimentNeutral, true
	default:
		return "", false
	}
}

// ParseStatus describes how much of the LLM response could be understood
type ParseStatus string

const (
	ParseStatusSuccess     ParseStatus = "success"
	ParseStatusPartial     ParseStatus = "partial"
	ParseStatusUnparseable ParseStatus = "unparseable"
	ParseStatusSkipped     ParseStatus = "skipped"
)

// SentimentReport is the consolidated result of one analysis request.
// It is built once by NewSentimentReport and must not be modified afterwards.
type SentimentReport struct {
	ID               uuid.UUID        `json:"id"`
	Company          string           `json:"company"`
	Ticker           string           `json:"ticker,omitempty"`
	OverallSentiment Sentiment        `json:"overall_sentiment"`
	PositiveCount    int              `json:"positive_count"`
	NegativeCount    int              `json:"negative_count"`
	NeutralCount     int              `json:"neutral_count"`
	ConfidenceScore  float64          `json:"confidence_score"`
	BullCase         []string         `json:"bull_case"`
	BearCase         []string         `json:"bear_case"`
	ArticlesAnalyzed int              `json:"articles_analyzed"`
	Articles         []ArticleSummary `json:"articles,omitempty"`
	Profile          *CompanyProfile  `json:"profile,omitempty"`
	ParseStatus      ParseStatus      `json:"parse_status"`
	MissingFields    []string         `json:"missing_fields,omitempty"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// ReportParams holds the values a SentimentReport is built from
type ReportParams struct {
	Company          string
	Ticker           string
	OverallSentiment Sentiment
	PositiveCount    int
	NegativeCount    int
	NeutralCount     int
	ConfidenceScore  float64
	BullCase         []string
	BearCase         []string
	Articles         []Article
	ParseStatus      ParseStatus
	MissingFields    []string
}

// NewSentimentReport validates the parameters and builds a report.
// The sentiment counts must add up to the number of articles.
func NewSentimentReport(p ReportParams) (SentimentReport, error) {
	if p.PositiveCount < 0 || p.NegativeCount < 0 || p.NeutralCount < 0 {
		return SentimentReport{}, fmt.Errorf("sentiment counts must not be negative")
	}
	total := p.PositiveCount + p.NegativeCount + p.NeutralCount
	if total != len(p.Articles) {
		return SentimentReport{}, fmt.Errorf("sentiment counts sum to %d, want %d articles", total, len(p.Articles))
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return SentimentReport{}, fmt.Errorf("confidence score %.2f out of range [0,1]", p.ConfidenceScore)
	}

	overall := p.OverallSentiment
	if overall == "" {
		overall = SentimentNeutral
	}

	summaries := make([]ArticleSummary, 0, len(p.Articles))
	for _, a := range p.Articles {
		summaries = append(summaries, a.Summary())
	}

	return SentimentReport{
		ID:               uuid.New(),
		Company:          p.Company,
		Ticker:           p.Ticker,
		OverallSentiment: overall,
		PositiveCount:    p.PositiveCount,
		NegativeCount:    p.NegativeCount,
		NeutralCount:     p.NeutralCount,
		ConfidenceScore:  p.ConfidenceScore,
		BullCase:         cloneStrings(p.BullCase),
		BearCase:         cloneStrings(p.BearCase),
		ArticlesAnalyzed: len(p.Articles),
		Articles:         summaries,
		ParseStatus:      p.ParseStatus,
		MissingFields:    cloneStrings(p.MissingFields),
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// WithProfile returns a copy of the report carrying the company profile
func (r SentimentReport) WithProfile(profile *CompanyProfile) SentimentReport {
	r.Profile = profile
	return r
}

// WithTicker returns a copy of the report for the given ticker
func (r SentimentReport) WithTicker(ticker string) SentimentReport {
	r.Ticker = ticker
	return r
}

// Percentages returns the share of each sentiment in percent.
// All shares are zero when no articles were analyzed.
func (r SentimentReport) Percentages() map[Sentiment]float64 {
	out := map[Sentiment]float64{
		SentimentPositive: 0,
		SentimentNegative: 0,
		SentimentNeutral:  0,
	}
	if r.ArticlesAnalyzed == 0 {
		return out
	}
	n := float64(r.ArticlesAnalyzed)
	out[SentimentPositive] = float64(r.PositiveCount) / n * 100
	out[SentimentNegative] = float64(r.NegativeCount) / n * 100
	out[SentimentNeutral] = float64(r.NeutralCount) / n * 100
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
