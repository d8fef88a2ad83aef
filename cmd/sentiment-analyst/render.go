package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"sentiment-analyst/models"
)

// renderReport writes a human-readable report
func renderReport(w io.Writer, r models.SentimentReport) error {
	var b strings.Builder

	title := r.Company
	if r.Ticker != "" {
		title = fmt.Sprintf("%s (%s)", r.Company, r.Ticker)
	}
	fmt.Fprintf(&b, "%s\n%s\n", title, strings.Repeat("=", len(title)))

	if r.Profile != nil {
		p := r.Profile
		if p.Sector != "" || p.Industry != "" {
			fmt.Fprintf(&b, "Sector:      %s / %s\n", p.Sector, p.Industry)
		}
		if !p.MarketCap.IsZero() {
			fmt.Fprintf(&b, "Market cap:  %s %s\n", p.MarketCap.StringFixed(0), p.Currency)
		}
		if !p.Price.IsZero() {
			fmt.Fprintf(&b, "Price:       %s %s\n", p.Price.StringFixed(2), p.Currency)
		}
	}

	pct := r.Percentages()
	fmt.Fprintf(&b, "Sentiment:   %s (confidence %.0f%%)\n", r.OverallSentiment, r.ConfidenceScore*100)
	fmt.Fprintf(&b, "Articles:    %d analyzed\n", r.ArticlesAnalyzed)
	fmt.Fprintf(&b, "  positive   %3d  %5.1f%%\n", r.PositiveCount, pct[models.SentimentPositive])
	fmt.Fprintf(&b, "  negative   %3d  %5.1f%%\n", r.NegativeCount, pct[models.SentimentNegative])
	fmt.Fprintf(&b, "  neutral    %3d  %5.1f%%\n", r.NeutralCount, pct[models.SentimentNeutral])

	writeCase(&b, "Bull case", r.BullCase)
	writeCase(&b, "Bear case", r.BearCase)

	if r.ParseStatus != models.ParseStatusSuccess {
		fmt.Fprintf(&b, "\nNote: response parse status %s", r.ParseStatus)
		if len(r.MissingFields) > 0 {
			fmt.Fprintf(&b, " (missing %s)", strings.Join(r.MissingFields, ", "))
		}
		b.WriteString("\n")
	}

	if len(r.Articles) > 0 {
		b.WriteString("\nSources:\n")
		for _, a := range r.Articles {
			fmt.Fprintf(&b, "  %s  %s (%s)\n", a.PublishedAt.Format("2006-01-02"), a.Title, a.Source)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCase(b *strings.Builder, heading string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", heading)
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// describeError adds a hint for failures the user can act on
func describeError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return fmt.Errorf("%w (lookback must be 1-30 days, max articles 5-50)", err)
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("%w (try the exact ticker symbol)", err)
	default:
		return err
	}
}
