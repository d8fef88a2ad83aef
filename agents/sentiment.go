package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"sentiment-analyst/models"
	"sentiment-analyst/observability"
	"sentiment-analyst/services"
)

const sentimentSystemPrompt = `You are a financial analyst specializing in news sentiment.
You will be given numbered news articles about one company.

Classify each article as Positive, Negative or Neutral for the company's stock,
then respond with a single JSON object and nothing else:
{
  "overall_sentiment": "Positive" | "Negative" | "Neutral",
  "positive_count": <number of positive articles>,
  "negative_count": <number of negative articles>,
  "neutral_count": <number of neutral articles>,
  "confidence": <number from 0 to 1>,
  "bull_case": ["<reason the stock could rise>", ...],
  "bear_case": ["<reason the stock could fall>", ...]
}

The three counts must add up to the number of articles.
Give at most 5 short points for each case, grounded in the articles.`

// Defaults used when a response omits a field
const (
	defaultConfidence   = 0.5
	defaultMaxBodyChars = 500
	defaultMaxCaseItems = 5

	// dominantShare is the minimum share of articles the largest class needs
	// to become the overall sentiment when the model gives none
	dominantShare = 0.4
)

// SentimentAnalyzer turns a set of articles into a SentimentReport using an LLM
type SentimentAnalyzer struct {
	llm          LLMService
	limiter      Limiter
	maxBodyChars int
	maxCaseItems int
}

// NewSentimentAnalyzer creates an analyzer. Non-positive limits fall back to
// 500 body characters per article and 5 bull/bear points.
func NewSentimentAnalyzer(llm LLMService, limiter Limiter, maxBodyChars, maxCaseItems int) *SentimentAnalyzer {
	if maxBodyChars <= 0 {
		maxBodyChars = defaultMaxBodyChars
	}
	if maxCaseItems <= 0 {
		maxCaseItems = defaultMaxCaseItems
	}
	return &SentimentAnalyzer{
		llm:          llm,
		limiter:      limiter,
		maxBodyChars: maxBodyChars,
		maxCaseItems: maxCaseItems,
	}
}

// Analyze classifies the articles. With no articles it returns a Neutral
// report with zero confidence without calling the model. Only a failed model
// call is an error; malformed responses are filled with defaults.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, companyName string, articles []models.Article) (models.SentimentReport, error) {
	metrics := observability.GetMetrics()

	if len(articles) == 0 {
		metrics.RecordParseOutcome(string(models.ParseStatusSkipped))
		return models.NewSentimentReport(models.ReportParams{
			Company:          companyName,
			OverallSentiment: models.SentimentNeutral,
			BullCase:         []string{},
			BearCase:         []string{},
			ParseStatus:      models.ParseStatusSkipped,
		})
	}

	if err := a.limiter.Acquire(ctx, services.RateLimitLLM); err != nil {
		return models.SentimentReport{}, err
	}

	prompt := BuildSentimentPrompt(companyName, articles, a.maxBodyChars)
	response, err := a.llm.Complete(ctx, sentimentSystemPrompt, prompt)
	if err != nil {
		return models.SentimentReport{}, &models.AnalysisError{Provider: a.llm.Name(), Err: err}
	}

	result := ParseSentimentResponse(response)
	metrics.RecordParseOutcome(string(result.Status))

	logger := observability.WithCompany(companyName)
	status := result.Status
	switch {
	case status == models.ParseStatusUnparseable:
		logger.Warn("unparseable sentiment response, using defaults",
			"provider", a.llm.Name(),
			"response_chars", len(response))
		status = models.ParseStatusPartial
	case len(result.Missing) > 0:
		logger.Warn("sentiment response incomplete, using defaults",
			"provider", a.llm.Name(),
			"missing", result.Missing)
	}

	v, rescaled := applyDefaults(result.Fields, len(articles), a.maxCaseItems)
	if rescaled {
		logger.Warn("sentiment counts did not match article count, rescaled",
			"reported", result.Fields.Counts.Total(),
			"articles", len(articles))
	}

	return models.NewSentimentReport(models.ReportParams{
		Company:          companyName,
		OverallSentiment: v.overall,
		PositiveCount:    v.counts.Positive,
		NegativeCount:    v.counts.Negative,
		NeutralCount:     v.counts.Neutral,
		ConfidenceScore:  v.confidence,
		BullCase:         v.bull,
		BearCase:         v.bear,
		Articles:         articles,
		ParseStatus:      status,
		MissingFields:    result.Missing,
	})
}

// Provider returns the name of the LLM in use
func (a *SentimentAnalyzer) Provider() string {
	return a.llm.Name()
}

// BuildSentimentPrompt renders the user prompt for a set of articles.
// The output depends only on its arguments.
func BuildSentimentPrompt(companyName string, articles []models.Article, maxBodyChars int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", companyName)
	fmt.Fprintf(&sb, "Articles: %d\n\n", len(articles))

	for i, article := range articles {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, article.Title)
		fmt.Fprintf(&sb, "Source: %s | Published: %s\n", article.Source, article.PublishedAt.UTC().Format("2006-01-02"))
		if body := truncateRunes(article.Body(), maxBodyChars); body != "" {
			sb.WriteString(body)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Classify all %d articles and return the JSON object.", len(articles))
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

// verdict is a fully populated set of report values
type verdict struct {
	overall    models.Sentiment
	counts     SentimentCounts
	confidence float64
	bull       []string
	bear       []string
}

// applyDefaults fills every field the response left out. The second return
// value reports whether the counts had to be rescaled to the article total.
func applyDefaults(f SentimentFields, articles, maxCaseItems int) (verdict, bool) {
	v := verdict{
		overall:    f.Overall,
		confidence: defaultConfidence,
		bull:       cleanCaseItems(f.BullCase, maxCaseItems),
		bear:       cleanCaseItems(f.BearCase, maxCaseItems),
	}
	if f.Confidence != nil {
		v.confidence = normalizeConfidence(*f.Confidence)
	}

	rescaled := false
	switch {
	case f.Counts == nil || f.Counts.Total() == 0:
		bucket := f.Overall
		if bucket == "" {
			bucket = models.SentimentNeutral
		}
		v.counts = allIn(bucket, articles)
	case f.Counts.Total() != articles:
		v.counts = rescaleCounts(*f.Counts, articles)
		rescaled = true
	default:
		v.counts = *f.Counts
	}

	if v.overall == "" {
		v.overall = dominantSentiment(v.counts)
	}
	return v, rescaled
}

// normalizeConfidence maps percentages in (1,100] to fractions and clamps to [0,1]
func normalizeConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return defaultConfidence
	}
	if c > 1 && c <= 100 {
		c /= 100
	}
	return math.Max(0, math.Min(1, c))
}

func allIn(s models.Sentiment, n int) SentimentCounts {
	switch s {
	case models.SentimentPositive:
		return SentimentCounts{Positive: n}
	case models.SentimentNegative:
		return SentimentCounts{Negative: n}
	default:
		return SentimentCounts{Neutral: n}
	}
}

// rescaleCounts scales counts with a non-zero total to sum to n using the
// largest remainder method. Ties go to positive, then negative, then neutral.
func rescaleCounts(c SentimentCounts, n int) SentimentCounts {
	raw := [3]int{c.Positive, c.Negative, c.Neutral}
	for _, count := range raw {
		if count < 0 || count > maxReportedCount {
			return allIn(models.SentimentNeutral, n)
		}
	}
	total := c.Total()

	var out [3]int
	type remainder struct{ idx, rem int }
	rems := make([]remainder, 0, len(raw))
	assigned := 0
	for i, count := range raw {
		out[i] = count * n / total
		assigned += out[i]
		rems = append(rems, remainder{idx: i, rem: count * n % total})
	}

	sort.SliceStable(rems, func(i, j int) bool { return rems[i].rem > rems[j].rem })
	for i := 0; assigned < n; i++ {
		out[rems[i%len(rems)].idx]++
		assigned++
	}

	return SentimentCounts{Positive: out[0], Negative: out[1], Neutral: out[2]}
}

// dominantSentiment returns the largest class when it holds at least 40% of
// the articles and is not tied; otherwise Neutral
func dominantSentiment(c SentimentCounts) models.Sentiment {
	total := c.Total()
	if total == 0 {
		return models.SentimentNeutral
	}

	classes := []struct {
		sentiment models.Sentiment
		count     int
	}{
		{models.SentimentPositive, c.Positive},
		{models.SentimentNegative, c.Negative},
		{models.SentimentNeutral, c.Neutral},
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].count > classes[j].count })

	top := classes[0]
	if top.count == classes[1].count {
		return models.SentimentNeutral
	}
	if float64(top.count)/float64(total) < dominantShare {
		return models.SentimentNeutral
	}
	return top.sentiment
}
