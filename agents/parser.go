package agents

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"sentiment-analyst/models"
)

// Names of the fields a sentiment response is expected to carry
const (
	fieldOverall    = "overall_sentiment"
	fieldCounts     = "counts"
	fieldConfidence = "confidence"
	fieldBullCase   = "bull_case"
	fieldBearCase   = "bear_case"
)

var allFields = []string{fieldOverall, fieldCounts, fieldConfidence, fieldBullCase, fieldBearCase}

// SentimentCounts is the per-class article tally reported by the model
type SentimentCounts struct {
	Positive int
	Negative int
	Neutral  int
}

// Total returns the number of articles counted
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// SentimentFields holds whatever could be read from a response.
// Nil pointers and slices mean the field was not found.
type SentimentFields struct {
	Overall    models.Sentiment
	Counts     *SentimentCounts
	Confidence *float64
	BullCase   []string
	BearCase   []string
}

// ParseResult is the outcome of reading a model response
type ParseResult struct {
	Status  models.ParseStatus
	Fields  SentimentFields
	Missing []string
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

	overallLineRe    = regexp.MustCompile(`(?i)^overall(?:\s+sentiment)?\s*[:=\-]\s*(.+)$`)
	countLineRe      = regexp.MustCompile(`(?i)^(positive|negative|neutral)(?:\s+(?:count|articles))?\s*[:=]\s*(\d+)`)
	confidenceLineRe = regexp.MustCompile(`(?i)^confidence(?:\s+score)?\s*[:=]\s*([0-9]*\.?[0-9]+)\s*(%)?`)
	caseHeadingRe    = regexp.MustCompile(`(?i)^(bull|bear)(?:ish)?(?:\s+case)?\s*:\s*(.*)$`)
	bulletPrefixRe   = regexp.MustCompile(`^(?:[•\-*+]|\d+[.)])\s*`)
)

// ParseSentimentResponse reads a model response. JSON (fenced or the
// outermost braces) is preferred; otherwise "Label: value" lines are scanned.
func ParseSentimentResponse(text string) ParseResult {
	var fields SentimentFields
	if js := extractJSON(text); js != "" {
		fields = parseJSONFields(gjson.Parse(js))
	}
	if len(fields.missing()) == len(allFields) {
		fields = parseLineMarkers(text)
	}

	missing := fields.missing()
	status := models.ParseStatusSuccess
	switch {
	case len(missing) == len(allFields):
		status = models.ParseStatusUnparseable
	case len(missing) > 0:
		status = models.ParseStatusPartial
	}

	return ParseResult{Status: status, Fields: fields, Missing: missing}
}

func (f SentimentFields) missing() []string {
	var missing []string
	if f.Overall == "" {
		missing = append(missing, fieldOverall)
	}
	if f.Counts == nil {
		missing = append(missing, fieldCounts)
	}
	if f.Confidence == nil {
		missing = append(missing, fieldConfidence)
	}
	if f.BullCase == nil {
		missing = append(missing, fieldBullCase)
	}
	if f.BearCase == nil {
		missing = append(missing, fieldBearCase)
	}
	return missing
}

// extractJSON returns the JSON object embedded in text, or "" if none is valid
func extractJSON(text string) string {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil && gjson.Valid(m[1]) {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return ""
	}
	return candidate
}

func parseJSONFields(obj gjson.Result) SentimentFields {
	var fields SentimentFields

	if v := firstOf(obj, "overall_sentiment", "overall", "sentiment"); v.Exists() {
		if s, ok := models.ParseSentiment(v.String()); ok {
			fields.Overall = s
		}
	}

	pos := firstOf(obj, "positive_count", "positive", "counts.positive")
	neg := firstOf(obj, "negative_count", "negative", "counts.negative")
	neu := firstOf(obj, "neutral_count", "neutral", "counts.neutral")
	if pos.Exists() || neg.Exists() || neu.Exists() {
		fields.Counts = &SentimentCounts{
			Positive: countOf(pos),
			Negative: countOf(neg),
			Neutral:  countOf(neu),
		}
	}

	if v := firstOf(obj, "confidence", "confidence_score"); v.Exists() {
		if c, ok := parseConfidence(v.String()); ok {
			fields.Confidence = &c
		}
	}

	if v := firstOf(obj, "bull_case", "bullish_points", "bull"); v.Exists() {
		fields.BullCase = stringList(v)
	}
	if v := firstOf(obj, "bear_case", "bearish_points", "bear"); v.Exists() {
		fields.BearCase = stringList(v)
	}

	return fields
}

func firstOf(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// countOf reads a count sent either as a JSON number or as a string,
// clamped to [0, maxReportedCount]
func countOf(v gjson.Result) int {
	if !v.Exists() {
		return 0
	}
	if v.Type == gjson.Number {
		return clampCount(v.Float())
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return 0
	}
	return clampCount(n)
}

// maxReportedCount bounds model-reported counts so rescaling cannot overflow
const maxReportedCount = 1_000_000

func clampCount(f float64) int {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= maxReportedCount:
		return maxReportedCount
	}
	return int(f)
}

// parseConfidence accepts "0.8", "80", "80%"
func parseConfidence(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	c, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return c, true
}

func stringList(v gjson.Result) []string {
	items := []string{}
	if v.IsArray() {
		for _, item := range v.Array() {
			items = append(items, item.String())
		}
		return items
	}
	for _, line := range strings.Split(v.String(), "\n") {
		items = append(items, line)
	}
	return items
}

// parseLineMarkers scans responses written as labelled lines, e.g.
//
//	Overall Sentiment: Positive
//	Positive: 3
//	Bull Case:
//	- Strong earnings
func parseLineMarkers(text string) SentimentFields {
	var fields SentimentFields
	var counts SentimentCounts
	haveCounts := false
	var section *[]string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := caseHeadingRe.FindStringSubmatch(line); m != nil {
			if strings.EqualFold(m[1], "bull") {
				fields.BullCase = []string{}
				section = &fields.BullCase
			} else {
				fields.BearCase = []string{}
				section = &fields.BearCase
			}
			if rest := strings.TrimSpace(m[2]); rest != "" {
				*section = append(*section, rest)
			}
			continue
		}

		label := bulletPrefixRe.ReplaceAllString(line, "")
		if m := overallLineRe.FindStringSubmatch(label); m != nil {
			if s, ok := models.ParseSentiment(firstWord(m[1])); ok {
				fields.Overall = s
			}
			section = nil
			continue
		}
		if m := countLineRe.FindStringSubmatch(label); m != nil {
			f, _ := strconv.ParseFloat(m[2], 64)
			n := clampCount(f)
			switch strings.ToLower(m[1]) {
			case "positive":
				counts.Positive = n
			case "negative":
				counts.Negative = n
			case "neutral":
				counts.Neutral = n
			}
			haveCounts = true
			section = nil
			continue
		}
		if m := confidenceLineRe.FindStringSubmatch(label); m != nil {
			if c, ok := parseConfidence(m[1]); ok {
				fields.Confidence = &c
			}
			section = nil
			continue
		}

		if section != nil {
			*section = append(*section, line)
		}
	}

	if haveCounts {
		fields.Counts = &counts
	}
	return fields
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

// cleanCaseItems strips bullets and numbering, drops empty entries and keeps
// at most limit items
func cleanCaseItems(items []string, limit int) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.ReplaceAll(item, "**", ""))
		item = strings.TrimSpace(bulletPrefixRe.ReplaceAllString(item, ""))
		if item == "" {
			continue
		}
		cleaned = append(cleaned, item)
		if limit > 0 && len(cleaned) == limit {
			break
		}
	}
	return cleaned
}
