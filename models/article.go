package models

import (
	"regexp"
	"strings"
	"time"
)

// Article represents a news article about a company
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
}

// Body returns the best available text for the article: the content when
// present, otherwise the description
func (a Article) Body() string {
	if content := strings.TrimSpace(a.Content); content != "" {
		return content
	}
	return strings.TrimSpace(a.Description)
}

// nonWordRe matches the runs of characters that separate words when
// looking for mentions
var nonWordRe = regexp.MustCompile(`[^a-z0-9&]+`)

// Mentions reports whether any of the terms appears as whole words in the
// article's title, description or content (case-insensitive). Punctuation
// counts as a word break, so "Coca-Cola" mentions "coca cola" and a ticker
// like "F" only matches where it stands alone.
func (a Article) Mentions(terms ...string) bool {
	text := " " + mentionWords(a.Title+" "+a.Description+" "+a.Content) + " "
	for _, term := range terms {
		if term = mentionWords(term); term != "" && strings.Contains(text, " "+term+" ") {
			return true
		}
	}
	return false
}

func mentionWords(s string) string {
	return strings.TrimSpace(nonWordRe.ReplaceAllString(strings.ToLower(s), " "))
}

// ArticleSummary is the trimmed view of an article included in reports
type ArticleSummary struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Summary returns the report view of the article
func (a Article) Summary() ArticleSummary {
	return ArticleSummary{
		Title:       a.Title,
		Source:      a.Source,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
	}
}
