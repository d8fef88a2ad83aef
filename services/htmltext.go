package services

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// NewsAPI truncates content and appends e.g. "… [+2817 chars]"
	truncationMarkerRe = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)
)

// PlainText strips HTML markup from s and collapses whitespace.
// Text without markup is returned with whitespace collapsed.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}

	text = truncationMarkerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
