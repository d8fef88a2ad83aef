package models

import "testing"

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  acme corp ", "ACME CORP"},
		{"Acme\t  Corp", "ACME CORP"},
		{"aapl", "AAPL"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeInput(tt.input); got != tt.want {
			t.Errorf("NormalizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  Acme \t  Corp\n"); got != "Acme Corp" {
		t.Errorf("CollapseSpaces = %q, want %q", got, "Acme Corp")
	}
}

func TestCoreCompanyName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Apple Inc.", "APPLE"},
		{"Acme Corp", "ACME"},
		{"Acme Corporation", "ACME"},
		{"The Coca-Cola Company", "COCA COLA"},
		{"Johnson & Johnson", "JOHNSON & JOHNSON"},
		{"Alphabet Inc. Class A", "ALPHABET INC CLASS A"},
		{"Group", "GROUP"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CoreCompanyName(tt.input); got != tt.want {
				t.Errorf("CoreCompanyName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestArticle_BodyAndMentions(t *testing.T) {
	a := Article{Title: "Acme beats estimates", Description: "Quarterly results"}
	if a.Body() != "Quarterly results" {
		t.Errorf("Body() = %q, want description fallback", a.Body())
	}

	a.Content = "Full text"
	if a.Body() != "Full text" {
		t.Errorf("Body() = %q, want content", a.Body())
	}

	if !a.Mentions("ACME") {
		t.Error("Mentions should be case-insensitive")
	}
	if a.Mentions("Globex", "") {
		t.Error("Mentions should be false for unrelated terms")
	}
}

func TestArticle_MentionsWholeWords(t *testing.T) {
	tests := []struct {
		name  string
		title string
		term  string
		want  bool
	}{
		{"single letter ticker inside words", "Fed holds rates as inflation falls", "F", false},
		{"single letter ticker standalone", "Ford (F) raises guidance", "F", true},
		{"ticker with dollar sign", "Why $T is rallying", "T", true},
		{"short ticker prefix of word", "Visa and Mastercard report", "V", false},
		{"hyphenated name", "Coca-Cola posts higher sales", "COCA COLA", true},
		{"possessive", "Acme's CEO steps down", "ACME", true},
		{"ampersand name", "Johnson & Johnson settles suit", "JOHNSON & JOHNSON", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Article{Title: tt.title}
			if got := a.Mentions(tt.term); got != tt.want {
				t.Errorf("Mentions(%q) on %q = %v, want %v", tt.term, tt.title, got, tt.want)
			}
		})
	}
}
