package domain

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// SnippetChars bounds the text-derived snippet shown to clients.
const SnippetChars = 180

// SourceRecord is one fetched and scored page. Text is kept server-side only;
// clients receive the snippet view produced by MarshalJSON.
type SourceRecord struct {
	URL              string
	Title            string
	Text             string
	Excerpt          string
	Byline           string
	Screenshot       string
	ReliabilityScore int
}

// Page is the raw output of an extractor before scoring.
type Page struct {
	URL        string
	Title      string
	Text       string
	Excerpt    string
	Byline     string
	Screenshot []byte
}

type SourceView struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Byline      string `json:"byline,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
	Reliability int    `json:"reliability"`
}

// Snippet returns the excerpt, else the head of the text, else the title.
func (s SourceRecord) Snippet() string {
	if e := strings.TrimSpace(s.Excerpt); e != "" {
		return e
	}
	if t := strings.TrimSpace(s.Text); t != "" {
		return TruncateRunes(t, SnippetChars)
	}
	return s.Title
}

func (s SourceRecord) View() SourceView {
	return SourceView{
		URL:         s.URL,
		Title:       s.Title,
		Snippet:     s.Snippet(),
		Byline:      s.Byline,
		Screenshot:  s.Screenshot,
		Reliability: s.ReliabilityScore,
	}
}

func (s SourceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}

// TruncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
