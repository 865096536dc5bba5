// Package extractor loads a web page and pulls readable content from it.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxTextChars = 10000
)

// Extractor fetches one URL. Failures are *domain.FetchError.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*domain.Page, error)
}

type Options struct {
	// Mode is "browser" (headless Chrome) or "http".
	Mode         string
	Timeout      time.Duration
	MaxTextChars int
	ChromePath   string
	CDPURL       string
	Headful      bool
}

// New returns the extractor for opts.Mode. The close func releases the
// browser process and is safe to call for every mode.
func New(opts Options) (Extractor, func(), error) {
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", "browser":
		b := NewBrowser(opts)
		return b, b.Close, nil
	case "http":
		return NewHTTP(nil, opts), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown extractor mode %q", opts.Mode)
	}
}

var errUnsupportedScheme = errors.New("only http and https URLs are supported")

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errUnsupportedScheme
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func fetchErr(rawURL string, err error) error {
	return &domain.FetchError{URL: rawURL, Err: err}
}

// buildPage merges readability output with raw fallbacks and applies the
// text bound.
func buildPage(rawURL string, art Article, fallbackTitle, fallbackText string, maxChars int) *domain.Page {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	title, text := art.Title, art.Text
	if strings.TrimSpace(text) == "" {
		text = normalizeSpace(fallbackText)
		if t := strings.TrimSpace(fallbackTitle); t != "" {
			title = t
		}
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSpace(fallbackTitle)
	}
	return &domain.Page{
		URL:     rawURL,
		Title:   title,
		Text:    domain.TruncateRunes(text, maxChars),
		Excerpt: art.Excerpt,
		Byline:  art.Byline,
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
