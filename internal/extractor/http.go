package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxRedirects = 10
	maxBodyBytes = 5 << 20
	userAgent    = "Mozilla/5.0 (compatible; ai-web-research/1.0)"
)

// HTTP extracts pages with a plain GET. It does not run scripts and takes
// no screenshot.
type HTTP struct {
	client *http.Client
	opts   Options
}

func NewHTTP(client *http.Client, opts Options) *HTTP {
	opts.Timeout = timeoutOrDefault(opts.Timeout)
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	return &HTTP{client: client, opts: opts}
}

func (h *HTTP) Extract(ctx context.Context, rawURL string) (*domain.Page, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, fetchErr(rawURL, err)
	}
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fetchErr(rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fetchErr(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetchErr(rawURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		if mt != "text/html" && mt != "application/xhtml+xml" {
			return nil, fetchErr(rawURL, fmt.Errorf("unsupported content type %q", mt))
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fetchErr(rawURL, err)
		}
		return nil, fetchErr(rawURL, fmt.Errorf("parse HTML: %w", err))
	}

	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	art := ParseHTML(doc)
	return buildPage(rawURL, art, pageTitle, doc.Find("body").Text(), h.opts.MaxTextChars), nil
}
