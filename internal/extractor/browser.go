package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// navigationStatusJS reads the main document's HTTP status; 0 when the
// browser does not expose it.
const navigationStatusJS = `(() => {
  const e = performance.getEntriesByType("navigation")[0];
  return e && e.responseStatus ? e.responseStatus : 0;
})()`

// Browser renders pages in one long-lived Chrome process; each Extract call
// opens its own tab in that browser.
type Browser struct {
	opts  Options
	start func() (*browserSession, error)

	mu      sync.Mutex
	session *browserSession
}

// browserSession pairs the allocator with the browser context. Contexts
// derived from ctx are tabs; cancelling ctx itself closes the browser.
type browserSession struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

func (s *browserSession) close() {
	s.cancel()
	s.allocCancel()
}

func NewBrowser(opts Options) *Browser {
	opts.Timeout = timeoutOrDefault(opts.Timeout)
	b := &Browser{opts: opts}
	b.start = b.launch
	return b
}

// browser returns the shared browser context, starting Chrome (or
// connecting to a remote CDP endpoint) on first use and after it died.
func (b *Browser) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil && b.session.ctx.Err() == nil {
		return b.session.ctx, nil
	}
	if b.session != nil {
		b.session.close()
		b.session = nil
	}
	sess, err := b.start()
	if err != nil {
		return nil, err
	}
	b.session = sess
	return sess.ctx, nil
}

func (b *Browser) launch() (*browserSession, error) {
	base := context.Background()
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cdp := strings.TrimSpace(b.opts.CDPURL); cdp != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, cdp)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", !b.opts.Headful),
			chromedp.Flag("disable-gpu", true),
			chromedp.UserAgent(userAgent),
		)
		if path := strings.TrimSpace(b.opts.ChromePath); path != "" {
			opts = append(opts, chromedp.ExecPath(path))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, opts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return &browserSession{allocCancel: allocCancel, ctx: ctx, cancel: cancel}, nil
}

func (b *Browser) Extract(ctx context.Context, rawURL string) (*domain.Page, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, fetchErr(rawURL, err)
	}

	browserCtx, err := b.browser()
	if err != nil {
		return nil, fetchErr(rawURL, err)
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	runCtx, cancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancel()

	// Tabs derive from the browser context, not from ctx.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		title    string
		html     string
		bodyText string
		status   int64
	)
	err = chromedp.Run(runCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(navigationStatusJS, &status),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fetchErr(rawURL, err)
	}
	if status != 0 && (status < 200 || status >= 300) {
		return nil, fetchErr(rawURL, fmt.Errorf("HTTP %d", status))
	}

	var art Article
	if doc, perr := goquery.NewDocumentFromReader(strings.NewReader(html)); perr == nil {
		art = ParseHTML(doc)
	}
	page := buildPage(rawURL, art, title, bodyText, b.opts.MaxTextChars)

	// A failed screenshot keeps the page.
	var shot []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&shot, 100)); err == nil {
		page.Screenshot = shot
	}
	return page, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.close()
		b.session = nil
	}
}
