// Package discovery finds candidate source URLs for a research query.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/metrics"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

const (
	DefaultMaxResults = 5
	DefaultTimeout    = 10 * time.Second
)

// Discoverer returns an ordered, deduplicated list of at most max URLs.
// No results is an empty slice, not an error; provider failures are
// *domain.ProviderError.
type Discoverer interface {
	Discover(ctx context.Context, query string, max int) ([]string, error)
}

// Named is implemented by discoverers that report a provider name.
type Named interface {
	Name() string
}

// Options configures the provider returned by New.
type Options struct {
	Provider   string
	SerpAPIKey string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New builds the base provider named by opts.Provider.
func New(opts Options) (Discoverer, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "duckduckgo":
		return NewDuckDuckGo(client, ""), nil
	case "serpapi":
		if strings.TrimSpace(opts.SerpAPIKey) == "" {
			return nil, &domain.ConfigError{Key: "serpApiKey"}
		}
		return NewSerpAPI(client, "", opts.SerpAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", opts.Provider)
	}
}

// statusError is a non-2xx provider response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transient reports whether err is worth retrying: network failures,
// timeouts, 429 and 5xx responses.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// dedupe keeps first occurrences of non-empty URLs, capped at max.
func dedupe(urls []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxResults
	}
	out := make([]string, 0, max)
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == max {
			break
		}
	}
	return out
}

func observe(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.DiscoveryTotal.WithLabelValues(provider, outcome).Inc()
}
