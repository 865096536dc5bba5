package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/metrics"
	"github.com/lemonbanan4/ai-web-research/pkg/persistence"
)

// Cached serves repeated queries from a persistence.Store. Only non-empty
// results are cached; store failures are logged and bypassed.
type Cached struct {
	next   Discoverer
	store  persistence.Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Discoverer, store persistence.Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *Cached) Name() string { return nameOf(c.next) }

func (c *Cached) Discover(ctx context.Context, query string, max int) ([]string, error) {
	key := cacheKey(c.Name(), query, max)

	b, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var urls []string
		if jerr := json.Unmarshal(b, &urls); jerr == nil && len(urls) > 0 {
			metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
			return urls, nil
		}
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	case errors.Is(err, persistence.ErrNotFound):
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn("search cache read failed", "err", err)
	}

	urls, err := c.next.Discover(ctx, query, max)
	if err != nil || len(urls) == 0 {
		return urls, err
	}
	if b, jerr := json.Marshal(urls); jerr == nil {
		if serr := c.store.Set(ctx, key, b, c.ttl); serr != nil {
			c.logger.Warn("search cache write failed", "err", serr)
		}
	}
	return urls, nil
}

func cacheKey(provider, query string, max int) string {
	norm := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(norm))
	return "discovery:" + provider + ":" + strconv.Itoa(max) + ":" + hex.EncodeToString(sum[:])
}
