package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/backoff"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	cbackoff "github.com/cenkalti/backoff/v5"
)

// Retrying retries transient discovery failures with a backoff policy.
type Retrying struct {
	next    Discoverer
	retrier backoff.Retrier
	logger  *slog.Logger
}

func NewRetrying(next Discoverer, retrier backoff.Retrier, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, retrier: retrier, logger: logger}
}

func (r *Retrying) Name() string { return nameOf(r.next) }

func (r *Retrying) Discover(ctx context.Context, query string, max int) ([]string, error) {
	op := func() ([]string, error) {
		urls, err := r.next.Discover(ctx, query, max)
		if err != nil && !Transient(err) {
			return nil, cbackoff.Permanent(err)
		}
		return urls, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("search retry", "provider", r.Name(), "err", err, "wait", wait)
	}
	urls, err := backoff.Retry(ctx, r.retrier, op, notify)
	if err != nil {
		// Retry reports a deadline hit during backoff as the bare context error.
		var pe *domain.ProviderError
		if !errors.As(err, &pe) {
			err = &domain.ProviderError{Provider: r.Name(), Err: err}
		}
		return nil, err
	}
	return urls, nil
}

func nameOf(d Discoverer) string {
	if n, ok := d.(Named); ok {
		return n.Name()
	}
	return "custom"
}
