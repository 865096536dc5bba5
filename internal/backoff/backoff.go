package backoff

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

// Compute returns the delay before retry number attempts (0-based) for policy.
// Unknown policies behave as exp_full_jitter.
func Compute(policy string, base, max time.Duration, attempts int, rng *rand.Rand) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		base = time.Millisecond
	}
	if max <= 0 {
		max = base
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	switch policy {
	case "fixed":
		return minDuration(base, max)
	case "linear":
		return minDuration(base*time.Duration(maxInt(1, attempts)), max)
	case "exponential":
		return exp(base, max, attempts)
	case "exp_equal_jitter":
		maxDelay := exp(base, max, attempts)
		half := maxDelay / 2
		return half + time.Duration(rng.Int63n(int64(half)+1))
	default: // exp_full_jitter
		maxDelay := exp(base, max, attempts)
		if maxDelay <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(maxDelay) + 1))
	}
}

// Policy adapts Compute to cenkalti/backoff so it can drive backoff.Retry.
type Policy struct {
	Name string
	Base time.Duration
	Max  time.Duration

	mu      sync.Mutex
	attempt int
	rng     *rand.Rand
}

var _ cbackoff.BackOff = (*Policy)(nil)

func NewPolicy(name string, base, max time.Duration) *Policy {
	return &Policy{
		Name: name,
		Base: base,
		Max:  max,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Policy) NextBackOff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := Compute(p.Name, p.Base, p.Max, p.attempt, p.rng)
	p.attempt++
	return d
}

func (p *Policy) Reset() {
	p.mu.Lock()
	p.attempt = 0
	p.mu.Unlock()
}

// Retrier bounds retries of an operation with a named policy.
type Retrier struct {
	Policy     string
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// Retry runs op until it succeeds, returns a cbackoff.Permanent error, the
// retry budget is spent or ctx is done. notify may be nil.
func Retry[T any](ctx context.Context, r Retrier, op func() (T, error), notify func(error, time.Duration)) (T, error) {
	opts := []cbackoff.RetryOption{
		cbackoff.WithBackOff(NewPolicy(r.Policy, r.Base, r.Max)),
		cbackoff.WithMaxTries(uint(maxInt(r.MaxRetries, 0) + 1)),
	}
	if notify != nil {
		opts = append(opts, cbackoff.WithNotify(notify))
	}
	return cbackoff.Retry(ctx, op, opts...)
}

func exp(base, max time.Duration, attempts int) time.Duration {
	f := float64(base) * math.Pow(2, float64(attempts))
	if f > float64(max) || math.IsInf(f, 1) {
		return max
	}
	return time.Duration(f)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
