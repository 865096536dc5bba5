package memory

import (
	"context"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/persistence"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxEntries = 512
	defaultTTL        = 10 * time.Minute
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Plugin implements persistence.Store in process memory.
// Entries are bounded by count and by the plugin default TTL; a shorter
// per-call ttl is enforced on read.
type Plugin struct {
	lru        *expirable.LRU[string, entry]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewPlugin creates a new in-memory store plugin
func NewPlugin(config persistence.PluginConfig) (persistence.Store, error) {
	return newPlugin(config), nil
}

func newPlugin(config persistence.PluginConfig) *Plugin {
	size := config.MaxEntries
	if size <= 0 {
		size = defaultMaxEntries
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Plugin{
		lru:        expirable.NewLRU[string, entry](size, nil, ttl),
		defaultTTL: ttl,
		now:        time.Now,
	}
}

func (p *Plugin) Get(ctx context.Context, key string) ([]byte, error) {
	e, ok := p.lru.Get(key)
	if !ok {
		return nil, persistence.ErrNotFound
	}
	if !e.expiresAt.IsZero() && p.now().After(e.expiresAt) {
		p.lru.Remove(key)
		return nil, persistence.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (p *Plugin) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	p.lru.Add(key, entry{
		value:     append([]byte(nil), value...),
		expiresAt: p.now().Add(ttl),
	})
	return nil
}

func (p *Plugin) Delete(ctx context.Context, key string) error {
	p.lru.Remove(key)
	return nil
}

// Len reports the number of live entries
func (p *Plugin) Len() int {
	return p.lru.Len()
}

// Health always returns nil for in-memory storage
func (p *Plugin) Health(ctx context.Context) error {
	return nil
}

// Close drops all entries
func (p *Plugin) Close() error {
	p.lru.Purge()
	return nil
}

func init() {
	persistence.RegisterProvider("memory", NewPlugin)
}
