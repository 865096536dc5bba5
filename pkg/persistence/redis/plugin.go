package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/providers"
	"github.com/lemonbanan4/ai-web-research/pkg/persistence"

	"github.com/go-redis/redis/v8"
)

const (
	defaultKeyPrefix = "research:cache:"
	defaultTTL       = 10 * time.Minute
)

// Config holds Redis-specific configuration
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// Plugin implements persistence.Store on Redis/KVRocks
type Plugin struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	ownsClient bool
}

// NewPlugin creates a new Redis store plugin
func NewPlugin(config persistence.PluginConfig) (persistence.Store, error) {
	var cfg Config
	if err := json.Unmarshal(config.Config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis cache: addr is required")
	}

	client := providers.NewRedisProvider(cfg.Addr, cfg.Password, cfg.DB)
	p := NewWithClient(client, config)
	p.ownsClient = true
	return p, nil
}

// NewWithClient wraps an existing client; Close leaves it open.
func NewWithClient(client *redis.Client, config persistence.PluginConfig) *Plugin {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Plugin{client: client, prefix: prefix, defaultTTL: ttl}
}

func (p *Plugin) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Plugin) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	return p.client.Set(ctx, p.prefix+key, value, ttl).Err()
}

func (p *Plugin) Delete(ctx context.Context, key string) error {
	return p.client.Del(ctx, p.prefix+key).Err()
}

// Health pings Redis
func (p *Plugin) Health(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the client when the plugin created it
func (p *Plugin) Close() error {
	if !p.ownsClient {
		return nil
	}
	return p.client.Close()
}

func init() {
	persistence.RegisterProvider("redis", NewPlugin)
}
