package persistence

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired
	ErrNotFound = errors.New("not found")
)

// Store is a byte-oriented key/value cache with per-entry TTL.
// All backends must be safe for concurrent use.
type Store interface {
	// Get returns the value for key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key; ttl <= 0 uses the plugin default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key; missing keys are not an error
	Delete(ctx context.Context, key string) error

	// Health checks if the backend is reachable
	Health(ctx context.Context) error

	// Close releases resources held by the backend
	Close() error
}
