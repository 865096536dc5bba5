package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig contains provider-specific configuration
type ProviderConfig struct {
	Type   string          `yaml:"type" json:"type"`
	Config json.RawMessage `yaml:"config" json:"config"`
}

// PluginConfig provides initialization parameters to store plugins
type PluginConfig struct {
	// Config contains plugin-specific configuration
	Config json.RawMessage

	// DefaultTTL applies when Set is called without a ttl
	DefaultTTL time.Duration

	// MaxEntries bounds in-process backends
	MaxEntries int

	// KeyPrefix namespaces keys in shared backends
	KeyPrefix string
}

// PluginFactory creates store plugins from configuration
type PluginFactory func(config PluginConfig) (Store, error)

var (
	registry = make(map[string]PluginFactory)
	mu       sync.RWMutex
)

// RegisterProvider registers a store plugin factory for a provider type
func RegisterProvider(providerType string, factory PluginFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

// NewStore creates a store plugin from provider configuration
func NewStore(providerConfig ProviderConfig, pluginConfig PluginConfig) (Store, error) {
	mu.RLock()
	factory, ok := registry[providerConfig.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown cache provider type: %s", providerConfig.Type)
	}

	if len(providerConfig.Config) > 0 {
		pluginConfig.Config = providerConfig.Config
	}
	if len(pluginConfig.Config) == 0 {
		pluginConfig.Config = json.RawMessage("{}")
	}

	return factory(pluginConfig)
}

// ListProviders returns registered provider types in sorted order
func ListProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}
