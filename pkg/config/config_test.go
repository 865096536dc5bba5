package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoadConfigOptional_EmptyPath tests loading when file path is empty
func TestLoadConfigOptional_EmptyPath(t *testing.T) {
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional with empty path should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected Port=9999 from env, got %d", cfg.Port)
	}
}

// TestLoadConfigOptional_WhitespacePath tests loading when file path is only whitespace
func TestLoadConfigOptional_WhitespacePath(t *testing.T) {
	cfg, err := LoadConfigOptional("   ")
	if err != nil {
		t.Fatalf("LoadConfigOptional with whitespace path should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
}

// TestLoadConfigOptional_FileNotExist tests loading when file does not exist
func TestLoadConfigOptional_FileNotExist(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "config-does-not-exist.yaml")

	cfg, err := LoadConfigOptional(nonExistentPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional with non-existent file should not error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected non-nil config")
	}
}

// TestLoadConfigOptional_InvalidYAML tests loading when file exists but has invalid YAML
func TestLoadConfigOptional_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
port: 8080
searchProvider: "duckduckgo"
  invalid indentation here
  more bad yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadConfigOptional(configPath); err == nil {
		t.Fatal("Expected error when loading invalid YAML, got nil")
	}
}

func TestLoadConfigOptional_ValidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "valid.yaml")

	validYAML := `
port: 8080
env: "test"
searchProvider: "serpapi"
serpApiKey: "serp-key"
searchMaxResults: 3
visitConcurrency: 2
trustedDomains: ["example.org"]
tracing:
  enabled: true
  sampleRatio: 0.5
`
	if err := os.WriteFile(configPath, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	cfg, err := LoadConfigOptional(configPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional with valid config should not error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected Port=8080, got %d", cfg.Port)
	}
	if cfg.SearchProvider != "serpapi" || cfg.SerpAPIKey != "serp-key" {
		t.Errorf("Expected serpapi provider with key, got %q/%q", cfg.SearchProvider, cfg.SerpAPIKey)
	}
	if cfg.SearchMaxResults != 3 {
		t.Errorf("Expected SearchMaxResults=3, got %d", cfg.SearchMaxResults)
	}
	if cfg.VisitConcurrency != 2 {
		t.Errorf("Expected VisitConcurrency=2, got %d", cfg.VisitConcurrency)
	}
	if len(cfg.TrustedDomains) != 1 || cfg.TrustedDomains[0] != "example.org" {
		t.Errorf("Expected trusted domains from file, got %v", cfg.TrustedDomains)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 0.5 {
		t.Errorf("Expected tracing block to load, got %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

// TestLoadConfigOptional_EnvOverrides tests that environment variables override file values
func TestLoadConfigOptional_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configYAML := `
port: 8080
llmApiKey: "file-key"
redisAddr: "localhost:6379"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, http://b.local")

	cfg, err := LoadConfigOptional(configPath)
	if err != nil {
		t.Fatalf("LoadConfigOptional should not error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected Port=9090 from env, got %d", cfg.Port)
	}
	if cfg.LLMAPIKey != "env-key" {
		t.Errorf("Expected LLMAPIKey from env, got %q", cfg.LLMAPIKey)
	}
	if cfg.RedisAddr != "env-redis:6380" {
		t.Errorf("Expected RedisAddr='env-redis:6380' from env, got %q", cfg.RedisAddr)
	}
	if len(cfg.CorsAllowedOrigins) != 2 || cfg.CorsAllowedOrigins[1] != "http://b.local" {
		t.Errorf("Expected two CORS origins, got %v", cfg.CorsAllowedOrigins)
	}
}

func TestTracingEnvOverrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SERVICE_NAME", "research-staging")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	tc := cfg.Tracing
	if !tc.Enabled || !tc.OTLPInsecure {
		t.Errorf("Expected tracing enabled and insecure, got %+v", tc)
	}
	if tc.ServiceName != "research-staging" || tc.OTLPEndpoint != "http://collector:4317" {
		t.Errorf("Unexpected tracing overrides: %+v", tc)
	}
	if tc.SampleRatio != 1 {
		t.Errorf("SampleRatio = %v, want 1", tc.SampleRatio)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfigOptional("")
	if err != nil {
		t.Fatalf("LoadConfigOptional: %v", err)
	}
	if cfg.SearchMaxResults != 5 {
		t.Errorf("SearchMaxResults = %d, want 5", cfg.SearchMaxResults)
	}
	if cfg.ExtractTimeoutSeconds != 15 {
		t.Errorf("ExtractTimeoutSeconds = %d, want 15", cfg.ExtractTimeoutSeconds)
	}
	if cfg.MaxTextChars != 10000 {
		t.Errorf("MaxTextChars = %d, want 10000", cfg.MaxTextChars)
	}
	if cfg.PromptExcerptChars != 8000 {
		t.Errorf("PromptExcerptChars = %d, want 8000", cfg.PromptExcerptChars)
	}
	if cfg.VisitConcurrency != 1 {
		t.Errorf("VisitConcurrency = %d, want 1", cfg.VisitConcurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"serpapi without key", func(c *Config) { c.SearchProvider = "serpapi" }, "serpApiKey"},
		{"unknown provider", func(c *Config) { c.SearchProvider = "bing" }, "searchProvider"},
		{"unknown cache", func(c *Config) { c.SearchCacheProvider = "disk" }, "searchCacheProvider"},
		{"unknown extractor", func(c *Config) { c.ExtractorMode = "lynx" }, "extractorMode"},
		{"bad llm url", func(c *Config) { c.LLMBaseURL = "ftp://x" }, "llmBaseUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := LoadConfigOptional("")
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}
