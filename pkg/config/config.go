package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	OTLPInsecure bool    `yaml:"otlpInsecure"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Config struct {
	Port               int      `yaml:"port"`
	Env                string   `yaml:"env"`
	LogLevel           string   `yaml:"logLevel"`
	LogFormat          string   `yaml:"logFormat"`
	ArtifactsDir       string   `yaml:"artifactsDir"`
	CorsAllowedOrigins []string `yaml:"corsAllowedOrigins"`

	SearchProvider        string `yaml:"searchProvider"`
	SearchMaxResults      int    `yaml:"searchMaxResults"`
	SearchTimeoutSeconds  int    `yaml:"searchTimeoutSeconds"`
	SerpAPIKey            string `yaml:"serpApiKey"`
	SearchCacheProvider   string `yaml:"searchCacheProvider"`
	SearchCacheTTLSeconds int    `yaml:"searchCacheTtlSeconds"`
	SearchCacheSize       int    `yaml:"searchCacheSize"`
	RedisAddr             string `yaml:"redisAddr"`
	RedisPassword         string `yaml:"redisPassword"`

	ExtractorMode         string `yaml:"extractorMode"`
	ExtractTimeoutSeconds int    `yaml:"extractTimeoutSeconds"`
	MaxTextChars          int    `yaml:"maxTextChars"`
	ChromePath            string `yaml:"chromePath"`
	ChromeCDPURL          string `yaml:"chromeCdpUrl"`
	BrowserHeadful        bool   `yaml:"browserHeadful"`

	LLMAPIKey          string `yaml:"llmApiKey"`
	LLMBaseURL         string `yaml:"llmBaseUrl"`
	LLMModel           string `yaml:"llmModel"`
	LLMTimeoutSeconds  int    `yaml:"llmTimeoutSeconds"`
	PromptExcerptChars int    `yaml:"promptExcerptChars"`

	MaxTasks           int `yaml:"maxTasks"`
	TaskTTLSeconds     int `yaml:"taskTtlSeconds"`
	VisitConcurrency   int `yaml:"visitConcurrency"`
	MaxConcurrentTasks int `yaml:"maxConcurrentTasks"`

	BackoffPolicy     string `yaml:"backoffPolicy"`
	BackoffBaseMillis int    `yaml:"backoffBaseMillis"`
	BackoffMaxMillis  int    `yaml:"backoffMaxMillis"`
	RetryMaxAttempts  int    `yaml:"retryMaxAttempts"`

	TrustedDomains     []string `yaml:"trustedDomains"`
	BlacklistedDomains []string `yaml:"blacklistedDomains"`

	Tracing TracingConfig `yaml:"tracing"`
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

// LoadConfigOptional loads filePath when it exists and otherwise starts from
// an empty config; env overrides and defaults apply in both cases.
func LoadConfigOptional(filePath string) (*Config, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath != "" {
		cfg, err := LoadConfig(filePath)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	var c Config
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	envInt("PORT", &c.Port)
	envString("ENV", &c.Env)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	envString("ARTIFACTS_DIR", &c.ArtifactsDir)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CorsAllowedOrigins = splitList(v)
	}

	envString("SEARCH_PROVIDER", &c.SearchProvider)
	envInt("SEARCH_MAX_RESULTS", &c.SearchMaxResults)
	envInt("SEARCH_TIMEOUT_SECONDS", &c.SearchTimeoutSeconds)
	envString("SERPAPI_KEY", &c.SerpAPIKey)
	envString("SEARCH_CACHE_PROVIDER", &c.SearchCacheProvider)
	envInt("SEARCH_CACHE_TTL_SECONDS", &c.SearchCacheTTLSeconds)
	envString("REDIS_ADDR", &c.RedisAddr)
	envString("REDIS_PASSWORD", &c.RedisPassword)

	envString("EXTRACTOR_MODE", &c.ExtractorMode)
	envInt("EXTRACT_TIMEOUT_SECONDS", &c.ExtractTimeoutSeconds)
	envString("CHROME_PATH", &c.ChromePath)
	envString("CHROME_CDP_URL", &c.ChromeCDPURL)

	envString("OPENAI_API_KEY", &c.LLMAPIKey)
	envString("OPENAI_BASE_URL", &c.LLMBaseURL)
	envString("LLM_MODEL", &c.LLMModel)
	envInt("LLM_TIMEOUT_SECONDS", &c.LLMTimeoutSeconds)

	envInt("MAX_TASKS", &c.MaxTasks)
	envInt("TASK_TTL_SECONDS", &c.TaskTTLSeconds)
	envInt("VISIT_CONCURRENCY", &c.VisitConcurrency)
	envInt("MAX_CONCURRENT_TASKS", &c.MaxConcurrentTasks)

	envString("BACKOFF_POLICY", &c.BackoffPolicy)

	envBool("OTEL_ENABLED", &c.Tracing.Enabled)
	envString("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	envString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
	envBool("OTEL_EXPORTER_OTLP_INSECURE", &c.Tracing.OTLPInsecure)
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = "./artifacts"
	}
	if len(c.CorsAllowedOrigins) == 0 {
		c.CorsAllowedOrigins = []string{"*"}
	}
	if c.SearchProvider == "" {
		c.SearchProvider = "duckduckgo"
	}
	if c.SearchMaxResults <= 0 {
		c.SearchMaxResults = 5
	}
	if c.SearchTimeoutSeconds <= 0 {
		c.SearchTimeoutSeconds = 10
	}
	if c.SearchCacheProvider == "" {
		c.SearchCacheProvider = "memory"
	}
	if c.SearchCacheTTLSeconds <= 0 {
		c.SearchCacheTTLSeconds = 600
	}
	if c.SearchCacheSize <= 0 {
		c.SearchCacheSize = 512
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.ExtractorMode == "" {
		c.ExtractorMode = "browser"
	}
	if c.ExtractTimeoutSeconds <= 0 {
		c.ExtractTimeoutSeconds = 15
	}
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = 10000
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "https://api.openai.com/v1"
	}
	if c.LLMModel == "" {
		c.LLMModel = "gpt-4o-mini"
	}
	if c.LLMTimeoutSeconds <= 0 {
		c.LLMTimeoutSeconds = 120
	}
	if c.PromptExcerptChars <= 0 {
		c.PromptExcerptChars = 8000
	}
	if c.LLMAPIKey == "" {
		log.Println("Warning: llmApiKey not set, summaries will use the fallback report")
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = 10000
	}
	if c.TaskTTLSeconds <= 0 {
		c.TaskTTLSeconds = 86400
	}
	if c.VisitConcurrency <= 0 {
		c.VisitConcurrency = 1
	}
	if c.MaxConcurrentTasks <= 0 {
		c.MaxConcurrentTasks = 4
	}
	if c.BackoffPolicy == "" {
		c.BackoffPolicy = "exp_full_jitter"
	}
	if c.BackoffBaseMillis <= 0 {
		c.BackoffBaseMillis = 250
	}
	if c.BackoffMaxMillis <= 0 {
		c.BackoffMaxMillis = 4000
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = 3
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "ai-web-research"
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = "localhost:4317"
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 0 and 65535")
	}
	switch c.SearchProvider {
	case "duckduckgo":
	case "serpapi":
		if strings.TrimSpace(c.SerpAPIKey) == "" {
			errs = append(errs, "serpApiKey is required when searchProvider=serpapi")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown searchProvider %q", c.SearchProvider))
	}
	switch c.SearchCacheProvider {
	case "memory", "redis", "none":
	default:
		errs = append(errs, fmt.Sprintf("unknown searchCacheProvider %q", c.SearchCacheProvider))
	}
	switch c.ExtractorMode {
	case "browser", "http":
	default:
		errs = append(errs, fmt.Sprintf("unknown extractorMode %q", c.ExtractorMode))
	}
	if c.ChromeCDPURL != "" {
		u, err := url.Parse(c.ChromeCDPURL)
		if err != nil || u.Host == "" {
			errs = append(errs, "chromeCdpUrl must be a valid ws(s)/http(s) URL")
		}
	}
	u, err := url.Parse(c.LLMBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "llmBaseUrl must be a valid http(s) URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
