package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/backoff"
	"github.com/lemonbanan4/ai-web-research/internal/discovery"
	"github.com/lemonbanan4/ai-web-research/internal/extractor"
	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/internal/metrics"
	"github.com/lemonbanan4/ai-web-research/internal/middleware"
	"github.com/lemonbanan4/ai-web-research/internal/providers"
	"github.com/lemonbanan4/ai-web-research/internal/reliability"
	"github.com/lemonbanan4/ai-web-research/internal/repository"
	"github.com/lemonbanan4/ai-web-research/internal/services"
	"github.com/lemonbanan4/ai-web-research/internal/synthesis"
	"github.com/lemonbanan4/ai-web-research/internal/tracing"
	"github.com/lemonbanan4/ai-web-research/pkg/config"
	"github.com/lemonbanan4/ai-web-research/pkg/persistence"
	_ "github.com/lemonbanan4/ai-web-research/pkg/persistence/memory" // in-process search cache
	_ "github.com/lemonbanan4/ai-web-research/pkg/persistence/redis"  // shared search cache

	"github.com/gin-gonic/gin"
)

type Application struct {
	Config          *config.Config
	Engine          *gin.Engine
	Registry        repository.TaskRegistry
	Research        services.ResearchService
	Reports         services.ReportService
	Chat            services.ChatService
	Artifacts       providers.ArtifactStore
	SearchCache     persistence.Store
	Logger          *slog.Logger
	TracingShutdown func(context.Context) error

	discoverer     discovery.Discoverer
	extractor      extractor.Extractor
	closeExtractor func()
	llmClient      llm.Client
	llmSet         bool
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithDiscoverer replaces the configured search provider.
func WithDiscoverer(d discovery.Discoverer) ApplicationOption {
	return func(app *Application) error {
		app.discoverer = d
		return nil
	}
}

// WithExtractor replaces the configured page extractor.
func WithExtractor(e extractor.Extractor) ApplicationOption {
	return func(app *Application) error {
		app.extractor = e
		return nil
	}
}

// WithLLMClient replaces the OpenAI client; nil disables summaries and chat.
func WithLLMClient(c llm.Client) ApplicationOption {
	return func(app *Application) error {
		app.llmClient = c
		app.llmSet = true
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "ai-web-research", "env", cfg.Env)
	slog.SetDefault(logger)

	app := &Application{Config: cfg, Logger: logger}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	tracingShutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
		Environment:  cfg.Env,
	}, logger)
	if err != nil {
		return nil, err
	}
	app.TracingShutdown = tracingShutdown

	artifacts, err := providers.NewLocalArtifactStore(cfg.ArtifactsDir)
	if err != nil {
		return nil, err
	}
	app.Artifacts = artifacts

	retrier := backoff.Retrier{
		Policy:     cfg.BackoffPolicy,
		Base:       time.Duration(cfg.BackoffBaseMillis) * time.Millisecond,
		Max:        time.Duration(cfg.BackoffMaxMillis) * time.Millisecond,
		MaxRetries: cfg.RetryMaxAttempts,
	}

	if app.discoverer == nil {
		store, err := newSearchCache(cfg)
		if err != nil {
			return nil, err
		}
		app.SearchCache = store

		d, err := discovery.New(discovery.Options{
			Provider:   cfg.SearchProvider,
			SerpAPIKey: cfg.SerpAPIKey,
			Timeout:    time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		d = discovery.NewRetrying(d, retrier, logger)
		if store != nil {
			d = discovery.NewCached(d, store, time.Duration(cfg.SearchCacheTTLSeconds)*time.Second, logger)
		}
		app.discoverer = d
	}

	app.closeExtractor = func() {}
	if app.extractor == nil {
		ext, closeFn, err := extractor.New(extractor.Options{
			Mode:         cfg.ExtractorMode,
			Timeout:      time.Duration(cfg.ExtractTimeoutSeconds) * time.Second,
			MaxTextChars: cfg.MaxTextChars,
			ChromePath:   cfg.ChromePath,
			CDPURL:       cfg.ChromeCDPURL,
			Headful:      cfg.BrowserHeadful,
		})
		if err != nil {
			return nil, err
		}
		app.extractor, app.closeExtractor = ext, closeFn
	}

	if !app.llmSet {
		app.llmClient = llm.NewOpenAIClient(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
			Retrier: retrier,
			Logger:  logger,
		})
	}

	app.Registry = repository.NewTaskRegistry(cfg.MaxTasks, time.Duration(cfg.TaskTTLSeconds)*time.Second)
	app.Research = services.NewResearchService(services.ResearchDeps{
		Registry:    app.Registry,
		Discoverer:  app.discoverer,
		Extractor:   app.extractor,
		Scorer:      reliability.NewScorer(orNil(cfg.TrustedDomains), orNil(cfg.BlacklistedDomains)),
		Synthesizer: synthesis.New(app.llmClient, cfg.PromptExcerptChars),
		Artifacts:   artifacts,
		Logger:      logger,
		Config: services.ResearchConfig{
			MaxResults:         cfg.SearchMaxResults,
			SearchTimeout:      time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
			ExtractTimeout:     time.Duration(cfg.ExtractTimeoutSeconds) * time.Second,
			VisitConcurrency:   cfg.VisitConcurrency,
			MaxConcurrentTasks: cfg.MaxConcurrentTasks,
		},
	})
	app.Reports = services.NewReportService(artifacts, logger, time.Now)
	app.Chat = services.NewChatService(app.llmClient, logger)

	var cacheHealth metrics.HealthFunc
	if app.SearchCache != nil {
		cacheHealth = app.SearchCache.Health
	}
	metrics.RegisterRegistryCollector(app.Registry, cacheHealth, logger)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.TracingMiddleware(cfg.Tracing.ServiceName),
		middleware.CORSMiddleware(cfg.CorsAllowedOrigins),
	)
	app.Engine = engine

	if app.llmClient == nil {
		logger.Warn("LLM API key not set; summaries fall back to source listings and chat is unavailable")
	}
	return app, nil
}

// Shutdown drains research runs, then releases shared clients.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Research.Shutdown(ctx)
	if a.closeExtractor != nil {
		a.closeExtractor()
	}
	if a.SearchCache != nil {
		if cerr := a.SearchCache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if a.TracingShutdown != nil {
		if terr := a.TracingShutdown(ctx); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}

func newSearchCache(cfg *config.Config) (persistence.Store, error) {
	providerCfg := persistence.ProviderConfig{Type: cfg.SearchCacheProvider}
	switch cfg.SearchCacheProvider {
	case "", "none":
		return nil, nil
	case "redis":
		raw, err := json.Marshal(map[string]any{"addr": cfg.RedisAddr, "password": cfg.RedisPassword})
		if err != nil {
			return nil, err
		}
		providerCfg.Config = raw
	}
	store, err := persistence.NewStore(providerCfg, persistence.PluginConfig{
		DefaultTTL: time.Duration(cfg.SearchCacheTTLSeconds) * time.Second,
		MaxEntries: cfg.SearchCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	return store, nil
}

func orNil(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return list
}
