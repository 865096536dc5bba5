package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/discovery"
	"github.com/lemonbanan4/ai-web-research/internal/extractor"
	"github.com/lemonbanan4/ai-web-research/internal/metrics"
	"github.com/lemonbanan4/ai-web-research/internal/providers"
	"github.com/lemonbanan4/ai-web-research/internal/reliability"
	"github.com/lemonbanan4/ai-web-research/internal/repository"
	"github.com/lemonbanan4/ai-web-research/internal/synthesis"
	"github.com/lemonbanan4/ai-web-research/internal/tracing"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxResults         = 5
	DefaultSearchTimeout      = 10 * time.Second
	DefaultVisitConcurrency   = 1
	DefaultMaxConcurrentTasks = 4
)

var (
	ErrServiceClosed = errors.New("research service is shutting down")
	ErrNotScheduled  = errors.New("task has no scheduled run")
)

// ResearchService owns the task state machine:
// Starting -> Searching -> Visiting(i/n) -> Summarizing -> Done.
// Every run ends in Done; stage failures degrade the result instead of
// aborting it.
type ResearchService interface {
	Submit(ctx context.Context, query string) (*domain.Task, error)
	Get(ctx context.Context, id string) (*domain.Task, error)
	// Run executes the pipeline for a registered task and returns once it is Done.
	Run(ctx context.Context, task *domain.Task)
	Wait(ctx context.Context, id string) error
	Shutdown(ctx context.Context) error
}

type ResearchConfig struct {
	MaxResults         int
	SearchTimeout      time.Duration
	ExtractTimeout     time.Duration
	VisitConcurrency   int
	MaxConcurrentTasks int
}

type ResearchDeps struct {
	Registry    repository.TaskRegistry
	Discoverer  discovery.Discoverer
	Extractor   extractor.Extractor
	Scorer      *reliability.Scorer
	Synthesizer *synthesis.Synthesizer
	Artifacts   providers.ArtifactStore
	Logger      *slog.Logger
	Config      ResearchConfig
	Now         func() time.Time
}

type researchService struct {
	registry   repository.TaskRegistry
	discoverer discovery.Discoverer
	extractor  extractor.Extractor
	scorer     *reliability.Scorer
	synth      *synthesis.Synthesizer
	artifacts  providers.ArtifactStore
	logger     *slog.Logger
	cfg        ResearchConfig
	now        func() time.Time
	tracer     trace.Tracer

	baseCtx context.Context
	cancel  context.CancelFunc
	sem     chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	done   map[string]chan struct{}
	closed bool
}

func NewResearchService(deps ResearchDeps) ResearchService {
	cfg := deps.Config
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = extractor.DefaultTimeout
	}
	if cfg.VisitConcurrency <= 0 {
		cfg.VisitConcurrency = DefaultVisitConcurrency
	}
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = DefaultMaxConcurrentTasks
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = reliability.NewScorer(nil, nil)
	}
	synth := deps.Synthesizer
	if synth == nil {
		synth = synthesis.New(nil, 0)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &researchService{
		registry:   deps.Registry,
		discoverer: deps.Discoverer,
		extractor:  deps.Extractor,
		scorer:     scorer,
		synth:      synth,
		artifacts:  deps.Artifacts,
		logger:     logger,
		cfg:        cfg,
		now:        now,
		tracer:     otel.Tracer("research/orchestrator"),
		baseCtx:    baseCtx,
		cancel:     cancel,
		sem:        make(chan struct{}, cfg.MaxConcurrentTasks),
		done:       make(map[string]chan struct{}),
	}
}

func (s *researchService) Submit(ctx context.Context, query string) (*domain.Task, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidQuery
	}

	traceParent, traceState := tracing.Capture(ctx)
	task := &domain.Task{
		ID:          uuid.NewString(),
		Query:       query,
		Status:      domain.StatusStarting,
		Stage:       domain.StageStarting,
		Steps:       []string{},
		CreatedAt:   s.now(),
		TraceParent: traceParent,
		TraceState:  traceState,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}
	if err := s.registry.Create(ctx, task); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	s.done[task.ID] = done
	s.wg.Add(1)
	go s.schedule(task, done)

	metrics.TasksSubmittedTotal.Inc()
	s.logger.Info("research task submitted", "task_id", task.ID, "query", query)
	return task.Clone(), nil
}

// schedule waits for a run slot; the task reports Starting until it gets one.
func (s *researchService) schedule(task *domain.Task, done chan struct{}) {
	defer s.wg.Done()
	defer func() {
		close(done)
		s.mu.Lock()
		delete(s.done, task.ID)
		s.mu.Unlock()
	}()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-s.baseCtx.Done():
		// Shutting down: run anyway so the task still reaches Done, every
		// external call fails fast on the canceled context.
	}
	s.Run(s.baseCtx, task)
}

func (s *researchService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.registry.Get(ctx, id)
}

func (s *researchService) Run(ctx context.Context, task *domain.Task) {
	start := s.now()
	logger := s.logger.With("task_id", task.ID)
	ctx = tracing.Resume(ctx, task.TraceParent, task.TraceState)
	ctx, span := s.tracer.Start(ctx, "research.task.run",
		trace.WithAttributes(
			attribute.String("research.task_id", task.ID),
			attribute.String("research.query", task.Query),
		),
	)
	defer span.End()

	var sources []domain.SourceRecord
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("research run panicked", "panic", r, "stack", string(debug.Stack()))
		span.SetStatus(codes.Error, "panic")
		s.appendStep(ctx, logger, task.ID, "Research aborted: internal error")
		s.complete(ctx, logger, task, synthesis.Fallback(task.Query, sources), sources, "panic", start)
	}()

	urls := s.search(ctx, logger, task)
	sources = s.visit(ctx, logger, task, urls)
	summary, outcome := s.summarize(ctx, logger, task, sources)

	s.appendStep(ctx, logger, task.ID, fmt.Sprintf("Research complete: %d sources", len(sources)))
	s.complete(ctx, logger, task, summary, sources, outcome, start)
}

func (s *researchService) search(ctx context.Context, logger *slog.Logger, task *domain.Task) []string {
	ctx, span := s.tracer.Start(ctx, "research.task.search")
	defer span.End()

	s.setStage(ctx, logger, task.ID, domain.StageSearching, domain.StatusSearching)

	var urls []string
	var err error
	if s.discoverer == nil {
		err = &domain.ConfigError{Key: "searchProvider"}
	} else {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
		urls, err = s.discoverer.Discover(sctx, strings.TrimSpace(task.Query), s.cfg.MaxResults)
		cancel()
	}
	if err != nil {
		logger.Warn("source discovery failed", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		s.appendStep(ctx, logger, task.ID, "Search failed: "+err.Error())
		urls = nil
	}
	if len(urls) > s.cfg.MaxResults {
		urls = urls[:s.cfg.MaxResults]
	}
	span.SetAttributes(attribute.Int("research.results", len(urls)))
	s.appendStep(ctx, logger, task.ID, fmt.Sprintf("Found %d results", len(urls)))
	return urls
}

// visit extracts and scores every URL. Records keep discovery order
// regardless of which worker finishes first; failed URLs leave no record.
func (s *researchService) visit(ctx context.Context, logger *slog.Logger, task *domain.Task, urls []string) []domain.SourceRecord {
	if len(urls) == 0 {
		return []domain.SourceRecord{}
	}
	ctx, span := s.tracer.Start(ctx, "research.task.visit",
		trace.WithAttributes(attribute.Int("research.urls", len(urls))),
	)
	defer span.End()

	slots := make([]*domain.SourceRecord, len(urls))
	var g errgroup.Group
	g.SetLimit(s.cfg.VisitConcurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("page visit panicked", "url", u, "panic", r)
					s.appendStep(ctx, logger, task.ID, fmt.Sprintf("Error loading %s: internal error", u))
				}
			}()

			label := fmt.Sprintf("Visiting page %d/%d: %s", i+1, len(urls), u)
			s.setStage(ctx, logger, task.ID, domain.StageVisiting, label, label)

			rec, err := s.visitOne(ctx, logger, task.ID, i, u)
			if err != nil {
				logger.Info("page visit failed", "url", u, "err", err)
				s.appendStep(ctx, logger, task.ID, fmt.Sprintf("Error loading %s: %s", u, fetchReason(err)))
				return nil
			}
			slots[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.SourceRecord, 0, len(urls))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	span.SetAttributes(attribute.Int("research.sources", len(out)))
	return out
}

func (s *researchService) visitOne(ctx context.Context, logger *slog.Logger, taskID string, index int, rawURL string) (*domain.SourceRecord, error) {
	ctx, span := s.tracer.Start(ctx, "research.source.extract",
		trace.WithAttributes(
			attribute.String("research.url", rawURL),
			attribute.Int("research.index", index),
		),
	)
	defer span.End()

	if s.extractor == nil {
		metrics.SourceFetchTotal.WithLabelValues("error").Inc()
		return nil, &domain.FetchError{URL: rawURL, Err: &domain.ConfigError{Key: "extractorMode"}}
	}
	ectx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	page, err := s.extractor.Extract(ectx, rawURL)
	cancel()
	if err != nil {
		metrics.SourceFetchTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract failed")
		return nil, err
	}

	rec := &domain.SourceRecord{
		URL:     rawURL,
		Title:   page.Title,
		Text:    page.Text,
		Excerpt: page.Excerpt,
		Byline:  page.Byline,
	}
	if len(page.Screenshot) > 0 && s.artifacts != nil {
		name := fmt.Sprintf("%s-%d.png", taskID, index)
		if _, err := s.artifacts.Put(ctx, path.Join(providers.ScreenshotsDir, name), page.Screenshot); err != nil {
			logger.Warn("screenshot write failed", "url", rawURL, "err", err)
		} else {
			rec.Screenshot = name
		}
	}
	rec.ReliabilityScore = s.scorer.ScoreRecord(*rec)

	metrics.SourceFetchTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("research.reliability", rec.ReliabilityScore))
	return rec, nil
}

func (s *researchService) summarize(ctx context.Context, logger *slog.Logger, task *domain.Task, sources []domain.SourceRecord) (string, string) {
	ctx, span := s.tracer.Start(ctx, "research.task.summarize",
		trace.WithAttributes(attribute.Int("research.sources", len(sources))),
	)
	defer span.End()

	s.setStage(ctx, logger, task.ID, domain.StageSummarizing, domain.StatusSummarizing, "LLM starting...")

	var summary, outcome string
	switch {
	case !s.synth.Enabled():
		outcome = "disabled"
		summary = synthesis.DisabledFallback(task.Query, sources)
	case len(sources) == 0:
		outcome = "empty"
		summary = synthesis.Fallback(task.Query, sources)
	default:
		out, err := s.synth.Summarize(ctx, task.Query, sources)
		var cfgErr *domain.ConfigError
		switch {
		case err == nil:
			outcome, summary = "ok", out
		case errors.As(err, &cfgErr):
			outcome = "disabled"
			summary = synthesis.DisabledFallback(task.Query, sources)
		default:
			outcome = "failed"
			summary = synthesis.Fallback(task.Query, sources)
			logger.Warn("summary failed, using fallback", "err", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "synthesis failed")
		}
	}
	metrics.SynthesisTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("research.synthesis", outcome))
	return summary, outcome
}

func (s *researchService) complete(ctx context.Context, logger *slog.Logger, task *domain.Task, summary string, sources []domain.SourceRecord, outcome string, start time.Time) {
	if sources == nil {
		sources = []domain.SourceRecord{}
	}
	err := s.registry.Complete(ctx, task.ID, domain.ResearchResult{Summary: summary, Sources: sources})
	if err != nil {
		logger.Warn("task completion not recorded", "err", err)
		return
	}
	elapsed := s.now().Sub(start)
	metrics.TasksCompletedTotal.WithLabelValues(outcome).Inc()
	metrics.TaskDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
	logger.Info("research task done", "sources", len(sources), "outcome", outcome, "elapsed", elapsed)
}

func (s *researchService) setStage(ctx context.Context, logger *slog.Logger, id string, stage domain.Stage, status string, steps ...string) {
	if err := s.registry.SetStage(ctx, id, stage, status, steps...); err != nil {
		logger.Warn("task stage update failed", "stage", stage, "err", err)
	}
}

func (s *researchService) appendStep(ctx context.Context, logger *slog.Logger, id, step string) {
	if err := s.registry.AppendStep(ctx, id, step); err != nil {
		logger.Warn("task step append failed", "step", step, "err", err)
	}
}

func (s *researchService) Wait(ctx context.Context, id string) error {
	s.mu.Lock()
	done, ok := s.done[id]
	s.mu.Unlock()
	if !ok {
		task, err := s.registry.Get(ctx, id)
		if err != nil {
			return err
		}
		if task.Done() {
			return nil
		}
		return ErrNotScheduled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, cancels in-flight runs and waits for them
// to record their degraded result.
func (s *researchService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchReason drops the URL prefix FetchError adds; the step already names it.
func fetchReason(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}
