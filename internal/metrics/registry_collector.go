package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// StageCounter is the slice of the task registry the collector reads.
type StageCounter interface {
	Stats() map[domain.Stage]int
}

// HealthFunc checks a dependency such as the search cache backend.
type HealthFunc func(ctx context.Context) error

var stages = []domain.Stage{
	domain.StageStarting,
	domain.StageSearching,
	domain.StageVisiting,
	domain.StageSummarizing,
	domain.StageDone,
}

type registryCollector struct {
	tasks  StageCounter
	cache  HealthFunc
	logger *slog.Logger

	tasksTrackedDesc *prometheus.Desc
	cacheUpDesc      *prometheus.Desc
}

func newRegistryCollector(tasks StageCounter, cache HealthFunc, logger *slog.Logger) *registryCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &registryCollector{
		tasks:  tasks,
		cache:  cache,
		logger: logger,
		tasksTrackedDesc: prometheus.NewDesc(
			"research_tasks_tracked",
			"Tasks currently held in the registry by stage.",
			[]string{"stage"},
			nil,
		),
		cacheUpDesc: prometheus.NewDesc(
			"research_search_cache_up",
			"Whether the search cache backend answered its health check (1) or not (0).",
			nil,
			nil,
		),
	}
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tasksTrackedDesc
	ch <- c.cacheUpDesc
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	if c.tasks != nil {
		stats := c.tasks.Stats()
		for _, s := range stages {
			emitGauge(ch, c.tasksTrackedDesc, float64(stats[s]), string(s))
		}
	}

	if c.cache == nil {
		return
	}
	// Keep backend reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	up := 1.0
	if err := c.cache(ctx); err != nil {
		c.logger.Warn("search cache health check failed", "err", err)
		up = 0
	}
	emitGauge(ch, c.cacheUpDesc, up)
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v, labelValues...)
	if err != nil {
		return
	}
	ch <- m
}

var registerRegistryCollectorOnce sync.Once

// RegisterRegistryCollector exposes registry and cache gauges on the default
// registry. Only the first call takes effect.
func RegisterRegistryCollector(tasks StageCounter, cache HealthFunc, logger *slog.Logger) {
	registerRegistryCollectorOnce.Do(func() {
		prometheus.MustRegister(newRegistryCollector(tasks, cache, logger))
	})
}
