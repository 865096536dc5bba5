package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/discovery"
	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/pkg/app"
	"github.com/lemonbanan4/ai-web-research/pkg/config"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"
	"github.com/lemonbanan4/ai-web-research/pkg/persistence"
	_ "github.com/lemonbanan4/ai-web-research/pkg/persistence/redis" // Register redis cache provider.

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
)

var benchURLs = []string{
	"https://en.wikipedia.org/wiki/Battery",
	"https://www.nature.com/articles/battery",
	"https://example.com/blog/battery",
}

type benchDiscoverer struct{ calls int }

func (d *benchDiscoverer) Discover(ctx context.Context, query string, max int) ([]string, error) {
	d.calls++
	return benchURLs, nil
}

type benchExtractor struct{}

func (benchExtractor) Extract(ctx context.Context, rawURL string) (*domain.Page, error) {
	return &domain.Page{
		URL:     rawURL,
		Title:   "Bench " + rawURL,
		Text:    strings.Repeat("lorem ipsum ", 200),
		Excerpt: "bench excerpt",
	}, nil
}

type benchLLM struct{}

func (benchLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return "bench summary", nil
}

func (benchLLM) Model() string { return "bench" }

func newBenchApp(b *testing.B) *app.Application {
	b.Helper()
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.LoadConfigOptional("")
	if err != nil {
		b.Fatalf("config: %v", err)
	}
	cfg.LogLevel = "error"
	cfg.ArtifactsDir = b.TempDir()
	cfg.ExtractorMode = "http"
	cfg.VisitConcurrency = len(benchURLs)

	a, err := app.NewApplication(cfg,
		app.WithDiscoverer(&benchDiscoverer{}),
		app.WithExtractor(benchExtractor{}),
		app.WithLLMClient(benchLLM{}),
	)
	if err != nil {
		b.Fatalf("app init: %v", err)
	}
	app.SetupMappings(a)
	b.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func doJSONRequest(b *testing.B, h http.Handler, method, path string, body []byte) (int, []byte) {
	b.Helper()

	var rbody *bytes.Reader
	if body == nil {
		rbody = bytes.NewReader([]byte{})
	} else {
		rbody = bytes.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rbody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func BenchmarkHTTP_SubmitWaitPoll(b *testing.B) {
	a := newBenchApp(b)
	submitBody := []byte(`{"query":"solid-state batteries"}`)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, resp := doJSONRequest(b, a.Engine, http.MethodPost, "/research", submitBody)
		if status != http.StatusAccepted {
			b.Fatalf("submit status %d body=%s", status, string(resp))
		}
		var submitted struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(resp, &submitted); err != nil || submitted.TaskID == "" {
			b.Fatalf("submit parse failed: err=%v body=%s", err, string(resp))
		}
		if err := a.Research.Wait(ctx, submitted.TaskID); err != nil {
			b.Fatalf("wait: %v", err)
		}

		status, resp = doJSONRequest(b, a.Engine, http.MethodGet, "/research/"+submitted.TaskID, nil)
		if status != http.StatusOK {
			b.Fatalf("poll status %d body=%s", status, string(resp))
		}
	}
}

func BenchmarkHTTP_ExportPDF(b *testing.B) {
	a := newBenchApp(b)
	rel := 80
	req := domain.ExportRequest{
		Query:   "solid-state batteries",
		Summary: strings.Repeat("A paragraph of findings. ", 40),
	}
	for _, u := range benchURLs {
		req.Sources = append(req.Sources, domain.ExportSource{URL: u, Title: "Bench " + u, Reliability: &rel})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req.TaskID = fmt.Sprintf("bench-%d", i)
		body, _ := json.Marshal(req)
		status, resp := doJSONRequest(b, a.Engine, http.MethodPost, "/export_pdf", body)
		if status != http.StatusOK {
			b.Fatalf("export status %d body=%s", status, string(resp))
		}
	}
}

func BenchmarkService_Run(b *testing.B) {
	a := newBenchApp(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := &domain.Task{ID: fmt.Sprintf("run-%d", i), Query: "solid-state batteries"}
		if err := a.Registry.Create(ctx, task); err != nil {
			b.Fatalf("Create: %v", err)
		}
		a.Research.Run(ctx, task)
	}
}

func BenchmarkDiscovery_RedisCacheHit(b *testing.B) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis start: %v", err)
	}
	b.Cleanup(mr.Close)

	raw, _ := json.Marshal(map[string]any{"addr": mr.Addr()})
	store, err := persistence.NewStore(
		persistence.ProviderConfig{Type: "redis", Config: raw},
		persistence.PluginConfig{DefaultTTL: time.Hour},
	)
	if err != nil {
		b.Fatalf("store: %v", err)
	}
	b.Cleanup(func() { _ = store.Close() })

	next := &benchDiscoverer{}
	d := discovery.NewCached(next, store, time.Hour, nil)
	ctx := context.Background()
	if _, err := d.Discover(ctx, "solid-state batteries", 5); err != nil {
		b.Fatalf("warm: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Discover(ctx, "solid-state batteries", 5); err != nil {
			b.Fatalf("Discover: %v", err)
		}
	}
	b.StopTimer()
	if next.calls != 1 {
		b.Fatalf("provider calls = %d, want 1", next.calls)
	}
}
