package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseVisiting(t *testing.T) {
	tests := []struct {
		step  string
		i, n  int
		match bool
	}{
		{"Visiting page 2/5: https://a.test", 2, 5, true},
		{"Visiting page 10/10: https://b.test/x", 10, 10, true},
		{"Visiting page 1/0: https://c.test", 0, 0, false},
		{"Found 5 results", 0, 0, false},
		{"Error loading https://a.test: timeout", 0, 0, false},
	}
	for _, tt := range tests {
		i, n, ok := parseVisiting(tt.step)
		if ok != tt.match || i != tt.i || n != tt.n {
			t.Errorf("parseVisiting(%q) = %d, %d, %v; want %d, %d, %v", tt.step, i, n, ok, tt.i, tt.n, tt.match)
		}
	}
}

func TestWatchTaskReportsStepsOnce(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/research/t1" {
			http.NotFound(w, r)
			return
		}
		n := atomic.AddInt32(&polls, 1)
		task := map[string]any{"id": "t1", "status": "Searching web...", "stage": "searching", "steps": []string{"Found 1 results"}}
		if n >= 3 {
			task = map[string]any{
				"id":     "t1",
				"status": "Done",
				"stage":  "done",
				"steps":  []string{"Found 1 results", "Visiting page 1/1: https://a.test", "Research complete: 1 sources"},
				"result": map[string]any{"summary": "s", "sources": []any{}},
			}
		}
		_ = json.NewEncoder(w).Encode(task)
	}))
	defer srv.Close()

	var steps []string
	task, err := watchTask(context.Background(), newClient(srv.URL), "t1", time.Millisecond, func(s string) {
		steps = append(steps, s)
	})
	if err != nil {
		t.Fatalf("watchTask: %v", err)
	}
	if task.Result == nil || task.Result.Summary != "s" {
		t.Fatalf("unexpected result: %+v", task.Result)
	}
	want := []string{"Found 1 results", "Visiting page 1/1: https://a.test", "Research complete: 1 sources"}
	if strings.Join(steps, "|") != strings.Join(want, "|") {
		t.Fatalf("steps = %q, want %q", steps, want)
	}
}

func TestWatchTaskHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"t1","stage":"visiting","steps":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := watchTask(ctx, newClient(srv.URL), "t1", 5*time.Millisecond, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Task not found"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).get(context.Background(), "missing")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 apiError", err)
	}
	if got := err.Error(); got != "error (404): Task not found" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestExportPostsResult(t *testing.T) {
	var (
		mu  sync.Mutex
		got map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/export_pdf" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"url":"/reports/report-t1.pdf"}`))
	}))
	defer srv.Close()

	task := &taskResp{ID: "t1", Query: "q"}
	c := newClient(srv.URL)
	if _, err := c.export(context.Background(), task); err == nil {
		t.Fatal("expected error for a task without a result")
	}

	if err := json.Unmarshal([]byte(`{"summary":"sum","sources":[{"url":"https://a.test","title":"A","snippet":"x","reliability":70}]}`), &task.Result); err != nil {
		t.Fatal(err)
	}
	u, err := c.export(context.Background(), task)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if u != srv.URL+"/reports/report-t1.pdf" {
		t.Fatalf("url = %q", u)
	}
	mu.Lock()
	defer mu.Unlock()
	if got["task_id"] != "t1" || got["summary"] != "sum" {
		t.Fatalf("body = %v", got)
	}
	sources, _ := got["sources"].([]any)
	if len(sources) != 1 || sources[0].(map[string]any)["reliability"] != float64(70) {
		t.Fatalf("sources = %v", got["sources"])
	}
}

func TestRunChatKeepsHistory(t *testing.T) {
	var (
		mu   sync.Mutex
		lens []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			History []chatMessage `json:"history"`
			Query   string        `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		lens = append(lens, len(body.History))
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "re: " + body.Query})
	}))
	defer srv.Close()

	var out bytes.Buffer
	in := strings.NewReader("first\n\nsecond\n/quit\nignored\n")
	if err := runChat(context.Background(), newClient(srv.URL), in, &out, false, newUI()); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lens) != 2 || lens[0] != 0 || lens[1] != 2 {
		t.Fatalf("history lengths = %v, want [0 2]", lens)
	}
	if out.String() != "re: first\nre: second\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RESEARCH_CONFIG_DIR", dir)
	t.Setenv("RESEARCH_PROFILE", "")

	cfg, path, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if path != filepath.Join(dir, "config.yaml") {
		t.Fatalf("path = %q", path)
	}
	if resolveProfileName("", cfg) != "default" {
		t.Fatalf("default profile not resolved")
	}
	cfg.CurrentProfile = "staging"
	cfg.Profiles["staging"] = profile{BaseURL: "http://research.staging:8000", Interval: "500ms"}
	if err := saveConfig(cfg, path); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("stat = %v, %v", info, err)
	}

	loaded, _, err := loadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if name := resolveProfileName("", loaded); name != "staging" {
		t.Fatalf("profile = %q", name)
	}
	if loaded.Profiles["staging"].BaseURL != "http://research.staging:8000" {
		t.Fatalf("profile = %+v", loaded.Profiles["staging"])
	}
}
