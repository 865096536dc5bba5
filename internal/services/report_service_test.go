package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/providers"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"
)

func newReportFixture(t *testing.T) (ReportService, string) {
	t.Helper()
	root := t.TempDir()
	store, err := providers.NewLocalArtifactStore(root)
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	now := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return NewReportService(store, nil, now), root
}

func TestExportWritesPDF(t *testing.T) {
	svc, root := newReportFixture(t)
	score := 85
	res, err := svc.Export(context.Background(), domain.ExportRequest{
		TaskID:  "abc-123",
		Query:   "solar",
		Summary: "Summary text",
		Sources: []domain.ExportSource{{URL: "https://en.wikipedia.org/wiki/Solar", Title: "Solar", Reliability: &score}},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.URL != "/reports/report-abc-123.pdf" {
		t.Errorf("URL = %q", res.URL)
	}
	data, err := os.ReadFile(filepath.Join(root, "reports", "report-abc-123.pdf"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("expected a PDF file")
	}
}

func TestExportSanitizesID(t *testing.T) {
	svc, _ := newReportFixture(t)
	tests := []struct {
		name   string
		taskID string
		check  func(t *testing.T, url string)
	}{
		{"path traversal stripped", "../../etc/passwd", func(t *testing.T, url string) {
			if url != "/reports/report-etcpasswd.pdf" {
				t.Errorf("URL = %q", url)
			}
		}},
		{"empty gets uuid", "", func(t *testing.T, url string) {
			if !strings.HasPrefix(url, "/reports/report-") || len(url) != len("/reports/report-.pdf")+36 {
				t.Errorf("URL = %q, want generated uuid name", url)
			}
		}},
		{"only invalid chars gets uuid", "../..", func(t *testing.T, url string) {
			if url == "/reports/report-.pdf" {
				t.Errorf("URL = %q, want generated uuid name", url)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Export(context.Background(), domain.ExportRequest{TaskID: tt.taskID, Query: "q"})
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			tt.check(t, res.URL)
		})
	}
}

func TestSanitizeReportID(t *testing.T) {
	tests := map[string]string{
		"abc_DEF-123": "abc_DEF-123",
		"a b/c":       "abc",
		"ünïcode-ok":  "ncode-ok",
		"":            "",
		"id.pdf?x=1":  "idpdfx1",
	}
	for in, want := range tests {
		if got := SanitizeReportID(in); got != want {
			t.Errorf("SanitizeReportID(%q) = %q, want %q", in, got, want)
		}
	}
}
