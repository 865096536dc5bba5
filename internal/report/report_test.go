package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestRenderContents(t *testing.T) {
	doc := Document{
		Query:   "solar panels",
		Summary: "Line one\n\nLine two",
		Sources: []Source{
			{Title: "Wiki", URL: "https://en.wikipedia.org/wiki/Solar", Reliability: intPtr(85)},
			{Title: "", URL: "https://example.com/x"},
		},
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out, err := render(doc, false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", out[:8])
	}
	s := string(out)
	for _, want := range []string{
		"AI Research Report",
		"Topic: solar panels",
		"Summary:",
		"Line two",
		"Sources:",
		"- Wiki",
		"Reliability: 85/100",
		"- https://example.com/x",
		"Generated 2025-01-02T03:04:05Z",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in document", want)
		}
	}
	if strings.Count(s, "Reliability:") != 1 {
		t.Errorf("reliability should only be printed when present")
	}
}

func TestRenderNoSources(t *testing.T) {
	out, err := render(Document{Query: "q", Summary: "No sources could be fetched for 'q'."}, false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "No sources.") {
		t.Error("expected placeholder for empty source list")
	}
}

func TestRenderCompressed(t *testing.T) {
	out, err := Render(Document{Query: "q", Summary: "s — dash"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) || !bytes.Contains(out, []byte("%%EOF")) {
		t.Error("expected a complete PDF")
	}
}
