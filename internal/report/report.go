// Package report renders a research result as a PDF document.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const Title = "AI Research Report"

type Source struct {
	Title       string
	URL         string
	Reliability *int
}

type Document struct {
	Query       string
	Summary     string
	Sources     []Source
	GeneratedAt time.Time
}

const (
	margin     = 15.0
	lineHeight = 5.5
)

// Render lays out title, topic, summary and sources on A4 pages.
func Render(doc Document) ([]byte, error) {
	return render(doc, true)
}

func render(doc Document, compress bool) ([]byte, error) {
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(Title, true)
	pdf.SetCreator("ai-web-research", true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	// Core fonts are cp1252; translate so quotes and dashes survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generated := "Generated " + doc.GeneratedAt.UTC().Format(time.RFC3339)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, tr(generated), "", 0, "L", false, 0, "")
		pdf.SetX(margin)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 7, tr("Topic: "+doc.Query), "", "L", false)
	pdf.Ln(4)

	heading(pdf, "Summary:")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range strings.Split(doc.Summary, "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(lineHeight)
			continue
		}
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	heading(pdf, "Sources:")
	pdf.SetFont("Helvetica", "", 10)
	if len(doc.Sources) == 0 {
		pdf.MultiCell(0, lineHeight, "No sources.", "", "L", false)
	}
	for _, src := range doc.Sources {
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = src.URL
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, lineHeight, tr("- "+title), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 160)
		pdf.MultiCell(0, lineHeight, tr("  "+src.URL), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		if src.Reliability != nil {
			pdf.MultiCell(0, lineHeight, fmt.Sprintf("  Reliability: %d/100", *src.Reliability), "", "L", false)
		}
		pdf.Ln(1.5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}
