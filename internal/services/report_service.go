package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/lemonbanan4/ai-web-research/internal/providers"
	"github.com/lemonbanan4/ai-web-research/internal/report"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ReportService renders whatever result the client posts; it does not read
// the task registry.
type ReportService interface {
	Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error)
}

type reportService struct {
	artifacts providers.ArtifactStore
	logger    *slog.Logger
	now       func() time.Time
}

func NewReportService(artifacts providers.ArtifactStore, logger *slog.Logger, now func() time.Time) ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &reportService{artifacts: artifacts, logger: logger, now: now}
}

func (s *reportService) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	id := SanitizeReportID(req.TaskID)
	if id == "" {
		id = uuid.NewString()
	}
	ctx, span := otel.Tracer("research/report").Start(ctx, "research.report.export",
		trace.WithAttributes(
			attribute.String("research.report_id", id),
			attribute.Int("research.sources", len(req.Sources)),
		),
	)
	defer span.End()

	doc := report.Document{
		Query:       req.Query,
		Summary:     req.Summary,
		Sources:     make([]report.Source, 0, len(req.Sources)),
		GeneratedAt: s.now(),
	}
	for _, src := range req.Sources {
		doc.Sources = append(doc.Sources, report.Source{
			Title:       src.Title,
			URL:         src.URL,
			Reliability: src.Reliability,
		})
	}

	data, err := report.Render(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	url, err := s.artifacts.Put(ctx, path.Join(providers.ReportsDir, "report-"+id+".pdf"), data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store report: %w", err)
	}
	s.logger.Info("report exported", "report_id", id, "bytes", len(data))
	return &domain.ExportResult{URL: url}, nil
}

// SanitizeReportID keeps [A-Za-z0-9_-] so the id is safe in a file name.
func SanitizeReportID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
