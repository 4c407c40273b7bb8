package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"odapstat/internal/answersheet"
	"odapstat/internal/config"
	apierrors "odapstat/internal/errors"
	"odapstat/internal/infrastructure"
	"odapstat/internal/report"
	"odapstat/pkg/contracts/domain"
)

// Download content types per report format.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// GenerateRequest carries the knobs for one report run. Zero values
// fall back to the configured defaults.
type GenerateRequest struct {
	Title        string
	Module1Total int
	Module2Total int
	Format       domain.ReportFormat
}

// GeneratedReport is a rendered report ready for download.
type GeneratedReport struct {
	Report      *domain.Report
	Content     []byte
	Filename    string
	ContentType string
}

// ReportService turns uploaded answer sheets into rendered reports.
type ReportService struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewReportService creates the report service. metrics may be nil when
// no meter is wired, as in the CLI.
func NewReportService(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *ReportService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ReportService{
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer(infrastructure.MeterName),
		metrics: metrics,
	}
}

// Generate runs the full pipeline on one uploaded workbook: parse,
// aggregate, render in the requested format.
func (s *ReportService) Generate(ctx context.Context, r io.Reader, req GenerateRequest) (*GeneratedReport, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "report.generate",
		trace.WithAttributes(
			attribute.String("report.title", req.Title),
			attribute.String("report.format", string(req.Format)),
		),
	)
	defer span.End()

	start := time.Now()

	rep, err := s.build(ctx, r, req)
	if err != nil {
		s.metrics.RecordReportGeneration(ctx, 0, time.Since(start), err)
		return nil, err
	}

	content, contentType, err := render(rep, req.Format)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.metrics.RecordReportGeneration(ctx, 0, time.Since(start), err)
		s.logger.ErrorContext(ctx, "report rendering failed",
			slog.String("format", string(req.Format)),
			slog.String("error", err.Error()),
		)
		return nil, apierrors.ReportRenderError(err)
	}

	duration := time.Since(start)
	s.metrics.RecordReportGeneration(ctx, rep.Students, duration, nil)
	span.SetAttributes(
		attribute.Int("report.students", rep.Students),
		attribute.Int("report.rows", len(rep.Rows)),
	)

	s.logger.InfoContext(ctx, "report generated",
		slog.String("title", req.Title),
		slog.String("format", string(req.Format)),
		slog.Int("students", rep.Students),
		slog.Int("rows", len(rep.Rows)),
		slog.Duration("duration", duration),
	)

	return &GeneratedReport{
		Report:      rep,
		Content:     content,
		Filename:    report.Filename(req.Title, req.Format),
		ContentType: contentType,
	}, nil
}

// Preview parses and aggregates without rendering a file, for the
// JSON preview endpoint.
func (s *ReportService) Preview(ctx context.Context, r io.Reader, req GenerateRequest) (*domain.Report, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, r, req)
}

// GenerateFromFile runs Generate on an answer sheet path, for the CLI.
func (s *ReportService) GenerateFromFile(ctx context.Context, path string, req GenerateRequest) (*GeneratedReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open answer sheet: %w", err)
	}
	defer f.Close()

	return s.Generate(ctx, f, req)
}

// ExampleTemplate returns the downloadable input template.
func (s *ReportService) ExampleTemplate(format domain.ReportFormat) (*GeneratedReport, error) {
	if format == domain.ReportFormatCSV {
		content, err := report.ExampleCSV()
		if err != nil {
			return nil, apierrors.ReportRenderError(err)
		}
		return &GeneratedReport{
			Content:     content,
			Filename:    strings.TrimSuffix(report.ExampleFilename, ".xlsx") + ".csv",
			ContentType: ContentTypeCSV,
		}, nil
	}

	content, err := report.ExampleWorkbookBytes()
	if err != nil {
		return nil, apierrors.ReportRenderError(err)
	}
	return &GeneratedReport{
		Content:     content,
		Filename:    report.ExampleFilename,
		ContentType: ContentTypeXLSX,
	}, nil
}

// Defaults exposes the configured report defaults, for the upload form.
func (s *ReportService) Defaults() (title string, moduleTotal int) {
	return s.cfg.Report.DefaultTitle, s.cfg.Report.DefaultModuleTotal
}

// build parses the workbook and assembles the statistics table.
func (s *ReportService) build(ctx context.Context, r io.Reader, req GenerateRequest) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "report.parse")
	defer span.End()

	roster, err := answersheet.ParseReader(r)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "answer sheet parsing failed",
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.DebugContext(ctx, "answer sheet parsed",
		slog.Int("students", len(roster.Students)))

	return report.Build(roster, report.Options{
		Title:        req.Title,
		Module1Total: req.Module1Total,
		Module2Total: req.Module2Total,
	}), nil
}

// normalize fills defaults and enforces the configured limits.
func (s *ReportService) normalize(req GenerateRequest) (GenerateRequest, error) {
	if strings.TrimSpace(req.Title) == "" {
		req.Title = s.cfg.Report.DefaultTitle
	}
	if req.Module1Total == 0 {
		req.Module1Total = s.cfg.Report.DefaultModuleTotal
	}
	if req.Module2Total == 0 {
		req.Module2Total = s.cfg.Report.DefaultModuleTotal
	}
	if req.Format == "" {
		req.Format = domain.ReportFormatExcel
	}

	if n := utf8.RuneCountInString(req.Title); n > s.cfg.Report.MaxTitleLength {
		return req, apierrors.ErrValidation("title",
			fmt.Sprintf("title must be at most %d characters", s.cfg.Report.MaxTitleLength))
	}

	checks := []struct {
		field string
		total int
	}{
		{"module1_total", req.Module1Total},
		{"module2_total", req.Module2Total},
	}
	for _, c := range checks {
		if c.total < 1 || c.total > s.cfg.Report.MaxModuleTotal {
			return req, apierrors.ErrValidation(c.field,
				fmt.Sprintf("%s must be between 1 and %d", c.field, s.cfg.Report.MaxModuleTotal))
		}
	}

	return req, nil
}

// render serializes the report in the requested format.
func render(rep *domain.Report, format domain.ReportFormat) (content []byte, contentType string, err error) {
	switch format {
	case domain.ReportFormatCSV:
		content, err = report.CSVBytes(rep)
		contentType = ContentTypeCSV
	default:
		content, err = report.WorkbookBytes(rep)
		contentType = ContentTypeXLSX
	}
	return content, contentType, err
}
