package http

import (
	"context"
	"io"

	"odapstat/internal/services"
	"odapstat/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations the handler needs.
// ReportHandler depends on this interface rather than the concrete service
// so tests can substitute fakes.
type ReportServiceInterface interface {
	// Generate parses the answer sheet read from r and renders the
	// statistics report in the requested format.
	Generate(ctx context.Context, r io.Reader, req services.GenerateRequest) (*services.GeneratedReport, error)

	// Preview parses the answer sheet and returns the computed report
	// without rendering a downloadable file.
	Preview(ctx context.Context, r io.Reader, req services.GenerateRequest) (*domain.Report, error)

	// ExampleTemplate returns the downloadable blank answer sheet template.
	ExampleTemplate(format domain.ReportFormat) (*services.GeneratedReport, error)
}
