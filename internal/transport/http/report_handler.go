package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "odapstat/internal/errors"
	custommw "odapstat/internal/middleware"
	"odapstat/internal/services"
	"odapstat/internal/validation"
	"odapstat/pkg/contracts/domain"
)

// multipartOverhead bounds the non-file portion of the upload form:
// boundaries plus the title and totals fields.
const multipartOverhead = 64 << 10

// ReportHandler handles answer sheet uploads and report downloads with
// RFC 7807 error responses.
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *validation.UploadValidator
	form         *custommw.ValidationMiddleware
	params       *custommw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler.
func NewReportHandler(service ReportServiceInterface, validator *validation.UploadValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		form:         custommw.NewValidationMiddleware(logger),
		params:       custommw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/example", h.ExampleTemplate)

	// Both upload routes accept the same multipart form.
	r.Group(func(r chi.Router) {
		r.Use(custommw.ContentTypeValidator("multipart/form-data"))
		r.Post("/", h.GenerateReport)
		r.Post("/preview", h.PreviewReport)
	})

	return r
}

// GenerateReport handles POST /api/reports. It parses the uploaded answer
// sheet and streams back the rendered statistics report as an attachment.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	req, file, ok := h.parseUploadForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	generated, err := h.service.Generate(r.Context(), file, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "report download ready",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("filename", generated.Filename),
		slog.Int("students", generated.Report.Students),
		slog.String("format", string(req.Format)),
	)

	h.writeAttachment(w, generated)
}

// PreviewReport handles POST /api/reports/preview. Same form as the
// download route, but the response is the computed report as JSON.
func (h *ReportHandler) PreviewReport(w http.ResponseWriter, r *http.Request) {
	req, file, ok := h.parseUploadForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rep, err := h.service.Preview(r.Context(), file, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, rep)
}

// ExampleTemplate handles GET /api/reports/example. It serves the blank
// answer sheet template that marks are collected in.
func (h *ReportHandler) ExampleTemplate(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.params.ValidateEnum(w, r, "format", []string{"xlsx", "excel", "csv"}, "xlsx")
	if !ok {
		return
	}
	format, _ := domain.ParseReportFormat(raw)

	generated, err := h.service.ExampleTemplate(format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "serving example template",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("format", string(format)),
	)

	h.writeAttachment(w, generated)
}

// uploadForm is the decoded multipart form. Tags catch structurally
// broken values; the service then applies its configured defaults and
// caps.
type uploadForm struct {
	Title        string `json:"title" validate:"omitempty,reporttitle"`
	Module1Total int    `json:"module1_total" validate:"omitempty,gte=1"`
	Module2Total int    `json:"module2_total" validate:"omitempty,gte=1"`
}

// parseUploadForm reads the shared multipart contract: the answer sheet
// under "file" plus optional title and per-module totals. It reports
// false after writing an error response itself.
func (h *ReportHandler) parseUploadForm(w http.ResponseWriter, r *http.Request) (services.GenerateRequest, multipart.File, bool) {
	var req services.GenerateRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.validator.MaxSize()+multipartOverhead)
	if err := r.ParseMultipartForm(h.validator.MaxSize()); err != nil {
		// A body over the MaxBytesReader limit keeps its 413 mapping;
		// anything else the form parser rejects is a client error, not
		// a server fault.
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
		} else {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("parse multipart form: %w", err)))
		}
		return req, nil, false
	}

	format, ok := domain.ParseReportFormat(r.URL.Query().Get("format"))
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", `format must be "xlsx" or "csv"`))
		return req, nil, false
	}

	module1, err := formInt(r, "module1_total")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return req, nil, false
	}
	module2, err := formInt(r, "module2_total")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return req, nil, false
	}

	form := uploadForm{
		Title:        r.FormValue("title"),
		Module1Total: module1,
		Module2Total: module2,
	}
	if err := h.form.ValidateStruct(form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return req, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", `attach the answer sheet workbook under the "file" field`))
		return req, nil, false
	}

	if err := h.validator.ValidateUpload(r.Context(), header); err != nil {
		file.Close()
		h.errorHandler.HandleError(w, r, err)
		return req, nil, false
	}

	req = services.GenerateRequest{
		Title:        form.Title,
		Module1Total: form.Module1Total,
		Module2Total: form.Module2Total,
		Format:       format,
	}
	return req, file, true
}

// writeAttachment streams a generated file back to the client.
func (h *ReportHandler) writeAttachment(w http.ResponseWriter, generated *services.GeneratedReport) {
	w.Header().Set("Content-Type", generated.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(generated.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(generated.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(generated.Content); err != nil {
		h.logger.Error("failed to write report response", slog.String("error", err.Error()))
	}
}

// contentDisposition builds the attachment header. mime.FormatMediaType
// emits only the RFC 2231 filename* form for non-ASCII names, so a
// quoted ASCII fallback is spliced in front of it for clients that
// ignore the extended parameter.
func contentDisposition(filename string) string {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	fallback := asciiFilename(filename)
	if fallback == filename {
		return disposition
	}
	return `attachment; filename="` + fallback + `"` + strings.TrimPrefix(disposition, "attachment")
}

// asciiFilename strips runes a plain quoted filename parameter cannot
// carry safely. A stem left empty falls back to "report".
func asciiFilename(filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.' || r == ' ':
			return r
		}
		return -1
	}, stem)
	clean = strings.Trim(clean, "_ .")
	if clean == "" {
		clean = "report"
	}
	return clean + ext
}

// formInt parses an optional integer form field. Missing or blank values
// return zero so the service applies its configured default.
func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(field, fmt.Sprintf("%s must be a whole number", field))
	}
	return n, nil
}
