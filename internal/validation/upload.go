package validation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apierrors "odapstat/internal/errors"
	"odapstat/internal/infrastructure"
)

// Rejection reasons recorded on the uploads_rejected_total metric.
const (
	ReasonExtension = "extension"
	ReasonTempFile  = "temp_file"
	ReasonEmpty     = "empty"
	ReasonTooLarge  = "too_large"
	ReasonNotXLSX   = "not_xlsx"
)

// xlsx files are zip archives; the first four bytes are the local
// file header signature.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// UploadValidator checks answer sheet files before they reach the
// parser, for both multipart uploads and CLI input paths.
type UploadValidator struct {
	logger  *slog.Logger
	maxSize int64
	metrics *infrastructure.BusinessMetrics
}

// NewUploadValidator creates an upload validator. metrics may be nil
// when no meter is wired, as in the CLI.
func NewUploadValidator(logger *slog.Logger, maxSize int64, metrics *infrastructure.BusinessMetrics) *UploadValidator {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &UploadValidator{
		logger:  logger,
		maxSize: maxSize,
		metrics: metrics,
	}
}

// MaxSize returns the configured upload size limit in bytes.
func (v *UploadValidator) MaxSize() int64 {
	return v.maxSize
}

// ValidateUpload checks a multipart upload without consuming it. The
// returned error renders as an upload rejection problem.
func (v *UploadValidator) ValidateUpload(ctx context.Context, header *multipart.FileHeader) error {
	if header == nil {
		return v.reject(ctx, http.StatusBadRequest, ReasonEmpty, "no file was uploaded", "")
	}

	if err := v.checkName(ctx, header.Filename); err != nil {
		return err
	}

	if header.Size == 0 {
		return v.reject(ctx, http.StatusBadRequest, ReasonEmpty, "uploaded file is empty", header.Filename)
	}
	if header.Size > v.maxSize {
		return v.reject(ctx, http.StatusRequestEntityTooLarge, ReasonTooLarge,
			fmt.Sprintf("uploaded file exceeds the %d byte limit", v.maxSize), header.Filename)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	return v.checkMagic(ctx, file, header.Filename)
}

// ValidateReportFile checks an answer sheet path supplied to the CLI.
func (v *UploadValidator) ValidateReportFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.ErrorContext(ctx, "input file does not exist", slog.String("file", path))
		return fmt.Errorf("input file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.ErrorContext(ctx, "input path is a directory", slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if err := v.checkName(ctx, path); err != nil {
		return err
	}

	if info.Size() == 0 {
		return v.reject(ctx, http.StatusBadRequest, ReasonEmpty, "input file is empty", path)
	}
	if info.Size() > v.maxSize {
		return v.reject(ctx, http.StatusRequestEntityTooLarge, ReasonTooLarge,
			fmt.Sprintf("input file exceeds the %d byte limit", v.maxSize), path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.ErrorContext(ctx, "input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("input file %s is not readable: %w", path, err)
	}
	defer file.Close()

	return v.checkMagic(ctx, file, path)
}

// checkName rejects wrong extensions and Excel lock files.
func (v *UploadValidator) checkName(ctx context.Context, name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".xlsx" {
		return v.reject(ctx, http.StatusBadRequest, ReasonExtension,
			fmt.Sprintf("only .xlsx files are accepted (got %q)", ext), name)
	}

	if strings.HasPrefix(filepath.Base(name), "~$") {
		return v.reject(ctx, http.StatusBadRequest, ReasonTempFile,
			"temporary Excel lock files cannot be processed", name)
	}
	return nil
}

// checkMagic confirms the content starts with a zip local file header.
func (v *UploadValidator) checkMagic(ctx context.Context, r io.Reader, name string) error {
	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return v.reject(ctx, http.StatusBadRequest, ReasonNotXLSX,
			"file is too short to be an xlsx workbook", name)
	}

	for i, b := range zipMagic {
		if head[i] != b {
			return v.reject(ctx, http.StatusBadRequest, ReasonNotXLSX,
				"file content is not an xlsx workbook", name)
		}
	}
	return nil
}

func (v *UploadValidator) reject(ctx context.Context, status int, reason, message, name string) error {
	v.logger.WarnContext(ctx, "upload rejected",
		slog.String("reason", reason),
		slog.String("file", filepath.Base(name)),
	)
	v.metrics.RecordUploadRejected(ctx, reason)
	return apierrors.UploadRejectedError(status, reason, message)
}
