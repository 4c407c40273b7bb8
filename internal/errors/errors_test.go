package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
	assert.Equal(t, "bad input", err.Message)
	assert.Nil(t, err.Details)
	assert.Equal(t, "bad input", err.Error())
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusNotFound, "NOT_FOUND", "report not found", "report")

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "report", err.Details)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing parameter", ErrMissingParameter, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"unprocessable", ErrUnprocessableEntity, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"internal", ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"report render", ErrReportRender, http.StatusInternalServerError, "REPORT_RENDER_FAILED"},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("title", "must be at most 120 characters")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	detail, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "title", detail.Field)
	assert.Equal(t, "must be at most 120 characters", detail.Message)
}

func TestUploadRejectedError(t *testing.T) {
	err := UploadRejectedError(http.StatusRequestEntityTooLarge, "size", "file exceeds the upload limit")

	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, "UPLOAD_REJECTED", err.ErrorCode)
	assert.Equal(t, map[string]string{"reason": "size"}, err.Details)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("example workbook")

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "example workbook not found", err.Message)
}

func TestAPIErrorJSON(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "bad form value", "module1_total")

	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, float64(http.StatusBadRequest), decoded["status_code"])
	assert.Equal(t, "INVALID_REQUEST", decoded["error_code"])
	assert.Equal(t, "bad form value", decoded["message"])
	assert.Equal(t, "module1_total", decoded["details"])
}

func TestProblemDetailsJSON(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusBadRequest,
		TypeSheetMissingColumns,
		"Answer Sheet Missing Columns",
		"answer sheet is missing required columns: Module1",
		"/api/reports",
	).WithExtension("missing_columns", []string{"Module1"})

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TypeSheetMissingColumns, decoded["type"])
	assert.Equal(t, "Answer Sheet Missing Columns", decoded["title"])
	assert.Equal(t, float64(http.StatusBadRequest), decoded["status"])
	assert.Equal(t, "/api/reports", decoded["instance"])
	assert.Equal(t, []interface{}{"Module1"}, decoded["missing_columns"])
}

func TestProblemDetailsOmitsEmptyFields(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	_, hasDetail := decoded["detail"]
	assert.False(t, hasDetail)
	_, hasInstance := decoded["instance"]
	assert.False(t, hasInstance)
}
