package app

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testIndexHTML = `<!DOCTYPE html><html lang="ko"><head><title>오답률 통계 생성기</title></head><body>upload form</body></html>`

func testFrontendFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte(testIndexHTML)},
	}
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	application, err := NewApplication(testFrontendFS())
	require.NoError(t, err)
	return application
}

func TestNewApplication(t *testing.T) {
	application := newTestApplication(t)

	assert.NotNil(t, application.Config)
	assert.NotNil(t, application.Logger)
	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.ReportService)
	assert.NotNil(t, application.HealthService)
	assert.NotNil(t, application.UploadValidator)
	assert.NotNil(t, application.OTelProviders)

	assert.Contains(t, application.Server.Addr, ":")
	assert.Equal(t, application.Config.Server.ReadTimeout, application.Server.ReadTimeout)
}

func TestApplicationServesUploadPage(t *testing.T) {
	application := newTestApplication(t)

	t.Run("plain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		application.Router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "오답률 통계 생성기")
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		application.Router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

		gz, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		defer gz.Close()
		body, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Contains(t, string(body), "upload form")
	})
}

func TestApplicationWithoutFrontend(t *testing.T) {
	application, err := NewApplication(nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST an answer sheet to /api/reports")
}

func TestApplicationHealthEndpoints(t *testing.T) {
	application := newTestApplication(t)

	paths := []string{"/api/health", "/api/health/live", "/api/health/ready", "/api/version"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		application.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", path)
	}
}

func TestApplicationMetricsEndpoint(t *testing.T) {
	application := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestApplicationGeneratesReportEndToEnd(t *testing.T) {
	application := newTestApplication(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"이름", "Module1", "Module2"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"홍길동", "1,2", "X"}))
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "오답현황.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "통합 테스트"))
	require.NoError(t, mw.WriteField("module1_total", "5"))
	require.NoError(t, mw.WriteField("module2_total", "5"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0x50, 0x4B}))

	out, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer out.Close()
	title, err := out.GetCellValue("오답률 통계", "A1")
	require.NoError(t, err)
	assert.Equal(t, "<통합 테스트>", title)
}

func TestApplicationUnknownRoute(t *testing.T) {
	application := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/definitely/not/here", nil)
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/not-found", problem["type"])
	assert.Equal(t, "/definitely/not/here", problem["instance"])
}

func TestApplicationMethodNotAllowed(t *testing.T) {
	application := newTestApplication(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/health", nil)
	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestApplicationStopWithoutStart(t *testing.T) {
	application := newTestApplication(t)

	err := application.Stop(context.Background())
	assert.NoError(t, err)
}
