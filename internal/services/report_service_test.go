package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"odapstat/internal/answersheet"
	"odapstat/internal/config"
	apierrors "odapstat/internal/errors"
	"odapstat/pkg/contracts/domain"
)

// sheetBuffer builds an in-memory workbook from raw rows.
func sheetBuffer(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf
}

func sampleRows() [][]interface{} {
	return [][]interface{}{
		{"이름", "Module1", "Module2"},
		{"홍길동", "1,3,5", "2,6"},
		{"김철수", "X", "1,3"},
		{"이영희", "2,4,7", "X"},
		{"박민수", "", "5"},
	}
}

func newTestReportService() *ReportService {
	return NewReportService(config.Default(), slog.Default(), nil)
}

func TestReportService_Generate(t *testing.T) {
	svc := newTestReportService()

	generated, err := svc.Generate(context.Background(), sheetBuffer(t, sampleRows()), GenerateRequest{
		Title:        "모의고사 1회",
		Module1Total: 10,
		Module2Total: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "오답률_통계_모의고사 1회.xlsx", generated.Filename)
	assert.Equal(t, ContentTypeXLSX, generated.ContentType)
	assert.True(t, bytes.HasPrefix(generated.Content, []byte("PK")), "xlsx output is a zip archive")

	rep := generated.Report
	require.NotNil(t, rep)
	assert.Equal(t, 4, rep.Students)
	require.Len(t, rep.Rows, 20)
	assert.Equal(t, "m1-1", rep.Rows[0].Label)
	assert.Equal(t, "m2-10", rep.Rows[19].Label)

	// Module1: three students attempted, one of them got question 1
	// wrong, so 1/3 rounds to 33.3.
	assert.Equal(t, 33.3, rep.Rows[0].WrongRate)
	assert.Equal(t, 1, rep.Rows[0].WrongCount)

	require.Len(t, rep.Modules, 2)
	assert.Equal(t, 3, rep.Modules[0].Attempted)
	assert.Equal(t, 3, rep.Modules[1].Attempted)
}

func TestReportService_GenerateCSV(t *testing.T) {
	svc := newTestReportService()

	generated, err := svc.Generate(context.Background(), sheetBuffer(t, sampleRows()), GenerateRequest{
		Title:        "모의고사 1회",
		Module1Total: 5,
		Module2Total: 5,
		Format:       domain.ReportFormatCSV,
	})
	require.NoError(t, err)

	assert.Equal(t, "오답률_통계_모의고사 1회.csv", generated.Filename)
	assert.Equal(t, ContentTypeCSV, generated.ContentType)
	assert.True(t, bytes.HasPrefix(generated.Content, []byte{0xEF, 0xBB, 0xBF}), "CSV opens in Excel via the BOM")
	assert.Contains(t, string(generated.Content), "m1-1")
}

func TestReportService_GenerateAppliesDefaults(t *testing.T) {
	cfg := config.Default()
	svc := NewReportService(cfg, slog.Default(), nil)

	generated, err := svc.Generate(context.Background(), sheetBuffer(t, sampleRows()), GenerateRequest{})
	require.NoError(t, err)

	assert.Equal(t, cfg.Report.DefaultTitle, generated.Report.Title)
	assert.Len(t, generated.Report.Rows, 2*cfg.Report.DefaultModuleTotal)
	assert.Contains(t, generated.Filename, cfg.Report.DefaultTitle)
}

func TestReportService_GenerateValidation(t *testing.T) {
	svc := newTestReportService()

	tests := []struct {
		name      string
		req       GenerateRequest
		wantField string
	}{
		{
			name:      "title over the length cap",
			req:       GenerateRequest{Title: strings.Repeat("가", 121), Module1Total: 10, Module2Total: 10},
			wantField: "title",
		},
		{
			name:      "module1 total over the cap",
			req:       GenerateRequest{Title: "ok", Module1Total: 201, Module2Total: 10},
			wantField: "module1_total",
		},
		{
			name:      "negative module2 total",
			req:       GenerateRequest{Title: "ok", Module1Total: 10, Module2Total: -3},
			wantField: "module2_total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), sheetBuffer(t, sampleRows()), tt.req)

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			field, ok := apiErr.Details.(apierrors.ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, field.Field)
		})
	}
}

func TestReportService_GenerateMissingColumns(t *testing.T) {
	svc := newTestReportService()

	buf := sheetBuffer(t, [][]interface{}{
		{"이름", "점수"},
		{"홍길동", "95"},
	})

	_, err := svc.Generate(context.Background(), buf, GenerateRequest{Module1Total: 10, Module2Total: 10})

	var missingErr *answersheet.MissingColumnsError
	require.ErrorAs(t, err, &missingErr)
	assert.ElementsMatch(t, []string{"Module1", "Module2"}, missingErr.Missing)
}

func TestReportService_GenerateUnreadableWorkbook(t *testing.T) {
	svc := newTestReportService()

	_, err := svc.Generate(context.Background(), strings.NewReader("this is not a zip archive"), GenerateRequest{})
	assert.True(t, errors.Is(err, answersheet.ErrUnreadableWorkbook))
}

func TestReportService_Preview(t *testing.T) {
	svc := newTestReportService()

	rep, err := svc.Preview(context.Background(), sheetBuffer(t, sampleRows()), GenerateRequest{
		Title:        "미리보기",
		Module1Total: 5,
		Module2Total: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, "미리보기", rep.Title)
	assert.Equal(t, 4, rep.Students)
	assert.Len(t, rep.Rows, 10)
}

func TestReportService_GenerateFromFile(t *testing.T) {
	svc := newTestReportService()
	dir := t.TempDir()

	path := filepath.Join(dir, "answers.xlsx")
	buf := sheetBuffer(t, sampleRows())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	generated, err := svc.GenerateFromFile(context.Background(), path, GenerateRequest{
		Title:        "파일 입력",
		Module1Total: 5,
		Module2Total: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, generated.Report.Students)

	_, err = svc.GenerateFromFile(context.Background(), filepath.Join(dir, "missing.xlsx"), GenerateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open answer sheet")
}

func TestReportService_ExampleTemplate(t *testing.T) {
	svc := newTestReportService()

	t.Run("workbook", func(t *testing.T) {
		generated, err := svc.ExampleTemplate(domain.ReportFormatExcel)
		require.NoError(t, err)
		assert.Equal(t, "예시_오답현황_양식.xlsx", generated.Filename)
		assert.Equal(t, ContentTypeXLSX, generated.ContentType)
		assert.True(t, bytes.HasPrefix(generated.Content, []byte("PK")))
	})

	t.Run("csv", func(t *testing.T) {
		generated, err := svc.ExampleTemplate(domain.ReportFormatCSV)
		require.NoError(t, err)
		assert.Equal(t, "예시_오답현황_양식.csv", generated.Filename)
		assert.Contains(t, string(generated.Content), "이름")
	})
}

func TestReportService_Defaults(t *testing.T) {
	cfg := config.Default()
	svc := NewReportService(cfg, slog.Default(), nil)

	title, total := svc.Defaults()
	assert.Equal(t, cfg.Report.DefaultTitle, title)
	assert.Equal(t, cfg.Report.DefaultModuleTotal, total)
}
