package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"odapstat/pkg/contracts/domain"
)

// SheetName is the single sheet of the output workbook.
const SheetName = "오답률 통계"

// Header labels of the statistics table, columns A through C.
var headers = []string{"문제 번호", "오답률(%)", "틀린 학생 수"}

// EmphasisThreshold is the wrong rate, in percent, at which a data row
// switches to bold larger type so hard questions stand out.
const EmphasisThreshold = 30.0

const (
	headerRowNumber    = 3
	firstDataRowNumber = 4
	columnWidth        = 14
	emphasisFontSize   = 15
)

type sheetStyles struct {
	title    int
	header   int
	cell     int
	emphasis int
}

// Workbook renders the report into a styled xlsx workbook: a merged
// title row, a blank spacer row, the header row, then one centered data
// row per question.
func Workbook(rep *domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeReportSheet(f, rep); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WorkbookBytes renders the report and returns the serialized xlsx.
func WorkbookBytes(rep *domain.Report) ([]byte, error) {
	f, err := Workbook(rep)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveWorkbook renders the report and writes it to path, creating
// parent directories as needed.
func SaveWorkbook(path string, rep *domain.Report) error {
	f, err := Workbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeReportSheet(f *excelize.File, rep *domain.Report) error {
	styles, err := newSheetStyles(f)
	if err != nil {
		return err
	}

	if err := writeTitle(f, styles, rep.Title); err != nil {
		return err
	}
	if err := writeHeader(f, styles); err != nil {
		return err
	}
	for i, row := range rep.Rows {
		if err := writeDataRow(f, styles, firstDataRowNumber+i, row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "C", columnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: center})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("title style: %w", err)
	}
	cell, err := f.NewStyle(&excelize.Style{Alignment: center})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("cell style: %w", err)
	}
	emphasis, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: emphasisFontSize},
		Alignment: center,
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("emphasis style: %w", err)
	}

	// Header rows share the title treatment.
	return sheetStyles{title: title, header: title, cell: cell, emphasis: emphasis}, nil
}

func writeTitle(f *excelize.File, styles sheetStyles, title string) error {
	if err := f.MergeCell(SheetName, "A1", "C1"); err != nil {
		return fmt.Errorf("merge title row: %w", err)
	}
	if err := f.SetCellValue(SheetName, "A1", fmt.Sprintf("<%s>", title)); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "C1", styles.title); err != nil {
		return fmt.Errorf("style title: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, styles sheetStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRowNumber)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", h, err)
		}
	}
	ref := fmt.Sprintf("A%d", headerRowNumber)
	end := fmt.Sprintf("C%d", headerRowNumber)
	if err := f.SetCellStyle(SheetName, ref, end, styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

func writeDataRow(f *excelize.File, styles sheetStyles, rowNumber int, row domain.Row) error {
	values := []interface{}{row.Label, row.WrongRate, row.WrongCount}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNumber)
		if err != nil {
			return fmt.Errorf("data cell: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("write row %d: %w", rowNumber, err)
		}
	}

	style := styles.cell
	if row.WrongRate >= EmphasisThreshold {
		style = styles.emphasis
	}
	ref := fmt.Sprintf("A%d", rowNumber)
	end := fmt.Sprintf("C%d", rowNumber)
	if err := f.SetCellStyle(SheetName, ref, end, style); err != nil {
		return fmt.Errorf("style row %d: %w", rowNumber, err)
	}
	return nil
}
