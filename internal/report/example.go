package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"odapstat/internal/answersheet"
)

// ExampleFilename is the download name of the input template.
const ExampleFilename = "예시_오답현황_양식.xlsx"

// ExampleSheetName is the sheet name inside the template workbook.
const ExampleSheetName = "예시"

// Sample students shipped with the input template. X marks a module
// attempted with no wrong answers; a blank cell marks a skipped module.
var exampleStudents = [][]string{
	{"홍길동", "1,3,5", "2,6"},
	{"김철수", "X", "1,3"},
	{"이영희", "2,4,7", "X"},
	{"박민수", "", "5"},
}

// ExampleWorkbook builds the downloadable input template with the
// required header row and sample students.
func ExampleWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ExampleSheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := append([][]string{answersheet.RequiredColumns}, exampleStudents...)
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("template cell: %w", err)
			}
			if err := f.SetCellValue(ExampleSheetName, cell, val); err != nil {
				f.Close()
				return nil, fmt.Errorf("write template row %d: %w", i+1, err)
			}
		}
	}
	return f, nil
}

// ExampleWorkbookBytes returns the serialized input template.
func ExampleWorkbookBytes() ([]byte, error) {
	f, err := ExampleWorkbook()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize template: %w", err)
	}
	return buf.Bytes(), nil
}

// ExampleCSV returns the template rows as BOM-prefixed CSV, handy for
// copy and paste into a fresh sheet.
func ExampleCSV() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	cw := csv.NewWriter(&buf)
	if err := cw.Write(answersheet.RequiredColumns); err != nil {
		return nil, fmt.Errorf("write template headers: %w", err)
	}
	for _, row := range exampleStudents {
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("write template row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
