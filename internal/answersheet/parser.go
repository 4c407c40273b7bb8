package answersheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// Required header names, matched against trimmed cell text in the first row.
const (
	ColumnName    = "이름"
	ColumnModule1 = "Module1"
	ColumnModule2 = "Module2"
)

// RequiredColumns lists the headers an answer sheet must carry, in the
// order they are reported when missing.
var RequiredColumns = []string{ColumnName, ColumnModule1, ColumnModule2}

// ErrUnreadableWorkbook marks uploads that cannot be opened as an xlsx
// workbook at all.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// MissingColumnsError reports required headers absent from the sheet.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("answer sheet is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Student is one parsed roster row.
type Student struct {
	Name    string
	Module1 Outcome
	Module2 Outcome
}

// Roster is the typed form of one uploaded answer sheet.
type Roster struct {
	Students []Student
}

// Module1Outcomes returns the first-module outcome of every student.
func (r *Roster) Module1Outcomes() []Outcome {
	return lo.Map(r.Students, func(s Student, _ int) Outcome { return s.Module1 })
}

// Module2Outcomes returns the second-module outcome of every student.
func (r *Roster) Module2Outcomes() []Outcome {
	return lo.Map(r.Students, func(s Student, _ int) Outcome { return s.Module2 })
}

// ParseFile reads an answer sheet workbook from disk.
func ParseFile(path string) (*Roster, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseReader reads an answer sheet workbook from an uploaded stream.
func ParseReader(r io.Reader) (*Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse extracts the roster from the first sheet of an open workbook.
// The first row is the header; required columns are located by trimmed
// header text so extra columns and reordered columns are fine.
func Parse(f *excelize.File) (*Roster, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &MissingColumnsError{Missing: RequiredColumns}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Missing: RequiredColumns}
	}

	// Map column positions from the header row. First occurrence wins
	// when a header is duplicated.
	columnMap := make(map[string]int)
	for i, cell := range rows[0] {
		name := strings.TrimSpace(cell)
		if _, seen := columnMap[name]; !seen {
			columnMap[name] = i
		}
	}

	missing := lo.Filter(RequiredColumns, func(name string, _ int) bool {
		_, ok := columnMap[name]
		return !ok
	})
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	roster := &Roster{}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		roster.Students = append(roster.Students, Student{
			Name:    strings.TrimSpace(cellAt(row, columnMap[ColumnName])),
			Module1: ParseCell(cellAt(row, columnMap[ColumnModule1])),
			Module2: ParseCell(cellAt(row, columnMap[ColumnModule2])),
		})
	}
	return roster, nil
}

// cellAt reads a cell by column index. GetRows trims trailing empty
// cells from each row, so out-of-range reads mean an empty cell.
func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
