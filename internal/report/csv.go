package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"odapstat/pkg/contracts/domain"
)

// utf8BOM lets Excel recognize the CSV as UTF-8 so the Korean headers
// survive a double click.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV renders the combined statistics table as BOM-prefixed CSV.
// Rates keep one decimal so 0 and 12.5 read consistently.
func WriteCSV(w io.Writer, rep *domain.Report) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for _, row := range rep.Rows {
		record := []string{row.Label, formatRate(row.WrongRate), strconv.Itoa(row.WrongCount)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Label, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVBytes renders the report as CSV in memory.
func CSVBytes(rep *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveCSV writes the report as CSV to path, creating parent
// directories as needed.
func SaveCSV(path string, rep *domain.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := WriteCSV(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}
