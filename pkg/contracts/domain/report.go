package domain

import (
	"strings"
	"time"
)

// Report represents one generated wrong-answer statistics report.
type Report struct {
	Title       string          `json:"title"`
	Students    int             `json:"students"`
	Modules     []ModuleSummary `json:"modules"`
	Rows        []Row           `json:"rows"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ModuleSummary carries per-module participation counts.
type ModuleSummary struct {
	Name           string `json:"name"`
	TotalQuestions int    `json:"total_questions"`
	Attempted      int    `json:"attempted"`
}

// Row is one line of the combined statistics table: a module-scoped
// question label, the wrong-answer rate in percent rounded to one
// decimal, and the number of students who answered the question wrong.
type Row struct {
	Label      string  `json:"label"`
	WrongRate  float64 `json:"wrong_rate"`
	WrongCount int     `json:"wrong_count"`
}

// ReportFormat defines the download format of a report.
type ReportFormat string

const (
	ReportFormatExcel ReportFormat = "xlsx"
	ReportFormatCSV   ReportFormat = "csv"
)

// ParseReportFormat maps a user-supplied format string to a ReportFormat.
// An empty string selects the Excel default.
func ParseReportFormat(s string) (ReportFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return ReportFormatExcel, true
	case "csv":
		return ReportFormatCSV, true
	}
	return "", false
}
