// Package report assembles wrong-answer statistics from parsed answer
// sheets and renders them as styled xlsx workbooks or CSV.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"odapstat/internal/answersheet"
	"odapstat/pkg/contracts/domain"
)

// Options carry the user-facing knobs for one report run.
type Options struct {
	Title        string
	Module1Total int
	Module2Total int
}

// Module display names used in summaries and row labels.
const (
	Module1Name = "Module1"
	Module2Name = "Module2"

	module1Prefix = "m1-"
	module2Prefix = "m2-"
)

// Build assembles the combined statistics table from a parsed roster.
// Module1 rows come first, then Module2, each in ascending question
// order with module-prefixed labels.
func Build(roster *answersheet.Roster, opts Options) *domain.Report {
	m1 := roster.Module1Outcomes()
	m2 := roster.Module2Outcomes()

	rows := labelRows(module1Prefix, answersheet.Aggregate(m1, opts.Module1Total))
	rows = append(rows, labelRows(module2Prefix, answersheet.Aggregate(m2, opts.Module2Total))...)

	return &domain.Report{
		Title:    opts.Title,
		Students: len(roster.Students),
		Modules: []domain.ModuleSummary{
			{Name: Module1Name, TotalQuestions: opts.Module1Total, Attempted: answersheet.AttemptedCount(m1)},
			{Name: Module2Name, TotalQuestions: opts.Module2Total, Attempted: answersheet.AttemptedCount(m2)},
		},
		Rows:        rows,
		GeneratedAt: time.Now().UTC(),
	}
}

func labelRows(prefix string, stats []answersheet.QuestionStat) []domain.Row {
	return lo.Map(stats, func(s answersheet.QuestionStat, _ int) domain.Row {
		return domain.Row{
			Label:      fmt.Sprintf("%s%d", prefix, s.Question),
			WrongRate:  s.WrongRate,
			WrongCount: s.WrongCount,
		}
	})
}

// Filename returns the download name for a rendered report, for
// example 오답률_통계_8월 Final mock 1.xlsx. Runes that cannot appear
// in file names are replaced with underscores.
func Filename(title string, format domain.ReportFormat) string {
	base := "오답률_통계"
	if t := sanitizeTitle(title); t != "" {
		base += "_" + t
	}
	return base + "." + string(format)
}

func sanitizeTitle(title string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, title)
	return strings.TrimSpace(clean)
}
