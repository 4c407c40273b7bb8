package answersheet

import "strings"

// Outcome is the parsed meaning of one module cell on an answer sheet.
// The zero value means the student did not attempt the module.
type Outcome struct {
	Attempted bool
	Wrong     map[int]bool
}

// WrongCount returns how many distinct questions the student got wrong.
func (o Outcome) WrongCount() int {
	return len(o.Wrong)
}

// separator variants teachers paste from Korean spreadsheets and chat apps.
var separatorNormalizer = strings.NewReplacer("，", ",", "；", ",", ";", ",")

// maxQuestionNumber caps parsed question numbers so absurd tokens do
// not overflow int. Numbers below the cap are kept even when they
// exceed the module size; they simply never match a question row.
const maxQuestionNumber = 1_000_000

// ParseCell converts one raw module cell into an Outcome.
//
// A blank cell means the module was not attempted. A lone "X" or "x"
// means the module was attempted with nothing wrong. Anything else is
// treated as a separator list of question numbers; full-width commas
// and both semicolon forms count as separators, and tokens that are not
// plain digit runs are dropped without failing the row.
func ParseCell(raw string) Outcome {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Outcome{}
	}
	if strings.EqualFold(s, "x") {
		return Outcome{Attempted: true, Wrong: map[int]bool{}}
	}

	wrong := make(map[int]bool)
	for _, token := range strings.Split(separatorNormalizer.Replace(s), ",") {
		if n, ok := parseQuestionNumber(strings.TrimSpace(token)); ok {
			wrong[n] = true
		}
	}
	return Outcome{Attempted: true, Wrong: wrong}
}

// parseQuestionNumber accepts tokens made entirely of decimal digits,
// including the full-width digits that show up in Korean spreadsheets.
func parseQuestionNumber(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	n := 0
	for _, r := range token {
		d := digitValue(r)
		if d < 0 {
			return 0, false
		}
		n = n*10 + d
		if n > maxQuestionNumber {
			return 0, false
		}
	}
	return n, true
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= '０' && r <= '９':
		return int(r - '０')
	}
	return -1
}
