package answersheet

import "math"

// QuestionStat is the wrong-answer tally for a single question.
type QuestionStat struct {
	Question   int
	WrongRate  float64
	WrongCount int
}

// AttemptedCount returns how many outcomes attempted the module.
func AttemptedCount(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Attempted {
			n++
		}
	}
	return n
}

// Aggregate tallies outcomes into per-question wrong rates for the
// questions 1..totalQuestions. The denominator is the number of
// students who attempted the module, not the roster size; when nobody
// attempted, every rate is 0.0 rather than a division error. Rates are
// percentages rounded to one decimal.
func Aggregate(outcomes []Outcome, totalQuestions int) []QuestionStat {
	attempted := AttemptedCount(outcomes)

	stats := make([]QuestionStat, 0, totalQuestions)
	for q := 1; q <= totalQuestions; q++ {
		wrong := 0
		for _, o := range outcomes {
			if o.Attempted && o.Wrong[q] {
				wrong++
			}
		}
		rate := 0.0
		if attempted > 0 {
			rate = roundRate(float64(wrong) / float64(attempted) * 100)
		}
		stats = append(stats, QuestionStat{Question: q, WrongRate: rate, WrongCount: wrong})
	}
	return stats
}

func roundRate(pct float64) float64 {
	return math.Round(pct*10) / 10
}
