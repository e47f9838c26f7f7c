// Package score turns recorded session data into points, percentages and grade buckets.
// Every function is pure.
package score

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizplay/internal/domain"
)

const (
	puzzleMinScore     = 10
	puzzleMaxTimeBonus = 50
	puzzleHintPenalty  = 10
	puzzleRetryPenalty = 5
)

var hundred = decimal.NewFromInt(100)

// QuizPoints is the value of a single correct answer.
func QuizPoints(d domain.QuizDifficulty) int {
	return d.Points()
}

// QuizTotal sums the difficulty points of every correct answer.
func QuizTotal(answers []domain.Answer, d domain.QuizDifficulty) int {
	total := 0
	for _, a := range answers {
		if a.Correct {
			total += QuizPoints(d)
		}
	}
	return total
}

// QuizPercentage returns correct/total×100, or zero when there are no questions.
// The result is always within [0, 100] for 0 ≤ correct ≤ total.
func QuizPercentage(correct, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}

	p := decimal.NewFromInt(int64(correct)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// QuizGrade buckets a percentage.
func QuizGrade(percentage decimal.Decimal) domain.Grade {
	switch {
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return domain.GradeExcellent
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return domain.GradeGood
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(70)):
		return domain.GradeAverage
	case percentage.GreaterThanOrEqual(decimal.NewFromInt(60)):
		return domain.GradeBelowAverage
	default:
		return domain.GradePoor
	}
}

// QuizResultPercentage derives the percentage from the result's own counters.
func QuizResultPercentage(r domain.QuizResult) decimal.Decimal {
	return QuizPercentage(r.CorrectAnswers, r.TotalQuestions)
}

func QuizResultGrade(r domain.QuizResult) domain.Grade {
	return QuizGrade(QuizResultPercentage(r))
}

// PuzzleInput holds the signals a puzzle score is computed from.
type PuzzleInput struct {
	BasePoints int
	Solved     bool
	TimeSpent  time.Duration
	HintsUsed  int
	Attempts   int
}

// Puzzle computes the score of a puzzle attempt. Unsolved attempts score zero; solved attempts
// never score below 10.
func Puzzle(in PuzzleInput) int {
	if !in.Solved {
		return 0
	}

	minutes := int(max(in.TimeSpent, 0) / time.Minute)
	timeBonus := max(0, puzzleMaxTimeBonus-minutes)
	hintPenalty := in.HintsUsed * puzzleHintPenalty
	attemptPenalty := max(0, (in.Attempts-1)*puzzleRetryPenalty)

	return max(puzzleMinScore, in.BasePoints+timeBonus-hintPenalty-attemptPenalty)
}

// PuzzleResult recomputes the score stored implicitly in a result.
func PuzzleResult(r domain.PuzzleResult) int {
	return Puzzle(PuzzleInput{
		BasePoints: r.BasePoints,
		Solved:     r.Solved,
		TimeSpent:  r.TimeSpent,
		HintsUsed:  r.HintsUsed,
		Attempts:   r.Attempts,
	})
}

// PuzzlePerformance buckets a puzzle score. Unsolved attempts are always failed.
func PuzzlePerformance(solved bool, score int) domain.Performance {
	if !solved {
		return domain.PerformanceFailed
	}

	switch {
	case score >= 90:
		return domain.PerformanceExcellent
	case score >= 70:
		return domain.PerformanceGood
	case score >= 50:
		return domain.PerformanceAverage
	case score >= 30:
		return domain.PerformanceBelowAverage
	default:
		return domain.PerformancePoor
	}
}

func PuzzleResultPerformance(r domain.PuzzleResult) domain.Performance {
	return PuzzlePerformance(r.Solved, PuzzleResult(r))
}
