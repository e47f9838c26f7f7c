package content

import (
	"slices"
	"strings"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

const minOptions = 2

// ValidateQuiz checks the structural rules every playable quiz must satisfy.
func ValidateQuiz(q *domain.QuizDefinition) error {
	if strings.TrimSpace(q.Title) == "" {
		return errors.InvalidContent("quiz title is required")
	}
	if !q.Difficulty.Valid() {
		return errors.InvalidContent("unknown quiz difficulty %q", q.Difficulty)
	}
	if !slices.Contains(domain.QuizCategories, q.Category) {
		return errors.InvalidContent("unknown quiz category %q", q.Category)
	}
	if len(q.Questions) == 0 {
		return errors.InvalidContent("quiz has no questions")
	}
	if q.EstimatedTime < 0 {
		return errors.InvalidContent("estimated time must not be negative")
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for i, qs := range q.Questions {
		if strings.TrimSpace(qs.Prompt) == "" {
			return errors.InvalidContent("question %d has no prompt", i)
		}
		if len(qs.Options) < minOptions {
			return errors.InvalidContent("question %d needs at least %d options", i, minOptions)
		}
		if qs.CorrectIndex < 0 || qs.CorrectIndex >= len(qs.Options) {
			return errors.InvalidContent("question %d: correct index %d out of range", i, qs.CorrectIndex)
		}
		if qs.TimeLimit < 0 {
			return errors.InvalidContent("question %d: time limit must not be negative", i)
		}
		if qs.ID == "" {
			continue
		}
		if _, ok := seen[qs.ID]; ok {
			return errors.InvalidContent("duplicate question id %s", qs.ID)
		}
		seen[qs.ID] = struct{}{}
	}

	return nil
}

// ValidatePuzzle checks the structural rules every playable puzzle must satisfy, including
// the hint budget of its difficulty.
func ValidatePuzzle(p *domain.PuzzleDefinition) error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.InvalidContent("puzzle title is required")
	}
	if !p.Type.Valid() {
		return errors.InvalidContent("unknown puzzle type %q", p.Type)
	}
	if !p.Difficulty.Valid() {
		return errors.InvalidContent("unknown puzzle difficulty %q", p.Difficulty)
	}
	if strings.TrimSpace(p.Solution) == "" {
		return errors.InvalidContent("puzzle solution is required")
	}
	if n, limit := len(p.Hints), p.Difficulty.MaxHints(); n > limit {
		return errors.InvalidContent("%s puzzles allow at most %d hints, got %d", p.Difficulty, limit, n)
	}
	if p.TimeLimit < 0 {
		return errors.InvalidContent("time limit must not be negative")
	}
	if p.Points < 0 {
		return errors.InvalidContent("points must not be negative")
	}

	return nil
}
