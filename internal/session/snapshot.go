package session

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/score"
)

const (
	KindQuiz   = "quiz"
	KindPuzzle = "puzzle"
)

// QuestionView is the current question as shown to the player. The correct option and the
// explanation are only filled in once the question has been answered.
type QuestionView struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	TimeLimit    int      `json:"time_limit"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

type QuizOutcome struct {
	domain.QuizResult
	Percentage decimal.Decimal `json:"percentage"`
	Grade      domain.Grade    `json:"grade"`
}

func NewQuizOutcome(r domain.QuizResult) *QuizOutcome {
	return &QuizOutcome{
		QuizResult: r,
		Percentage: score.QuizResultPercentage(r),
		Grade:      score.QuizResultGrade(r),
	}
}

// QuizSnapshot is a point-in-time copy of a quiz session. Version grows with every transition.
type QuizSnapshot struct {
	SessionID      string          `json:"session_id"`
	Kind           string          `json:"kind"`
	Version        uint64          `json:"version"`
	Username       string          `json:"username"`
	QuizID         string          `json:"quiz_id"`
	State          QuizState       `json:"state"`
	QuestionIndex  int             `json:"question_index"`
	TotalQuestions int             `json:"total_questions"`
	Question       *QuestionView   `json:"question,omitempty"`
	Remaining      int             `json:"remaining_seconds"`
	Answers        []domain.Answer `json:"answers"`
	Score          int             `json:"score"`
	CorrectAnswers int             `json:"correct_answers"`
	Result         *QuizOutcome    `json:"result,omitempty"`
}

func quizSnapshot(id, username string, s quizState, remaining int, result *domain.QuizResult) QuizSnapshot {
	snap := QuizSnapshot{
		SessionID:      id,
		Kind:           KindQuiz,
		Username:       username,
		State:          s.state,
		QuestionIndex:  s.index,
		Remaining:      remaining,
		Answers:        slices.Clone(s.answers),
		Score:          s.score,
		CorrectAnswers: s.correct,
	}
	if snap.State == "" {
		snap.State = QuizNotStarted
	}
	if s.quiz == nil {
		return snap
	}

	snap.QuizID = s.quiz.ID
	snap.TotalQuestions = len(s.quiz.Questions)

	if s.state != QuizCompleted {
		q := s.question()
		view := &QuestionView{
			ID:        q.ID,
			Prompt:    q.Prompt,
			Options:   slices.Clone(q.Options),
			TimeLimit: q.Limit(),
		}
		if s.answered() {
			correct := q.CorrectIndex
			view.CorrectIndex = &correct
			view.Explanation = q.Explanation
		}
		snap.Question = view
	}

	if result != nil {
		snap.Result = NewQuizOutcome(*result)
	}

	return snap
}

type PuzzleOutcome struct {
	domain.PuzzleResult
	Score       int                `json:"score"`
	Performance domain.Performance `json:"performance"`
}

func NewPuzzleOutcome(r domain.PuzzleResult) *PuzzleOutcome {
	return &PuzzleOutcome{
		PuzzleResult: r,
		Score:        score.PuzzleResult(r),
		Performance:  score.PuzzleResultPerformance(r),
	}
}

// PuzzleSnapshot is a point-in-time copy of a puzzle session. The solution is never included.
// Version grows with every transition.
type PuzzleSnapshot struct {
	SessionID      string                   `json:"session_id"`
	Kind           string                   `json:"kind"`
	Version        uint64                   `json:"version"`
	Username       string                   `json:"username"`
	Puzzle         *domain.PuzzleDefinition `json:"puzzle,omitempty"`
	State          PuzzleState              `json:"state"`
	Solved         bool                     `json:"solved"`
	CurrentAnswer  string                   `json:"current_answer"`
	Hints          []string                 `json:"hints"`
	HintsUsed      int                      `json:"hints_used"`
	HintsAvailable int                      `json:"hints_available"`
	Attempts       int                      `json:"attempts"`
	Timed          bool                     `json:"timed"`
	Remaining      int                      `json:"remaining_seconds"`
	Result         *PuzzleOutcome           `json:"result,omitempty"`
}

func puzzleSnapshot(id, username string, s puzzleState, remaining int, result *domain.PuzzleResult) PuzzleSnapshot {
	snap := PuzzleSnapshot{
		SessionID:     id,
		Kind:          KindPuzzle,
		Username:      username,
		Puzzle:        s.puzzle,
		State:         s.state,
		Solved:        s.solved,
		CurrentAnswer: s.currentAnswer,
		Hints:         s.revealedHints(),
		HintsUsed:     s.hintsUsed,
		Attempts:      s.attempts,
		Remaining:     remaining,
	}
	if snap.State == "" {
		snap.State = PuzzleNotStarted
	}
	if s.puzzle != nil {
		snap.HintsAvailable = len(s.puzzle.Hints) - s.hintsUsed
		snap.Timed = s.puzzle.TimeLimit > 0
	}
	if result != nil {
		snap.Result = NewPuzzleOutcome(*result)
	}

	return snap
}
