package session

import (
	"slices"
	"strings"
	"time"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

type QuizState string

const (
	QuizNotStarted      QuizState = "not_started"
	QuizInProgress      QuizState = "in_progress"
	QuizAwaitingAdvance QuizState = "awaiting_advance"
	QuizCompleted       QuizState = "completed"
)

type PuzzleState string

const (
	PuzzleNotStarted PuzzleState = "not_started"
	PuzzleInProgress PuzzleState = "in_progress"
	PuzzleCompleted  PuzzleState = "completed"
)

// quizState is the mutable part of a quiz attempt. Transitions take a value and return the next
// value; they never touch timers or notify anyone.
type quizState struct {
	quiz              *domain.QuizDefinition
	state             QuizState
	index             int
	answers           []domain.Answer
	score             int
	correct           int
	startedAt         time.Time
	questionStartedAt time.Time
	completedAt       time.Time
}

func (s quizState) question() domain.Question {
	return s.quiz.Questions[s.index]
}

// answered reports whether the current question already has a recorded answer.
func (s quizState) answered() bool {
	return len(s.answers) > s.index
}

func startQuiz(q *domain.QuizDefinition, now time.Time) (quizState, error) {
	if q == nil {
		return quizState{}, errors.InvalidContent("quiz definition is missing")
	}
	if len(q.Questions) == 0 {
		return quizState{}, errors.InvalidContent("quiz %s has no questions", q.ID)
	}

	return quizState{
		quiz:              q,
		state:             QuizInProgress,
		answers:           make([]domain.Answer, 0, len(q.Questions)),
		startedAt:         now,
		questionStartedAt: now,
	}, nil
}

// recordAnswer locks in the answer to the current question. index may be domain.NoAnswer when
// the question timed out. changed is false when the call was a no-op.
func recordAnswer(s quizState, index int, now time.Time) (next quizState, changed bool, err error) {
	if s.state != QuizInProgress || s.answered() {
		return s, false, nil
	}

	q := s.question()
	if index != domain.NoAnswer && (index < 0 || index >= len(q.Options)) {
		return s, false, errors.InvalidInput("answer index %d out of range [0, %d)", index, len(q.Options))
	}

	correct := index != domain.NoAnswer && q.IsCorrect(index)

	s.answers = append(slices.Clip(s.answers), domain.Answer{
		QuestionID:    q.ID,
		SelectedIndex: index,
		Correct:       correct,
		TimeSpent:     max(now.Sub(s.questionStartedAt), 0),
	})
	if correct {
		s.score += s.quiz.Difficulty.Points()
		s.correct++
	}
	s.state = QuizAwaitingAdvance

	return s, true, nil
}

// advance moves to the next question, or completes the quiz after the last one.
// done is true exactly when this call completed the quiz.
func advance(s quizState, now time.Time) (next quizState, done bool, err error) {
	switch s.state {
	case QuizCompleted:
		return s, false, nil
	case QuizAwaitingAdvance:
	default:
		return s, false, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("question %d has not been answered", s.index))
	}

	if s.index+1 < len(s.quiz.Questions) {
		s.index++
		s.questionStartedAt = now
		s.state = QuizInProgress
		return s, false, nil
	}

	s.state = QuizCompleted
	s.completedAt = now
	return s, true, nil
}

func (s quizState) result() domain.QuizResult {
	return domain.QuizResult{
		QuizID:         s.quiz.ID,
		Score:          s.score,
		TotalQuestions: len(s.quiz.Questions),
		CorrectAnswers: s.correct,
		TimeSpent:      max(s.completedAt.Sub(s.startedAt), 0),
		CompletedAt:    s.completedAt,
		Answers:        slices.Clone(s.answers),
	}
}

type puzzleState struct {
	puzzle        *domain.PuzzleDefinition
	state         PuzzleState
	solved        bool
	currentAnswer string
	lastSubmitted string
	hintsUsed     int
	attempts      int
	startedAt     time.Time
	completedAt   time.Time
}

func startPuzzle(p *domain.PuzzleDefinition, now time.Time) (puzzleState, error) {
	if p == nil {
		return puzzleState{}, errors.InvalidContent("puzzle definition is missing")
	}
	if normalizeAnswer(p.Solution) == "" {
		return puzzleState{}, errors.InvalidContent("puzzle %s has no solution", p.ID)
	}

	return puzzleState{
		puzzle:    p,
		state:     PuzzleInProgress,
		startedAt: now,
	}, nil
}

// requestHint reveals the next unused hint. ok is false when no hint is left.
func requestHint(s puzzleState) (next puzzleState, hint string, ok bool) {
	if s.state != PuzzleInProgress || s.hintsUsed >= len(s.puzzle.Hints) {
		return s, "", false
	}

	hint = s.puzzle.Hints[s.hintsUsed]
	s.hintsUsed++
	return s, hint, true
}

func (s puzzleState) revealedHints() []string {
	if s.puzzle == nil {
		return nil
	}
	return slices.Clone(s.puzzle.Hints[:s.hintsUsed])
}

func updateAnswer(s puzzleState, text string) puzzleState {
	if s.state == PuzzleInProgress {
		s.currentAnswer = text
	}
	return s
}

// submitAnswer counts an attempt and completes the puzzle when the answer matches.
// changed is false when the puzzle was not in progress.
func submitAnswer(s puzzleState, text string, now time.Time) (next puzzleState, changed bool) {
	if s.state != PuzzleInProgress {
		return s, false
	}

	s.attempts++
	s.lastSubmitted = text

	if normalizeAnswer(text) == normalizeAnswer(s.puzzle.Solution) {
		s.currentAnswer = text
		s.state = PuzzleCompleted
		s.solved = true
		s.completedAt = now
		return s, true
	}

	s.currentAnswer = ""
	return s, true
}

// expirePuzzle completes an in-progress puzzle as unsolved.
func expirePuzzle(s puzzleState, now time.Time) (next puzzleState, changed bool) {
	if s.state != PuzzleInProgress {
		return s, false
	}

	s.state = PuzzleCompleted
	s.solved = false
	s.completedAt = now
	return s, true
}

func (s puzzleState) result() domain.PuzzleResult {
	final := s.lastSubmitted
	if final == "" {
		final = s.currentAnswer
	}

	return domain.PuzzleResult{
		PuzzleID:    s.puzzle.ID,
		BasePoints:  s.puzzle.Points,
		Completed:   s.state == PuzzleCompleted,
		Solved:      s.solved,
		TimeSpent:   max(s.completedAt.Sub(s.startedAt), 0),
		HintsUsed:   s.hintsUsed,
		Attempts:    s.attempts,
		CompletedAt: s.completedAt,
		FinalAnswer: final,
	}
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
