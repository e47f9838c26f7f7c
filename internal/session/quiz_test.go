package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/session"
	"github.com/victornm/quizplay/internal/timer/timertest"
)

const waitFor = time.Second

func TestQuiz_CompletesOnce(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizMedium, 3)

	_, err := e.quiz.Start(def)
	require.NoError(t, err)

	for i := range def.Questions {
		snap, err := e.quiz.SelectAnswer(def.Questions[i].CorrectIndex)
		require.NoError(t, err)
		require.Equal(t, session.QuizAwaitingAdvance, snap.State)

		snap, err = e.quiz.Next()
		require.NoError(t, err)
		if i < len(def.Questions)-1 {
			require.Equal(t, session.QuizInProgress, snap.State)
			require.Equal(t, i+1, snap.QuestionIndex)
		}
	}

	snap, err := e.quiz.Next()
	require.NoError(t, err, "next on a completed quiz is a no-op")
	require.Equal(t, session.QuizCompleted, snap.State)

	results := e.results()
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "q1", r.QuizID)
	assert.Equal(t, "u1", r.Username)
	assert.Equal(t, "s1", r.SessionID)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 60, r.Score)
	assert.Equal(t, 3, r.TotalQuestions)
	assert.Equal(t, 3, r.CorrectAnswers)
	assert.Len(t, r.Answers, 3)

	require.NotNil(t, snap.Result)
	assert.Equal(t, domain.GradeExcellent, snap.Result.Grade)
	assert.Nil(t, snap.Question)
}

func TestQuiz_SelectAnswer(t *testing.T) {
	tests := map[string]struct {
		act    func(t *testing.T, q *session.Quiz) (session.QuizSnapshot, error)
		assert func(t *testing.T, snap session.QuizSnapshot, err error)
	}{
		"should ignore a second answer to the same question": {
			act: func(t *testing.T, q *session.Quiz) (session.QuizSnapshot, error) {
				_, err := q.SelectAnswer(1)
				require.NoError(t, err)
				return q.SelectAnswer(0)
			},
			assert: func(t *testing.T, snap session.QuizSnapshot, err error) {
				require.NoError(t, err)
				require.Len(t, snap.Answers, 1)
				assert.Equal(t, 1, snap.Answers[0].SelectedIndex)
				assert.Equal(t, 0, snap.Score)
				assert.Equal(t, 0, snap.CorrectAnswers)
			},
		},

		"should reject an index past the last option": {
			act: func(_ *testing.T, q *session.Quiz) (session.QuizSnapshot, error) {
				return q.SelectAnswer(4)
			},
			assert: func(t *testing.T, snap session.QuizSnapshot, err error) {
				require.True(t, errors.HasCode(err, errors.CodeInvalidArgument), "got %v", err)
				assert.Equal(t, session.QuizInProgress, snap.State)
				assert.Empty(t, snap.Answers)
			},
		},

		"should reject a negative index": {
			act: func(_ *testing.T, q *session.Quiz) (session.QuizSnapshot, error) {
				return q.SelectAnswer(domain.NoAnswer)
			},
			assert: func(t *testing.T, snap session.QuizSnapshot, err error) {
				require.True(t, errors.HasCode(err, errors.CodeInvalidArgument), "got %v", err)
				assert.Empty(t, snap.Answers)
			},
		},

		"should score a correct answer and reveal the solution": {
			act: func(_ *testing.T, q *session.Quiz) (session.QuizSnapshot, error) {
				return q.SelectAnswer(0)
			},
			assert: func(t *testing.T, snap session.QuizSnapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, 20, snap.Score)
				assert.Equal(t, 1, snap.CorrectAnswers)
				require.NotNil(t, snap.Question.CorrectIndex)
				assert.Equal(t, 0, *snap.Question.CorrectIndex)
				assert.Equal(t, "because", snap.Question.Explanation)
			},
		},

		"should not accept answers after a reset": {
			act: func(_ *testing.T, q *session.Quiz) (session.QuizSnapshot, error) {
				q.Reset()
				return q.SelectAnswer(0)
			},
			assert: func(t *testing.T, snap session.QuizSnapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, session.QuizNotStarted, snap.State)
				assert.Empty(t, snap.Answers)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := newQuizEngine(t)
			_, err := e.quiz.Start(makeQuiz("q1", domain.QuizMedium, 2))
			require.NoError(t, err)

			snap, err := tt.act(t, e.quiz)
			tt.assert(t, snap, err)
		})
	}
}

func TestQuiz_StartRequiresQuestions(t *testing.T) {
	e := newQuizEngine(t)

	_, err := e.quiz.Start(makeQuiz("empty", domain.QuizEasy, 0))
	require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
	assert.Equal(t, session.QuizNotStarted, e.quiz.Snapshot().State)
	assert.Zero(t, e.clock.TickerCount())
}

func TestQuiz_NextBeforeAnswer(t *testing.T) {
	e := newQuizEngine(t)
	_, err := e.quiz.Start(makeQuiz("q1", domain.QuizEasy, 2))
	require.NoError(t, err)

	_, err = e.quiz.Next()
	require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
	assert.Equal(t, 0, e.quiz.Snapshot().QuestionIndex)
}

func TestQuiz_ExpiryRecordsNoAnswer(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizHard, 2)
	def.Questions[0].TimeLimit = 3

	snap, err := e.quiz.Start(def)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Remaining)

	tk := e.clock.Ticker()
	require.Equal(t, 3, tk.TickN(3))
	require.Eventually(t, func() bool {
		return e.quiz.Snapshot().State == session.QuizAwaitingAdvance
	}, waitFor, time.Millisecond)

	// The answer arrives too late and is ignored.
	snap, err = e.quiz.SelectAnswer(def.Questions[0].CorrectIndex)
	require.NoError(t, err)
	require.Len(t, snap.Answers, 1)
	assert.Equal(t, domain.NoAnswer, snap.Answers[0].SelectedIndex)
	assert.False(t, snap.Answers[0].Correct)
	assert.Equal(t, 3*time.Second, snap.Answers[0].TimeSpent)
	assert.Equal(t, 0, snap.Score)

	snap, err = e.quiz.Next()
	require.NoError(t, err)
	assert.Equal(t, session.QuizInProgress, snap.State)
	assert.Equal(t, domain.DefaultQuestionTimeLimit, snap.Remaining, "second question uses the default limit")
	assert.Equal(t, 2, e.clock.TickerCount())
}

func TestQuiz_ExpiryAfterAnswerIsIgnored(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizEasy, 1)
	def.Questions[0].TimeLimit = 2

	_, err := e.quiz.Start(def)
	require.NoError(t, err)

	tk := e.clock.Ticker()
	require.True(t, tk.Tick())

	snap, err := e.quiz.SelectAnswer(def.Questions[0].CorrectIndex)
	require.NoError(t, err)
	require.Equal(t, 10, snap.Score)
	assert.Equal(t, time.Second, snap.Answers[0].TimeSpent)

	tk.Tick()
	require.Eventually(t, tk.Stopped, waitFor, time.Millisecond)

	snap = e.quiz.Snapshot()
	assert.Len(t, snap.Answers, 1)
	assert.Equal(t, 10, snap.Score)
	assert.Equal(t, 1, snap.CorrectAnswers)
}

func TestQuiz_TimeoutOnEveryQuestion(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizExpert, 3)
	for i := range def.Questions {
		def.Questions[i].TimeLimit = 1
	}

	_, err := e.quiz.Start(def)
	require.NoError(t, err)

	for i := range def.Questions {
		require.True(t, e.clock.Ticker().Tick())
		require.Eventually(t, func() bool {
			return e.quiz.Snapshot().State == session.QuizAwaitingAdvance
		}, waitFor, time.Millisecond)

		_, err := e.quiz.Next()
		require.NoError(t, err, "question %d", i)
	}

	results := e.results()
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Score)
	assert.Equal(t, 0, results[0].CorrectAnswers)
	assert.Equal(t, 3*time.Second, results[0].TimeSpent)
	for _, a := range results[0].Answers {
		assert.Equal(t, domain.NoAnswer, a.SelectedIndex)
	}
}

func TestQuiz_ResetDiscardsAttempt(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizEasy, 1)

	_, err := e.quiz.Start(def)
	require.NoError(t, err)
	_, err = e.quiz.SelectAnswer(0)
	require.NoError(t, err)

	tk := e.clock.Ticker()
	snap := e.quiz.Reset()
	assert.Equal(t, session.QuizNotStarted, snap.State)
	assert.Empty(t, snap.QuizID)

	_, err = e.quiz.Next()
	require.Error(t, err)
	assert.Empty(t, e.results())
	require.Eventually(t, tk.Stopped, waitFor, time.Millisecond)
}

func TestQuiz_VersionGrowsWithTransitions(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizEasy, 2)

	snap, err := e.quiz.Start(def)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)

	snap, err = e.quiz.SelectAnswer(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)

	snap, err = e.quiz.SelectAnswer(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version, "a repeated answer is not a transition")

	assert.Equal(t, uint64(2), e.quiz.Snapshot().Version)

	snap, err = e.quiz.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Version)

	snap = e.quiz.Reset()
	assert.Equal(t, uint64(4), snap.Version, "reset keeps counting")
}

func TestQuiz_Subscribe(t *testing.T) {
	e := newQuizEngine(t)
	def := makeQuiz("q1", domain.QuizEasy, 1)
	def.Questions[0].TimeLimit = 5

	_, err := e.quiz.Start(def)
	require.NoError(t, err)

	ch, cancel := e.quiz.Subscribe()

	initial := <-ch
	assert.Equal(t, 5, initial.Remaining)

	require.True(t, e.clock.Ticker().Tick())
	tick := receive(t, ch)
	assert.Equal(t, 4, tick.Remaining)

	_, err = e.quiz.SelectAnswer(0)
	require.NoError(t, err)
	answered := receive(t, ch)
	assert.Equal(t, session.QuizAwaitingAdvance, answered.State)

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Observers only see transitions, never ticks.
	assert.Equal(t, []session.QuizState{session.QuizInProgress, session.QuizAwaitingAdvance}, e.changes())
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		t.Fatal("no snapshot received")
		var zero T
		return zero
	}
}

type quizEngine struct {
	quiz  *session.Quiz
	clock *timertest.Clock

	mu       sync.Mutex
	done     []domain.QuizResult
	observed []session.QuizState
}

func newQuizEngine(t *testing.T) *quizEngine {
	e := &quizEngine{clock: timertest.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))}

	e.quiz = session.NewQuiz(session.QuizConfig{
		ID:            "s1",
		Username:      "u1",
		NewTickerFunc: e.clock.NewTicker,
		Now:           e.clock.Now,
		OnChange: func(snap session.QuizSnapshot) {
			e.mu.Lock()
			e.observed = append(e.observed, snap.State)
			e.mu.Unlock()
		},
		OnComplete: func(r domain.QuizResult) {
			e.mu.Lock()
			e.done = append(e.done, r)
			e.mu.Unlock()
		},
	})
	t.Cleanup(e.quiz.Close)

	return e
}

func (e *quizEngine) results() []domain.QuizResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]domain.QuizResult(nil), e.done...)
}

func (e *quizEngine) changes() []session.QuizState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]session.QuizState(nil), e.observed...)
}

func makeQuiz(id string, d domain.QuizDifficulty, n int) *domain.QuizDefinition {
	q := &domain.QuizDefinition{
		ID:         id,
		Title:      "Quiz " + id,
		Category:   domain.CategoryScience,
		Difficulty: d,
	}

	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, domain.Question{
			ID:           id + "-" + string(rune('a'+i)),
			Prompt:       "prompt",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
			Explanation:  "because",
		})
	}

	return q
}
