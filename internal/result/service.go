package result

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/score"
	"github.com/victornm/quizplay/internal/telemetry"
)

const statsPrecision = 2

const (
	xpPerQuiz         = 10
	xpPerSolvedPuzzle = 15
	xpPerLevel        = 100
)

type Config struct {
	EventBus *event.Bus
	Store    Store
}

type Service struct {
	store Store
	sf    singleflight.Group
}

// NewService subscribes the store to completion events. Results are persisted asynchronously;
// failures are logged and counted but never reach the session that produced them.
func NewService(c Config) *Service {
	if c.Store == nil {
		c.Store = NewMemoryStore()
	}

	s := &Service{store: c.Store}

	if c.EventBus != nil {
		event.On(c.EventBus, domain.EventNameQuizCompleted, func(ctx context.Context, e domain.EventQuizCompleted) error {
			return s.storeQuiz(ctx, e.Result)
		})
		event.On(c.EventBus, domain.EventNamePuzzleCompleted, func(ctx context.Context, e domain.EventPuzzleCompleted) error {
			return s.storePuzzle(ctx, e.Result)
		})
	}

	return s
}

func (s *Service) storeQuiz(ctx context.Context, r domain.QuizResult) error {
	err := s.store.AddQuizResult(ctx, r)
	telemetry.ResultStored("quiz", err)
	if err != nil {
		return fmt.Errorf("store quiz result %s: %w", r.ID, err)
	}

	slog.DebugContext(ctx, "result: quiz stored", "id", r.ID, "username", r.Username, "quiz", r.QuizID, "score", r.Score)
	s.sf.Forget(r.Username)
	return nil
}

func (s *Service) storePuzzle(ctx context.Context, r domain.PuzzleResult) error {
	err := s.store.AddPuzzleResult(ctx, r)
	telemetry.ResultStored("puzzle", err)
	if err != nil {
		return fmt.Errorf("store puzzle result %s: %w", r.ID, err)
	}

	slog.DebugContext(ctx, "result: puzzle stored", "id", r.ID, "username", r.Username, "puzzle", r.PuzzleID, "solved", r.Solved)
	s.sf.Forget(r.Username)
	return nil
}

func (s *Service) ListQuizResults(ctx context.Context, username string) ([]domain.QuizResult, error) {
	if username == "" {
		return nil, errors.InvalidInput("username is required")
	}
	return s.store.ListQuizResults(ctx, username)
}

func (s *Service) ListPuzzleResults(ctx context.Context, username string) ([]domain.PuzzleResult, error) {
	if username == "" {
		return nil, errors.InvalidInput("username is required")
	}
	return s.store.ListPuzzleResults(ctx, username)
}

// DeleteUserResults purges the user's history. Statistics computed afterwards start from zero.
func (s *Service) DeleteUserResults(ctx context.Context, username string) (int, error) {
	if username == "" {
		return 0, errors.InvalidInput("username is required")
	}

	n, err := s.store.DeleteUserResults(ctx, username)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "result: user history deleted", "username", username, "results", n)
	s.sf.Forget(username)
	return n, nil
}

type BestResultRequest struct {
	Username string
	ID       string
}

// BestQuizResult returns the highest scoring result of a quiz. Ties go to the earliest result.
func (s *Service) BestQuizResult(ctx context.Context, req BestResultRequest) (*domain.QuizResult, error) {
	results, err := s.ListQuizResults(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	var best *domain.QuizResult
	for i := range results {
		r := &results[i]
		if r.QuizID != req.ID {
			continue
		}
		if best == nil || r.Score > best.Score {
			best = r
		}
	}

	if best == nil {
		return nil, errors.NotFound("no result for quiz %s", req.ID)
	}
	return best, nil
}

// BestPuzzleResult returns the highest scoring result of a puzzle. Ties go to the earliest result.
func (s *Service) BestPuzzleResult(ctx context.Context, req BestResultRequest) (*domain.PuzzleResult, error) {
	results, err := s.ListPuzzleResults(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	var (
		best      *domain.PuzzleResult
		bestScore int
	)
	for i := range results {
		r := &results[i]
		if r.PuzzleID != req.ID {
			continue
		}
		if sc := score.PuzzleResult(*r); best == nil || sc > bestScore {
			best, bestScore = r, sc
		}
	}

	if best == nil {
		return nil, errors.NotFound("no result for puzzle %s", req.ID)
	}
	return best, nil
}

// Stats summarises a user's history.
type Stats struct {
	Username         string          `json:"username"`
	QuizzesCompleted int             `json:"quizzes_completed"`
	QuizAverageScore decimal.Decimal `json:"quiz_average_score"`
	PuzzlesCompleted int             `json:"puzzles_completed"`
	PuzzlesSolved    int             `json:"puzzles_solved"`
	PuzzleAverage    decimal.Decimal `json:"puzzle_average_score"`
	SolveRate        decimal.Decimal `json:"solve_rate"`
	TotalTime        time.Duration   `json:"total_time"`
	XP               int             `json:"xp"`
	Level            int             `json:"level"`
}

// Stats loads and summarises the user's results. Concurrent calls for the same user share one load.
func (s *Service) Stats(ctx context.Context, username string) (*Stats, error) {
	if username == "" {
		return nil, errors.InvalidInput("username is required")
	}

	v, err, _ := s.sf.Do(username, func() (any, error) {
		quizzes, err := s.store.ListQuizResults(ctx, username)
		if err != nil {
			return nil, err
		}
		puzzles, err := s.store.ListPuzzleResults(ctx, username)
		if err != nil {
			return nil, err
		}

		st := Summarize(quizzes, puzzles)
		st.Username = username
		return st, nil
	})
	if err != nil {
		return nil, err
	}

	st := v.(Stats)
	return &st, nil
}

// Summarize computes statistics over a user's results:
//   - quizzes and puzzles completed count distinct content items
//   - the quiz average is taken over every quiz result
//   - the puzzle average is taken over solved results only
//   - the solve rate is the share of solved puzzle results, in percent
//   - XP is 10 per quiz completed plus 15 per puzzle solved, and every 100 XP is a level
func Summarize(quizzes []domain.QuizResult, puzzles []domain.PuzzleResult) Stats {
	var st Stats

	quizIDs := make(map[string]struct{})
	quizTotal := 0
	for _, r := range quizzes {
		quizIDs[r.QuizID] = struct{}{}
		quizTotal += r.Score
		st.TotalTime += r.TimeSpent
	}
	st.QuizzesCompleted = len(quizIDs)
	st.QuizAverageScore = average(quizTotal, len(quizzes))

	puzzleIDs := make(map[string]struct{})
	solvedTotal := 0
	for _, r := range puzzles {
		puzzleIDs[r.PuzzleID] = struct{}{}
		st.TotalTime += r.TimeSpent
		if r.Solved {
			st.PuzzlesSolved++
			solvedTotal += score.PuzzleResult(r)
		}
	}
	st.PuzzlesCompleted = len(puzzleIDs)
	st.PuzzleAverage = average(solvedTotal, st.PuzzlesSolved)
	st.SolveRate = score.QuizPercentage(st.PuzzlesSolved, len(puzzles)).Round(statsPrecision)

	st.XP = st.QuizzesCompleted*xpPerQuiz + st.PuzzlesSolved*xpPerSolvedPuzzle
	st.Level = max(1, st.XP/xpPerLevel+1)

	return st
}

func average(total, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(total)).
		DivRound(decimal.NewFromInt(int64(n)), statsPrecision)
}
