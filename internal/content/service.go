// Package content holds the quiz and puzzle definitions sessions are started from. Definitions
// are immutable once added; callers must not modify the values they get back.
package content

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/score"
)

const (
	recommendSampleSize   = 6
	advancedThreshold     = 80
	intermediateThreshold = 60
)

// History supplies the puzzle results recommendations are based on.
type History interface {
	ListPuzzleResults(ctx context.Context, username string) ([]domain.PuzzleResult, error)
}

type Config struct {
	Catalog *Catalog
	History History
	Now     func() time.Time
	// Shuffle reorders puzzles for users without history. Defaults to math/rand/v2.
	Shuffle func(n int, swap func(i, j int))
}

type Service struct {
	history History
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))

	mu      sync.RWMutex
	quizzes []*domain.QuizDefinition
	puzzles []*domain.PuzzleDefinition
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Shuffle == nil {
		c.Shuffle = rand.Shuffle
	}

	s := &Service{
		history: c.History,
		now:     c.Now,
		shuffle: c.Shuffle,
	}

	if c.Catalog != nil {
		loaded := c.Now()
		for _, q := range c.Catalog.Quizzes {
			q := q
			if q.CreatedAt.IsZero() {
				q.CreatedAt = loaded
			}
			s.quizzes = append(s.quizzes, &q)
		}
		for _, p := range c.Catalog.Puzzles {
			p := p
			if p.CreatedAt.IsZero() {
				p.CreatedAt = loaded
			}
			s.puzzles = append(s.puzzles, &p)
		}
	}

	return s
}

func (s *Service) GetQuiz(_ context.Context, id string) (*domain.QuizDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.quizIndexLocked(id); i >= 0 {
		return s.quizzes[i], nil
	}
	return nil, errors.NotFound("quiz %s not found", id)
}

func (s *Service) GetPuzzle(_ context.Context, id string) (*domain.PuzzleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.puzzleIndexLocked(id); i >= 0 {
		return s.puzzles[i], nil
	}
	return nil, errors.NotFound("puzzle %s not found", id)
}

// ListQuizzesRequest filters quizzes. Empty fields match everything. Query is a
// case-insensitive substring of the title, description or category.
type ListQuizzesRequest struct {
	Category   domain.QuizCategory
	Difficulty domain.QuizDifficulty
	Query      string
}

func (s *Service) ListQuizzes(_ context.Context, req ListQuizzesRequest) ([]*domain.QuizDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(req.Query))

	out := make([]*domain.QuizDefinition, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if req.Category != "" && q.Category != req.Category {
			continue
		}
		if req.Difficulty != "" && q.Difficulty != req.Difficulty {
			continue
		}
		if !matches(query, q.Title, q.Description, string(q.Category)) {
			continue
		}
		out = append(out, q)
	}

	return out, nil
}

// ListPuzzlesRequest filters puzzles. Empty fields match everything. Query is a
// case-insensitive substring of the title, description or type.
type ListPuzzlesRequest struct {
	Type       domain.PuzzleType
	Difficulty domain.PuzzleDifficulty
	Query      string
}

func (s *Service) ListPuzzles(_ context.Context, req ListPuzzlesRequest) ([]*domain.PuzzleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterPuzzlesLocked(req), nil
}

func (s *Service) filterPuzzlesLocked(req ListPuzzlesRequest) []*domain.PuzzleDefinition {
	query := strings.ToLower(strings.TrimSpace(req.Query))

	out := make([]*domain.PuzzleDefinition, 0, len(s.puzzles))
	for _, p := range s.puzzles {
		if req.Type != "" && p.Type != req.Type {
			continue
		}
		if req.Difficulty != "" && p.Difficulty != req.Difficulty {
			continue
		}
		if !matches(query, p.Title, p.Description, string(p.Type)) {
			continue
		}
		out = append(out, p)
	}

	return out
}

type AddQuizRequest struct {
	Username string
	Quiz     domain.QuizDefinition
}

// AddQuiz validates and stores a user-generated quiz. Identifiers are assigned by the service.
func (s *Service) AddQuiz(ctx context.Context, req AddQuizRequest) (*domain.QuizDefinition, error) {
	if req.Username == "" {
		return nil, errors.InvalidInput("username is required")
	}

	q := req.Quiz
	q.Questions = slices.Clone(q.Questions)
	if q.Category == "" {
		q.Category = domain.CategoryUserGenerated
	}
	for i := range q.Questions {
		q.Questions[i].Options = slices.Clone(q.Questions[i].Options)
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = newID()
		}
	}
	if err := ValidateQuiz(&q); err != nil {
		return nil, err
	}

	q.ID = newID()
	q.UserGenerated = true
	q.CreatedBy = req.Username
	q.CreatedAt = s.now()
	if q.EstimatedTime == 0 {
		q.EstimatedTime = estimateQuizMinutes(q.Questions)
	}

	s.mu.Lock()
	s.quizzes = append(s.quizzes, &q)
	s.mu.Unlock()

	slog.InfoContext(ctx, "content: quiz added", "quiz", q.ID, "username", req.Username)
	return &q, nil
}

type AddPuzzleRequest struct {
	Username string
	Puzzle   domain.PuzzleDefinition
}

// AddPuzzle validates and stores a user-generated puzzle. Points default to the base points
// of its difficulty.
func (s *Service) AddPuzzle(ctx context.Context, req AddPuzzleRequest) (*domain.PuzzleDefinition, error) {
	if req.Username == "" {
		return nil, errors.InvalidInput("username is required")
	}

	p := req.Puzzle
	p.Hints = slices.Clone(p.Hints)
	if err := ValidatePuzzle(&p); err != nil {
		return nil, err
	}

	p.ID = newID()
	p.UserGenerated = true
	p.CreatedBy = req.Username
	p.CreatedAt = s.now()
	if p.Points == 0 {
		p.Points = p.Difficulty.BasePoints()
	}

	s.mu.Lock()
	s.puzzles = append(s.puzzles, &p)
	s.mu.Unlock()

	slog.InfoContext(ctx, "content: puzzle added", "puzzle", p.ID, "username", req.Username)
	return &p, nil
}

type DeleteRequest struct {
	Username string
	ID       string
}

// DeleteQuiz removes a user-generated quiz owned by the caller. Sessions already running keep
// their own reference to the definition.
func (s *Service) DeleteQuiz(ctx context.Context, req DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.quizIndexLocked(req.ID)
	if i < 0 {
		return errors.NotFound("quiz %s not found", req.ID)
	}
	if err := checkOwner(s.quizzes[i].UserGenerated, s.quizzes[i].CreatedBy, req.Username); err != nil {
		return err
	}

	s.quizzes = slices.Delete(s.quizzes, i, i+1)
	slog.InfoContext(ctx, "content: quiz deleted", "quiz", req.ID, "username", req.Username)
	return nil
}

func (s *Service) DeletePuzzle(ctx context.Context, req DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.puzzleIndexLocked(req.ID)
	if i < 0 {
		return errors.NotFound("puzzle %s not found", req.ID)
	}
	if err := checkOwner(s.puzzles[i].UserGenerated, s.puzzles[i].CreatedBy, req.Username); err != nil {
		return err
	}

	s.puzzles = slices.Delete(s.puzzles, i, i+1)
	slog.InfoContext(ctx, "content: puzzle deleted", "puzzle", req.ID, "username", req.Username)
	return nil
}

// DeleteUserContent removes every quiz and puzzle the user created and returns how many were
// removed. Built-in content is never touched.
func (s *Service) DeleteUserContent(ctx context.Context, username string) (int, error) {
	if username == "" {
		return 0, errors.InvalidInput("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.quizzes) + len(s.puzzles)
	s.quizzes = slices.DeleteFunc(s.quizzes, func(q *domain.QuizDefinition) bool {
		return q.UserGenerated && q.CreatedBy == username
	})
	s.puzzles = slices.DeleteFunc(s.puzzles, func(p *domain.PuzzleDefinition) bool {
		return p.UserGenerated && p.CreatedBy == username
	})
	n -= len(s.quizzes) + len(s.puzzles)

	slog.InfoContext(ctx, "content: user content deleted", "username", username, "items", n)
	return n, nil
}

// RecommendPuzzles picks puzzle difficulties from the user's average puzzle score. Users
// without results get a random sample.
func (s *Service) RecommendPuzzles(ctx context.Context, username string) ([]*domain.PuzzleDefinition, error) {
	var results []domain.PuzzleResult
	if s.history != nil {
		var err error
		results, err = s.history.ListPuzzleResults(ctx, username)
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(results) == 0 {
		sample := slices.Clone(s.puzzles)
		s.shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
		return sample[:min(len(sample), recommendSampleSize)], nil
	}

	total := 0
	for _, r := range results {
		total += score.PuzzleResult(r)
	}
	avg := total / len(results)

	var levels []domain.PuzzleDifficulty
	switch {
	case avg > advancedThreshold:
		levels = []domain.PuzzleDifficulty{domain.PuzzleAdvanced, domain.PuzzleMaster}
	case avg > intermediateThreshold:
		levels = []domain.PuzzleDifficulty{domain.PuzzleIntermediate, domain.PuzzleAdvanced}
	default:
		levels = []domain.PuzzleDifficulty{domain.PuzzleBeginner, domain.PuzzleIntermediate}
	}

	out := make([]*domain.PuzzleDefinition, 0, len(s.puzzles))
	for _, p := range s.puzzles {
		if slices.Contains(levels, p.Difficulty) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) quizIndexLocked(id string) int {
	return slices.IndexFunc(s.quizzes, func(q *domain.QuizDefinition) bool { return q.ID == id })
}

func (s *Service) puzzleIndexLocked(id string) int {
	return slices.IndexFunc(s.puzzles, func(p *domain.PuzzleDefinition) bool { return p.ID == id })
}

func checkOwner(userGenerated bool, owner, username string) error {
	if !userGenerated {
		return errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("built-in content cannot be deleted"))
	}
	if owner != username {
		return errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("content belongs to another user"))
	}
	return nil
}

func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// estimateQuizMinutes rounds the sum of question limits up to whole minutes.
func estimateQuizMinutes(qs []domain.Question) int {
	seconds := 0
	for _, q := range qs {
		seconds += q.Limit()
	}
	return (seconds + 59) / 60
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
