// Package result persists completed quiz and puzzle results and derives user statistics from them.
package result

import (
	"context"
	"slices"
	"sync"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

// Store is an append-only list of results. Listings are ordered by completion time, oldest first.
// Results only leave the store when their user's history is purged.
type Store interface {
	AddQuizResult(ctx context.Context, r domain.QuizResult) error
	AddPuzzleResult(ctx context.Context, r domain.PuzzleResult) error
	ListQuizResults(ctx context.Context, username string) ([]domain.QuizResult, error)
	ListPuzzleResults(ctx context.Context, username string) ([]domain.PuzzleResult, error)
	// DeleteUserResults removes every result of the user and returns how many were removed.
	DeleteUserResults(ctx context.Context, username string) (int, error)
}

// MemoryStore keeps results for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	quizzes map[string][]domain.QuizResult
	puzzles map[string][]domain.PuzzleResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:     make(map[string]struct{}),
		quizzes: make(map[string][]domain.QuizResult),
		puzzles: make(map[string][]domain.PuzzleResult),
	}
}

func (m *MemoryStore) AddQuizResult(_ context.Context, r domain.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.claimLocked(r.ID); err != nil {
		return err
	}

	r.Answers = slices.Clone(r.Answers)
	m.quizzes[r.Username] = append(m.quizzes[r.Username], r)
	return nil
}

func (m *MemoryStore) AddPuzzleResult(_ context.Context, r domain.PuzzleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.claimLocked(r.ID); err != nil {
		return err
	}

	m.puzzles[r.Username] = append(m.puzzles[r.Username], r)
	return nil
}

func (m *MemoryStore) ListQuizResults(_ context.Context, username string) ([]domain.QuizResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.quizzes[username])
	for i := range out {
		out[i].Answers = slices.Clone(out[i].Answers)
	}
	return out, nil
}

func (m *MemoryStore) ListPuzzleResults(_ context.Context, username string) ([]domain.PuzzleResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.puzzles[username]), nil
}

func (m *MemoryStore) DeleteUserResults(_ context.Context, username string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.quizzes[username] {
		delete(m.ids, r.ID)
	}
	for _, r := range m.puzzles[username] {
		delete(m.ids, r.ID)
	}

	n := len(m.quizzes[username]) + len(m.puzzles[username])
	delete(m.quizzes, username)
	delete(m.puzzles, username)
	return n, nil
}

func (m *MemoryStore) claimLocked(id string) error {
	if id == "" {
		return errors.InvalidInput("result id is required")
	}
	if _, ok := m.ids[id]; ok {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("result %s already stored", id))
	}
	m.ids[id] = struct{}{}
	return nil
}
