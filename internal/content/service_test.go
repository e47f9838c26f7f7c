package content_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := content.DefaultCatalog()
	require.NoError(t, err)

	assert.Len(t, c.Quizzes, 3)
	assert.Len(t, c.Puzzles, 5)

	for _, p := range c.Puzzles {
		assert.LessOrEqual(t, len(p.Hints), p.Difficulty.MaxHints(), p.ID)
		assert.NotEmpty(t, p.Solution, p.ID)
	}
}

func TestDecodeCatalog(t *testing.T) {
	tests := map[string]struct {
		yaml   string
		assert func(t *testing.T, c *content.Catalog, err error)
	}{
		"should reject unknown fields": {
			yaml: `
quizzes:
  - id: q1
    title: T
    colour: red
`,
			assert: func(t *testing.T, _ *content.Catalog, err error) {
				require.Error(t, err)
			},
		},

		"should reject too many hints for the difficulty": {
			yaml: `
puzzles:
  - id: p1
    title: P
    type: Riddle
    difficulty: Master
    solution: x
    hints: [one]
`,
			assert: func(t *testing.T, _ *content.Catalog, err error) {
				require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
			},
		},

		"should reject duplicate ids": {
			yaml: `
puzzles:
  - {id: p1, title: P, type: Riddle, difficulty: Beginner, solution: x}
  - {id: p1, title: Q, type: Logic, difficulty: Beginner, solution: y}
`,
			assert: func(t *testing.T, _ *content.Catalog, err error) {
				require.ErrorContains(t, err, "duplicate id p1")
			},
		},

		"should accept an empty document": {
			yaml: ``,
			assert: func(t *testing.T, c *content.Catalog, err error) {
				require.NoError(t, err)
				assert.Empty(t, c.Quizzes)
				assert.Empty(t, c.Puzzles)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := content.DecodeCatalog(strings.NewReader(tt.yaml))
			tt.assert(t, c, err)
		})
	}
}

func TestService_ListQuizzes(t *testing.T) {
	s := makeService(t, nil)

	tests := map[string]struct {
		req  content.ListQuizzesRequest
		want []string
	}{
		"all":             {req: content.ListQuizzesRequest{}, want: []string{"future-technology-trends", "space-exploration", "programming-fundamentals"}},
		"by category":     {req: content.ListQuizzesRequest{Category: domain.CategoryScience}, want: []string{"space-exploration"}},
		"by difficulty":   {req: content.ListQuizzesRequest{Difficulty: domain.QuizEasy}, want: []string{"programming-fundamentals"}},
		"search title":    {req: content.ListQuizzesRequest{Query: "SPACE"}, want: []string{"space-exploration"}},
		"search category": {req: content.ListQuizzesRequest{Query: "futuristic"}, want: []string{"future-technology-trends"}},
		"search desc":     {req: content.ListQuizzesRequest{Query: "terminology"}, want: []string{"programming-fundamentals"}},
		"no match":        {req: content.ListQuizzesRequest{Query: "cooking"}, want: []string{}},
		"combined":        {req: content.ListQuizzesRequest{Category: domain.CategoryScience, Difficulty: domain.QuizEasy}, want: []string{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := s.ListQuizzes(context.Background(), tt.req)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, q := range got {
				ids = append(ids, q.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestService_ListPuzzles(t *testing.T) {
	s := makeService(t, nil)

	got, err := s.ListPuzzles(context.Background(), content.ListPuzzlesRequest{Query: "riddle"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "future-city-riddle", got[0].ID)

	got, err = s.ListPuzzles(context.Background(), content.ListPuzzlesRequest{Difficulty: domain.PuzzleIntermediate})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListPuzzles(context.Background(), content.ListPuzzlesRequest{Type: domain.PuzzleCodeBreaking})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 15, got[0].EstimatedTime(), "uses the explicit time limit")
}

func TestService_Get(t *testing.T) {
	s := makeService(t, nil)
	ctx := context.Background()

	q, err := s.GetQuiz(ctx, "space-exploration")
	require.NoError(t, err)
	assert.Equal(t, domain.QuizHard, q.Difficulty)

	_, err = s.GetQuiz(ctx, "nope")
	require.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)

	p, err := s.GetPuzzle(ctx, "code-cipher")
	require.NoError(t, err)
	assert.Equal(t, "hello world", p.Solution)

	_, err = s.GetPuzzle(ctx, "nope")
	require.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)
}

func TestService_AddQuiz(t *testing.T) {
	valid := domain.QuizDefinition{
		Title:      "Mine",
		Difficulty: domain.QuizEasy,
		Questions: []domain.Question{
			{Prompt: "1+1", Options: []string{"1", "2"}, CorrectIndex: 1},
			{Prompt: "2+2", Options: []string{"4", "5"}, CorrectIndex: 0, TimeLimit: 30},
		},
	}

	tests := map[string]struct {
		arrange func() content.AddQuizRequest
		assert  func(t *testing.T, q *domain.QuizDefinition, err error)
	}{
		"should store a user quiz": {
			arrange: func() content.AddQuizRequest {
				return content.AddQuizRequest{Username: "u1", Quiz: valid}
			},
			assert: func(t *testing.T, q *domain.QuizDefinition, err error) {
				require.NoError(t, err)
				assert.NotEmpty(t, q.ID)
				assert.True(t, q.UserGenerated)
				assert.Equal(t, "u1", q.CreatedBy)
				assert.Equal(t, domain.CategoryUserGenerated, q.Category)
				assert.Equal(t, 2, q.EstimatedTime)
				for _, qs := range q.Questions {
					assert.NotEmpty(t, qs.ID)
				}
			},
		},

		"should reject a correct index out of range": {
			arrange: func() content.AddQuizRequest {
				q := valid
				q.Questions = []domain.Question{{Prompt: "x", Options: []string{"a", "b"}, CorrectIndex: 2}}
				return content.AddQuizRequest{Username: "u1", Quiz: q}
			},
			assert: func(t *testing.T, _ *domain.QuizDefinition, err error) {
				require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
			},
		},

		"should reject a single option": {
			arrange: func() content.AddQuizRequest {
				q := valid
				q.Questions = []domain.Question{{Prompt: "x", Options: []string{"a"}}}
				return content.AddQuizRequest{Username: "u1", Quiz: q}
			},
			assert: func(t *testing.T, _ *domain.QuizDefinition, err error) {
				require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
			},
		},

		"should reject a quiz without questions": {
			arrange: func() content.AddQuizRequest {
				q := valid
				q.Questions = nil
				return content.AddQuizRequest{Username: "u1", Quiz: q}
			},
			assert: func(t *testing.T, _ *domain.QuizDefinition, err error) {
				require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
			},
		},

		"should require a username": {
			arrange: func() content.AddQuizRequest {
				return content.AddQuizRequest{Quiz: valid}
			},
			assert: func(t *testing.T, _ *domain.QuizDefinition, err error) {
				require.True(t, errors.HasCode(err, errors.CodeInvalidArgument), "got %v", err)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := makeService(t, nil)

			q, err := s.AddQuiz(context.Background(), tt.arrange())
			tt.assert(t, q, err)
		})
	}
}

func TestService_AddPuzzle(t *testing.T) {
	ctx := context.Background()
	s := makeService(t, nil)

	p, err := s.AddPuzzle(ctx, content.AddPuzzleRequest{
		Username: "u1",
		Puzzle: domain.PuzzleDefinition{
			Title:      "Mine",
			Type:       domain.PuzzleMath,
			Difficulty: domain.PuzzleIntermediate,
			Content:    domain.PuzzleContent{Main: "3 * 3"},
			Solution:   "9",
			Hints:      []string{"multiply", "square"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, p.Points, "defaults to the difficulty's base points")
	assert.Equal(t, 17, p.EstimatedTime())

	got, err := s.GetPuzzle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = s.AddPuzzle(ctx, content.AddPuzzleRequest{
		Username: "u1",
		Puzzle: domain.PuzzleDefinition{
			Title:      "Too helpful",
			Type:       domain.PuzzleMath,
			Difficulty: domain.PuzzleAdvanced,
			Solution:   "9",
			Hints:      []string{"one", "two"},
		},
	})
	require.True(t, errors.HasCode(err, errors.CodeFailedPrecondition), "got %v", err)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	s := makeService(t, nil)

	p, err := s.AddPuzzle(ctx, content.AddPuzzleRequest{
		Username: "u1",
		Puzzle: domain.PuzzleDefinition{
			Title: "Mine", Type: domain.PuzzleRiddle, Difficulty: domain.PuzzleBeginner, Solution: "x",
		},
	})
	require.NoError(t, err)

	err = s.DeletePuzzle(ctx, content.DeleteRequest{Username: "u2", ID: p.ID})
	require.True(t, errors.HasCode(err, errors.CodePermissionDenied), "got %v", err)

	err = s.DeletePuzzle(ctx, content.DeleteRequest{Username: "u1", ID: "code-cipher"})
	require.True(t, errors.HasCode(err, errors.CodePermissionDenied), "built-in puzzles stay, got %v", err)

	require.NoError(t, s.DeletePuzzle(ctx, content.DeleteRequest{Username: "u1", ID: p.ID}))

	_, err = s.GetPuzzle(ctx, p.ID)
	require.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)

	err = s.DeleteQuiz(ctx, content.DeleteRequest{Username: "u1", ID: "nope"})
	require.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)
}

func TestService_DeleteUserContent(t *testing.T) {
	ctx := context.Background()
	s := makeService(t, nil)

	builtinQuizzes, err := s.ListQuizzes(ctx, content.ListQuizzesRequest{})
	require.NoError(t, err)
	builtinPuzzles, err := s.ListPuzzles(ctx, content.ListPuzzlesRequest{})
	require.NoError(t, err)

	addPuzzle := func(username string) *domain.PuzzleDefinition {
		p, err := s.AddPuzzle(ctx, content.AddPuzzleRequest{
			Username: username,
			Puzzle: domain.PuzzleDefinition{
				Title: "Mine", Type: domain.PuzzleRiddle, Difficulty: domain.PuzzleBeginner, Solution: "x",
			},
		})
		require.NoError(t, err)
		return p
	}

	q, err := s.AddQuiz(ctx, content.AddQuizRequest{
		Username: "u1",
		Quiz: domain.QuizDefinition{
			Title:      "Mine",
			Difficulty: domain.QuizEasy,
			Questions:  []domain.Question{{Prompt: "1+1", Options: []string{"1", "2"}, CorrectIndex: 1}},
		},
	})
	require.NoError(t, err)
	mine := addPuzzle("u1")
	theirs := addPuzzle("u2")

	n, err := s.DeleteUserContent(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.GetQuiz(ctx, q.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)
	_, err = s.GetPuzzle(ctx, mine.ID)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound), "got %v", err)
	_, err = s.GetPuzzle(ctx, theirs.ID)
	assert.NoError(t, err, "other users keep their content")

	quizzes, err := s.ListQuizzes(ctx, content.ListQuizzesRequest{})
	require.NoError(t, err)
	assert.Len(t, quizzes, len(builtinQuizzes))
	puzzles, err := s.ListPuzzles(ctx, content.ListPuzzlesRequest{})
	require.NoError(t, err)
	assert.Len(t, puzzles, len(builtinPuzzles)+1)

	n, err = s.DeleteUserContent(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n, "purging twice is a no-op")

	_, err = s.DeleteUserContent(ctx, "")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument), "got %v", err)
}

func TestService_RecommendPuzzles(t *testing.T) {
	solved := func(base int, spent time.Duration) domain.PuzzleResult {
		return domain.PuzzleResult{BasePoints: base, Completed: true, Solved: true, TimeSpent: spent, Attempts: 1}
	}

	tests := map[string]struct {
		history []domain.PuzzleResult
		want    []string
	}{
		"high performer gets advanced and master": {
			history: []domain.PuzzleResult{solved(100, time.Minute)},
			want:    []string{"code-cipher", "logic-gate-challenge"},
		},
		"average above 60 gets intermediate and advanced": {
			history: []domain.PuzzleResult{solved(25, 10*time.Minute), solved(25, 5*time.Minute)},
			want:    []string{"future-city-riddle", "code-cipher", "word-transformation"},
		},
		"unsolved history gets beginner and intermediate": {
			history: []domain.PuzzleResult{{BasePoints: 200, Completed: true}},
			want:    []string{"missing-number", "future-city-riddle", "word-transformation"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := makeService(t, fakeHistory(tt.history))

			got, err := s.RecommendPuzzles(context.Background(), "u1")
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestService_RecommendPuzzles_NoHistory(t *testing.T) {
	s := makeService(t, fakeHistory(nil))

	got, err := s.RecommendPuzzles(context.Background(), "new")
	require.NoError(t, err)
	assert.Len(t, got, 5, "a random sample capped at six")
}

func makeService(t *testing.T, h content.History) *content.Service {
	t.Helper()

	c, err := content.DefaultCatalog()
	require.NoError(t, err)

	return content.NewService(content.Config{
		Catalog: c,
		History: h,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

type fakeHistory []domain.PuzzleResult

func (f fakeHistory) ListPuzzleResults(context.Context, string) ([]domain.PuzzleResult, error) {
	return f, nil
}
