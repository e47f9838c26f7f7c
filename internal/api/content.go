package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/domain"
)

type (
	// QuizSummary lists a quiz without its questions.
	QuizSummary struct {
		ID            string                `json:"id"`
		Title         string                `json:"title"`
		Description   string                `json:"description"`
		Category      domain.QuizCategory   `json:"category"`
		Difficulty    domain.QuizDifficulty `json:"difficulty"`
		QuestionCount int                   `json:"question_count"`
		EstimatedTime int                   `json:"estimated_time"`
		UserGenerated bool                  `json:"user_generated"`
		CreatedBy     string                `json:"created_by,omitempty"`
	}

	// Puzzle is a puzzle definition as served to players: the solution stays on the server and
	// only the number of hints is shown.
	Puzzle struct {
		*domain.PuzzleDefinition
		HintCount     int `json:"hint_count"`
		EstimatedTime int `json:"estimated_time"`
	}

	// PuzzleInput is the body of a new user-generated puzzle.
	PuzzleInput struct {
		Title       string                  `json:"title" binding:"required"`
		Description string                  `json:"description"`
		Type        domain.PuzzleType       `json:"type" binding:"required"`
		Difficulty  domain.PuzzleDifficulty `json:"difficulty" binding:"required"`
		Content     domain.PuzzleContent    `json:"content"`
		Solution    string                  `json:"solution" binding:"required"`
		Hints       []string                `json:"hints"`
		TimeLimit   int                     `json:"time_limit"`
		Points      int                     `json:"points"`
	}
)

func newQuizSummary(q *domain.QuizDefinition) QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
		QuestionCount: len(q.Questions),
		EstimatedTime: q.EstimatedTime,
		UserGenerated: q.UserGenerated,
		CreatedBy:     q.CreatedBy,
	}
}

func newPuzzle(p *domain.PuzzleDefinition) Puzzle {
	return Puzzle{
		PuzzleDefinition: p,
		HintCount:        len(p.Hints),
		EstimatedTime:    p.EstimatedTime(),
	}
}

func newPuzzles(ps []*domain.PuzzleDefinition) []Puzzle {
	out := make([]Puzzle, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPuzzle(p))
	}
	return out
}

func (a *API) ListQuizzes(c *gin.Context) {
	qs, err := a.cs.ListQuizzes(c.Request.Context(), content.ListQuizzesRequest{
		Category:   domain.QuizCategory(c.Query("category")),
		Difficulty: domain.QuizDifficulty(c.Query("difficulty")),
		Query:      c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]QuizSummary, 0, len(qs))
	for _, q := range qs {
		out = append(out, newQuizSummary(q))
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": out})
}

func (a *API) GetQuiz(c *gin.Context) {
	q, err := a.cs.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

func (a *API) AddQuiz(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var in domain.QuizDefinition
	if !bind(c, &in) {
		return
	}

	q, err := a.cs.AddQuiz(c.Request.Context(), content.AddQuizRequest{
		Username: username,
		Quiz:     in,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

func (a *API) DeleteQuiz(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := a.cs.DeleteQuiz(c.Request.Context(), content.DeleteRequest{
		Username: username,
		ID:       c.Param("id"),
	}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) ListPuzzles(c *gin.Context) {
	ps, err := a.cs.ListPuzzles(c.Request.Context(), content.ListPuzzlesRequest{
		Type:       domain.PuzzleType(c.Query("type")),
		Difficulty: domain.PuzzleDifficulty(c.Query("difficulty")),
		Query:      c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"puzzles": newPuzzles(ps)})
}

func (a *API) GetPuzzle(c *gin.Context) {
	p, err := a.cs.GetPuzzle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPuzzle(p))
}

func (a *API) AddPuzzle(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var in PuzzleInput
	if !bind(c, &in) {
		return
	}

	p, err := a.cs.AddPuzzle(c.Request.Context(), content.AddPuzzleRequest{
		Username: username,
		Puzzle: domain.PuzzleDefinition{
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			Difficulty:  in.Difficulty,
			Content:     in.Content,
			Solution:    in.Solution,
			Hints:       in.Hints,
			TimeLimit:   in.TimeLimit,
			Points:      in.Points,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newPuzzle(p))
}

func (a *API) DeletePuzzle(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := a.cs.DeletePuzzle(c.Request.Context(), content.DeleteRequest{
		Username: username,
		ID:       c.Param("id"),
	}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) RecommendPuzzles(c *gin.Context) {
	ps, err := a.cs.RecommendPuzzles(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"puzzles": newPuzzles(ps)})
}
