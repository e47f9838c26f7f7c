package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/leaderboard"
	"github.com/victornm/quizplay/internal/result"
	"github.com/victornm/quizplay/internal/session"
)

func (a *API) ListQuizResults(c *gin.Context) {
	rs, err := a.rs.ListQuizResults(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]session.QuizOutcome, 0, len(rs))
	for _, r := range rs {
		out = append(out, *session.NewQuizOutcome(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (a *API) BestQuizResult(c *gin.Context) {
	r, err := a.rs.BestQuizResult(c.Request.Context(), result.BestResultRequest{
		Username: c.Param("username"),
		ID:       c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.NewQuizOutcome(*r))
}

func (a *API) ListPuzzleResults(c *gin.Context) {
	rs, err := a.rs.ListPuzzleResults(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]session.PuzzleOutcome, 0, len(rs))
	for _, r := range rs {
		out = append(out, *session.NewPuzzleOutcome(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (a *API) BestPuzzleResult(c *gin.Context) {
	r, err := a.rs.BestPuzzleResult(c.Request.Context(), result.BestResultRequest{
		Username: c.Param("username"),
		ID:       c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session.NewPuzzleOutcome(*r))
}

func (a *API) Stats(c *gin.Context) {
	st, err := a.rs.Stats(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

// DeleteUserData purges the caller's results and the content they created. Only the user
// may reset their own data.
func (a *API) DeleteUserData(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}
	if username != c.Param("username") {
		writeError(c, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("cannot delete the data of another user")))
		return
	}

	ctx := c.Request.Context()
	if _, err := a.cs.DeleteUserContent(ctx, username); err != nil {
		writeError(c, err)
		return
	}
	if _, err := a.rs.DeleteUserResults(ctx, username); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// board maps the kind path segment to a leaderboard name.
func board(c *gin.Context) (string, bool) {
	id := c.Param("id")
	switch c.Param("kind") {
	case "quiz", "quizzes":
		return domain.QuizBoard(id), true
	case "puzzle", "puzzles":
		return domain.PuzzleBoard(id), true
	}

	writeError(c, errors.InvalidInput("unknown leaderboard kind %q", c.Param("kind")))
	return "", false
}

func (a *API) GetLeaderboard(c *gin.Context) {
	b, ok := board(c)
	if !ok {
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		Board: b,
		Limit: limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, newLeaderboard(*l))
}

func (a *API) GetRank(c *gin.Context) {
	b, ok := board(c)
	if !ok {
		return
	}

	r, err := a.ls.GetRank(c.Request.Context(), leaderboard.GetRankRequest{
		Board:    b,
		Username: c.Param("username"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"board":    b,
		"username": c.Param("username"),
		"rank":     r.Rank,
		"score":    strconv.FormatFloat(r.Score, 'f', -1, 64),
	})
}
