package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizplay/internal/session"
)

type (
	startQuizBody struct {
		QuizID string `json:"quiz_id" binding:"required"`
	}

	selectAnswerBody struct {
		Index *int `json:"index" binding:"required"`
	}

	startPuzzleBody struct {
		PuzzleID string `json:"puzzle_id" binding:"required"`
	}

	answerBody struct {
		Answer string `json:"answer"`
	}

	// HintResponse carries the revealed hint, if any, and the session after the request.
	HintResponse struct {
		Hint     string                 `json:"hint,omitempty"`
		Revealed bool                   `json:"revealed"`
		Session  session.PuzzleSnapshot `json:"session"`
	}
)

func (a *API) StartQuiz(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var body startQuizBody
	if !bind(c, &body) {
		return
	}

	snap, err := a.ss.StartQuiz(c.Request.Context(), session.StartQuizRequest{
		Username: username,
		QuizID:   body.QuizID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

func (a *API) GetQuizSession(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	snap, err := a.ss.GetQuizSession(c.Request.Context(), session.GetSessionRequest{
		SessionID: c.Param("id"),
		Username:  username,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) SelectAnswer(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var body selectAnswerBody
	if !bind(c, &body) {
		return
	}

	snap, err := a.ss.SelectAnswer(c.Request.Context(), session.SelectAnswerRequest{
		SessionID: c.Param("id"),
		Username:  username,
		Index:     *body.Index,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) NextQuestion(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	snap, err := a.ss.NextQuestion(c.Request.Context(), session.NextQuestionRequest{
		SessionID: c.Param("id"),
		Username:  username,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) AbandonQuiz(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := a.ss.AbandonQuiz(c.Request.Context(), session.AbandonRequest{
		SessionID: c.Param("id"),
		Username:  username,
	}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) StartPuzzle(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var body startPuzzleBody
	if !bind(c, &body) {
		return
	}

	snap, err := a.ss.StartPuzzle(c.Request.Context(), session.StartPuzzleRequest{
		Username: username,
		PuzzleID: body.PuzzleID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

func (a *API) GetPuzzleSession(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	snap, err := a.ss.GetPuzzleSession(c.Request.Context(), session.GetSessionRequest{
		SessionID: c.Param("id"),
		Username:  username,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) UpdatePuzzleAnswer(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var body answerBody
	if !bind(c, &body) {
		return
	}

	snap, err := a.ss.UpdatePuzzleAnswer(c.Request.Context(), session.UpdateAnswerRequest{
		SessionID: c.Param("id"),
		Username:  username,
		Answer:    body.Answer,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) SubmitPuzzleAnswer(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var body answerBody
	if !bind(c, &body) {
		return
	}

	snap, err := a.ss.SubmitPuzzleAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		SessionID: c.Param("id"),
		Username:  username,
		Answer:    body.Answer,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (a *API) RequestHint(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	resp, err := a.ss.RequestHint(c.Request.Context(), session.RequestHintRequest{
		SessionID: c.Param("id"),
		Username:  username,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, HintResponse{
		Hint:     resp.Hint,
		Revealed: resp.Revealed,
		Session:  resp.Session,
	})
}

func (a *API) AbandonPuzzle(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := a.ss.AbandonPuzzle(c.Request.Context(), session.AbandonRequest{
		SessionID: c.Param("id"),
		Username:  username,
	}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
