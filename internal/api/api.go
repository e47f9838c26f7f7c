// Package api exposes the content, play session, result and leaderboard services over HTTP and
// forwards session and leaderboard changes to Redis pub/sub.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/leaderboard"
	"github.com/victornm/quizplay/internal/result"
	"github.com/victornm/quizplay/internal/session"
)

// HeaderUsername identifies the caller of session and content endpoints.
const HeaderUsername = "X-Username"

type Config struct {
	EventBus *event.Bus
	Content  *content.Service
	Session  *session.Service
	Result   *result.Service
	// Leaderboard is optional; leaderboard routes are not registered without it.
	Leaderboard *leaderboard.Service
	// Redis is optional; notifications are not published without it.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	redis.Scripter
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	cs *content.Service
	ss *session.Service
	rs *result.Service
	ls *leaderboard.Service

	redis    Redis
	prefix   string
	upgrader websocket.Upgrader
}

func New(c Config) *API {
	a := &API{
		cs:     c.Content,
		ss:     c.Session,
		rs:     c.Result,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	// Register event handlers
	if a.redis != nil {
		event.On(c.EventBus, domain.EventNameLeaderboardUpdated, a.PublishLeaderboardUpdated)
		event.On(c.EventBus, domain.EventNameSessionChanged, a.PublishSessionChanged)
	}

	return a
}

// Register mounts the HTTP routes under /v1.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.GET("/quizzes", a.ListQuizzes)
	v1.GET("/quizzes/:id", a.GetQuiz)
	v1.POST("/quizzes", a.AddQuiz)
	v1.DELETE("/quizzes/:id", a.DeleteQuiz)

	v1.GET("/puzzles", a.ListPuzzles)
	v1.GET("/puzzles/:id", a.GetPuzzle)
	v1.POST("/puzzles", a.AddPuzzle)
	v1.DELETE("/puzzles/:id", a.DeletePuzzle)

	v1.POST("/quiz-sessions", a.StartQuiz)
	v1.GET("/quiz-sessions/:id", a.GetQuizSession)
	v1.POST("/quiz-sessions/:id/answer", a.SelectAnswer)
	v1.POST("/quiz-sessions/:id/next", a.NextQuestion)
	v1.DELETE("/quiz-sessions/:id", a.AbandonQuiz)

	v1.POST("/puzzle-sessions", a.StartPuzzle)
	v1.GET("/puzzle-sessions/:id", a.GetPuzzleSession)
	v1.PUT("/puzzle-sessions/:id/answer", a.UpdatePuzzleAnswer)
	v1.POST("/puzzle-sessions/:id/answer", a.SubmitPuzzleAnswer)
	v1.POST("/puzzle-sessions/:id/hint", a.RequestHint)
	v1.DELETE("/puzzle-sessions/:id", a.AbandonPuzzle)

	v1.GET("/sessions/:id/stream", a.StreamSession)

	v1.DELETE("/users/:username", a.DeleteUserData)

	users := v1.Group("/users/:username")
	users.GET("/recommendations", a.RecommendPuzzles)
	users.GET("/results/quizzes", a.ListQuizResults)
	users.GET("/results/quizzes/:id/best", a.BestQuizResult)
	users.GET("/results/puzzles", a.ListPuzzleResults)
	users.GET("/results/puzzles/:id/best", a.BestPuzzleResult)
	users.GET("/stats", a.Stats)

	if a.ls != nil {
		v1.GET("/leaderboards/:kind/:id", a.GetLeaderboard)
		v1.GET("/leaderboards/:kind/:id/users/:username", a.GetRank)
	}
}

// writeError renders err with the HTTP status of its code. Unknown errors are reported as internal.
func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		_ = c.Error(err)
		slog.ErrorContext(c.Request.Context(), "api: request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}

// bind decodes a JSON body, reporting malformed input as InvalidInput.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, errors.InvalidInput("%v", err))
		return false
	}
	return true
}

// caller returns the username from the X-Username header, falling back to the username query
// parameter for clients that cannot set headers, e.g. browser websockets.
func caller(c *gin.Context) (string, bool) {
	u := c.GetHeader(HeaderUsername)
	if u == "" {
		u = c.Query("username")
	}
	if u == "" {
		writeError(c, errors.InvalidInput("%s header is required", HeaderUsername))
		return "", false
	}
	return u, true
}
