// Package leaderboard keeps the best score of every user per quiz and per puzzle in Redis sorted sets.
package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/score"
)

const (
	publishInterval = 200 * time.Millisecond
	defaultLimit    = 100
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

// NewService subscribes the boards to completion events. Unsolved puzzles are not ranked.
func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	event.On(s.eb, domain.EventNameQuizCompleted, func(ctx context.Context, e domain.EventQuizCompleted) error {
		r := e.Result
		return s.RecordScore(ctx, domain.Score{
			Board:      domain.QuizBoard(r.QuizID),
			Username:   r.Username,
			Score:      r.Score,
			UpdateTime: r.CompletedAt,
		})
	})
	event.On(s.eb, domain.EventNamePuzzleCompleted, func(ctx context.Context, e domain.EventPuzzleCompleted) error {
		r := e.Result
		if !r.Solved {
			return nil
		}
		return s.RecordScore(ctx, domain.Score{
			Board:      domain.PuzzleBoard(r.PuzzleID),
			Username:   r.Username,
			Score:      score.PuzzleResult(r),
			UpdateTime: r.CompletedAt,
		})
	})

	return s
}

type GetLeaderboardRequest struct {
	Board string
	// Limit caps the number of entries, 0 means the default of 100.
	Limit int
}

// GetLeaderboard returns the best scores on a board, highest first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.Board), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: board=%s", req.Board))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Username: z.Member.(string),
			Score:    z.Score,
		})
	}

	return &domain.Leaderboard{
		Board:   req.Board,
		Entries: entries,
	}, nil
}

type GetRankRequest struct {
	Board    string
	Username string
}

type GetRankResponse struct {
	// Rank is 1-based.
	Rank  int64
	Score float64
}

func (s *Service) GetRank(ctx context.Context, req GetRankRequest) (*GetRankResponse, error) {
	key := s.getLeaderboardKey(req.Board)

	rank, err := s.redis.ZRevRank(ctx, key, req.Username).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFound("%s has no score on %s", req.Username, req.Board)
	}
	if err != nil {
		return nil, fmt.Errorf("get rank: %w", err)
	}

	sc, err := s.redis.ZScore(ctx, key, req.Username).Result()
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}

	return &GetRankResponse{Rank: rank + 1, Score: sc}, nil
}

// RecordScore keeps the user's best score on the board. A lower score leaves the board unchanged.
func (s *Service) RecordScore(ctx context.Context, sc domain.Score) error {
	if err := s.redis.ZAddGT(ctx, s.getLeaderboardKey(sc.Board), redis.Z{
		Score:  float64(sc.Score),
		Member: sc.Username,
	}).Err(); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	slog.DebugContext(ctx, "leaderboard: score recorded", "board", sc.Board, "username", sc.Username, "score", sc.Score)
	return s.schedulePublishLeaderboard(ctx, sc)
}

// schedulePublishLeaderboard publishes at most one update per board per interval. The SetNX
// marker is shared, so only one instance publishes when several run against the same Redis.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, sc domain.Score) error {
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(sc.Board), sc.UpdateTime.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, sc)
}

func (s *Service) publishLeaderboard(ctx context.Context, sc domain.Score) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{Board: sc.Board})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: board=%s: %w", sc.Board, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(board string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, board)
}

func (s *Service) getLeaderboardTimeKey(board string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, board)
}
