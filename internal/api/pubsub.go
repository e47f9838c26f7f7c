package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizplay/internal/domain"
)

const (
	maxConcurrent = 100

	// sessionVersionTTL outlives any session, including its retention after completion.
	sessionVersionTTL = 6 * time.Hour
)

// publishIfNewer publishes ARGV[2] on channel ARGV[3] only when version ARGV[1] is greater than
// the last version recorded in KEYS[1]. It returns the number of receivers, or -1 when the
// message was stale.
var publishIfNewer = redis.NewScript(`
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
if tonumber(ARGV[1]) <= last then
	return -1
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[4])
return redis.call('PUBLISH', ARGV[3], ARGV[2])
`)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		Board   string             `json:"board"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Username string `json:"username"`
		Score    string `json:"score"`
	}
)

func newLeaderboard(l domain.Leaderboard) Leaderboard {
	data := Leaderboard{
		Board:   l.Board,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			Username: entry.Username,
			Score:    strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
	}

	return data
}

// PublishLeaderboardUpdated notifies every user on the board.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := newLeaderboard(e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.Username, e.Name(), data)
		})
	}

	return eg.Wait()
}

// PublishSessionChanged notifies the owner of a session about a state transition. A snapshot
// older than one already published for the session is dropped.
func (a *API) PublishSessionChanged(ctx context.Context, e domain.EventSessionChanged) error {
	b, err := marshalNotification(e.Name(), e.Snapshot)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:session:%s:version", a.prefix, e.SessionID)
	err = publishIfNewer.Run(ctx, a.redis, []string{key},
		e.Version, b, a.userChannel(e.Username), int(sessionVersionTTL.Seconds()),
	).Err()
	if err != nil {
		return fmt.Errorf("pubsub: publish session %s: %w", e.SessionID, err)
	}

	return nil
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	b, err := marshalNotification(event, data)
	if err != nil {
		return err
	}

	return a.redis.Publish(ctx, a.userChannel(user), b).Err()
}

func (a *API) userChannel(user string) string {
	return fmt.Sprintf("%s:user:%s", a.prefix, user)
}

func marshalNotification(event string, data any) ([]byte, error) {
	b, err := json.Marshal(Notification{
		Event: event,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return b, nil
}
