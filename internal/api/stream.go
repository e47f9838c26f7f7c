package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/quizplay/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamMessage is one frame of the session stream.
type StreamMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	StreamSnapshot = "snapshot"
	StreamClosed   = "closed"
)

// StreamSession upgrades to a websocket and pushes every snapshot of the session, including
// per-second timer ticks. Snapshots are conflated for slow readers; the latest one always arrives.
// Messages sent by the client are ignored.
func (a *API) StreamSession(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	updates, cancel, err := a.ss.Subscribe(ctx, session.SubscribeRequest{
		SessionID: c.Param("id"),
		Username:  username,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	defer func() {
		cancel()
		for range updates {
		}
	}()

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "api: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(msg StreamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = write(StreamMessage{Type: StreamClosed})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session released"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(StreamMessage{Type: StreamSnapshot, Payload: snap}); err != nil {
				slog.DebugContext(ctx, "api: websocket write failed", "error", err)
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-readerDone:
			return
		}
	}
}
