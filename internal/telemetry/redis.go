package telemetry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var redisCommands = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quizplay_redis_commands_total",
		Help: "Total number of Redis commands by client and status",
	},
	[]string{"client", "status"}, // client: leaderboard / pubsub
)

// MonitorRedis instruments a client with otel tracing and metrics and logs its commands under
// the given client name.
func MonitorRedis(r redis.UniversalClient, client string) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisHook{client: client})
	return nil
}

type redisHook struct {
	client string
}

func (h redisHook) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			slog.WarnContext(ctx, "redis: dial failed", "client", h.client, "addr", addr, "error", err)
			return nil, err
		}

		slog.InfoContext(ctx, "redis: connected", "client", h.client, "network", network, "addr", addr)
		return conn, nil
	}
}

func (h redisHook) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := hook(ctx, cmd)
		h.observe(ctx, err, "cmd", cmd.Name())
		return err
	}
}

func (h redisHook) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := hook(ctx, cmds)
		h.observe(ctx, err, "pipeline", len(cmds))
		return err
	}
}

// observe counts a finished command. redis.Nil is a miss, not a failure.
func (h redisHook) observe(ctx context.Context, err error, attrs ...any) {
	if err != nil && !stderrors.Is(err, redis.Nil) {
		redisCommands.WithLabelValues(h.client, "failure").Inc()
		slog.WarnContext(ctx, "redis: command failed", append(attrs, "client", h.client, "error", err)...)
		return
	}

	redisCommands.WithLabelValues(h.client, "success").Inc()
	slog.DebugContext(ctx, "redis: command processed", append(attrs, "client", h.client)...)
}
