package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/quizplay/internal/api"
	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/leaderboard"
	"github.com/victornm/quizplay/internal/result"
	"github.com/victornm/quizplay/internal/result/migrations"
	"github.com/victornm/quizplay/internal/session"
	"github.com/victornm/quizplay/internal/telemetry"
	"github.com/victornm/quizplay/internal/timer"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level string
	}

	Event struct {
		PoolSize int
		Timeout  time.Duration
	}

	Content struct {
		// Catalog is a YAML catalog file; empty loads the built-in catalog.
		Catalog string
	}

	Session struct {
		RetainCompleted time.Duration
	}

	// Redis is optional. Without leaderboard addresses the leaderboard is disabled; without
	// pubsub addresses no notifications are published.
	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	// Postgres is optional. Without an address results are kept in memory.
	Postgres struct {
		Result PostgresConfig
	}
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
	// Migrate applies pending migrations on start.
	Migrate bool
}

func (c PostgresConfig) DSN() string {
	if c.Addr == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name)
}

// DefaultConfig is used for every key the config file and environment leave unset.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Event.PoolSize = 100
	c.Event.Timeout = 10 * time.Second
	c.Session.RetainCompleted = 10 * time.Minute
	c.Redis.Leaderboard.Prefix = "local:leaderboard"
	c.Redis.Pubsub.Prefix = "local:pubsub"
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			result *pgxpool.Pool
		}
	}

	service struct {
		content     *content.Service
		session     *session.Service
		result      *result.Service
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(ctx context.Context, c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus(
		event.WithPoolSize(c.Event.PoolSize),
		event.WithTimeout(c.Event.Timeout),
	)

	if err := s.initInfra(ctx); err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra(ctx context.Context) error {
	if err := s.initRedis(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis(ctx context.Context) error {
	connect := func(name string, addrs []string, pass string) (redis.UniversalClient, error) {
		if len(addrs) == 0 {
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r, name); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect("leaderboard", s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect("pubsub", s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres(ctx context.Context) error {
	pc := s.c.Postgres.Result
	if pc.Addr == "" {
		slog.InfoContext(ctx, "server: postgres not configured, results are kept in memory")
		return nil
	}

	if pc.Migrate {
		if err := migrations.Up(ctx, pc.DSN()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(pc.DSN())
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres.result = db
	return nil
}

func (s *Server) initService() error {
	catalog, err := content.LoadCatalog(s.c.Content.Catalog)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}

	var store result.Store = result.NewMemoryStore()
	if s.infra.postgres.result != nil {
		store = result.NewPostgresStore(s.infra.postgres.result)
	}

	s.service.result = result.NewService(result.Config{
		EventBus: s.eb,
		Store:    store,
	})

	s.service.content = content.NewService(content.Config{
		Catalog: catalog,
		History: s.service.result,
	})

	s.service.session = session.NewService(session.Config{
		Content:         s.service.content,
		EventBus:        s.eb,
		NewTickerFunc:   timer.NewTicker,
		RetainCompleted: s.c.Session.RetainCompleted,
	})

	if s.infra.redis.leaderboard != nil {
		s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
			EventBus: s.eb,
			Redis:    s.infra.redis.leaderboard,
			Prefix:   s.c.Redis.Leaderboard.Prefix,
		})
	}

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.GinLogger())
	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	c := api.Config{
		EventBus:     s.eb,
		Content:      s.service.content,
		Session:      s.service.session,
		Result:       s.service.result,
		Leaderboard:  s.service.leaderboard,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	if s.infra.redis.pubsub != nil {
		c.Redis = s.infra.redis.pubsub
	}
	api.New(c).Register(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Start serves HTTP and gRPC until Shutdown is called or either server fails.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		return fmt.Errorf("grpc server: listen: %w", err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.session.Stop()
	s.eb.Stop()
	s.closeInfra()

	slog.InfoContext(ctx, "server: shutdown completed")
}

func (s *Server) closeInfra() {
	if r := s.infra.redis.leaderboard; r != nil {
		_ = r.Close()
	}
	if r := s.infra.redis.pubsub; r != nil {
		_ = r.Close()
	}
	if db := s.infra.postgres.result; db != nil {
		db.Close()
	}
}
