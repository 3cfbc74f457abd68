package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/auth"
	"prepmaster-service/internal/config"
	"prepmaster-service/internal/events"
	"prepmaster-service/internal/infra/memory"
	"prepmaster-service/internal/infra/opentdb"
	"prepmaster-service/internal/infra/postgres"
	rediscache "prepmaster-service/internal/infra/redis"
	"prepmaster-service/internal/logging"
	"prepmaster-service/internal/metrics"
	"prepmaster-service/internal/scoring"
	transport "prepmaster-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores bundles the persistence implementations chosen by config.
type stores struct {
	questions app.QuestionStore
	tests     app.TestStore
	results   app.ResultStore
	users     app.UserStore
	loader    app.TestLoader
	ready     func(r *http.Request) error
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth.secret (or JWT_SECRET) must be set")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	st, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)

	var resolved app.TestRepository
	var feeds app.FeedRepository
	var sharedFeeds *rediscache.FeedStore
	if redisClient != nil {
		resolved = rediscache.NewTestRepository(redisClient, st.loader, cacheTTL)
		sharedFeeds = rediscache.NewFeedStore(redisClient, redisTTL, log)
		feeds = sharedFeeds
	} else {
		resolved = memory.NewTestRepository(st.loader, cacheTTL)
		feeds = memory.NewFeedStore()
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		publisher = amqpPub
	}
	defer publisher.Close()

	var provider app.QuestionProvider
	if url := os.Getenv("OPENTDB_API_URL"); url != "" {
		cfg.OpenTDB.URL = url
	}
	if cfg.OpenTDB.URL != "" {
		provider = opentdb.NewClient(cfg.OpenTDB.URL, config.TTLDuration(cfg.OpenTDB.Timeout, 10*time.Second))
	}

	m := metrics.New()
	tokens := auth.NewService(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	service := app.NewService(app.Deps{
		Questions:   st.questions,
		Tests:       st.tests,
		Results:     st.results,
		Users:       st.users,
		Resolved:    resolved,
		Feeds:       feeds,
		Provider:    provider,
		Tokens:      tokens,
		Engine:      scoring.NewEngine(cfg.Scoring),
		Publisher:   publisher,
		Metrics:     m,
		Logger:      log,
		MinDuration: cfg.Exam.MinDuration,
		MaxDuration: cfg.Exam.MaxDuration,
	})

	ready := st.ready
	if redisClient != nil {
		ready = func(r *http.Request) error {
			if err := st.ready(r); err != nil {
				return err
			}
			return redisClient.Ping(r.Context()).Err()
		}
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterDeps{
			Service:        service,
			Tokens:         tokens,
			Metrics:        m,
			Logger:         log,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Ready:          ready,
		}),
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting prepmaster service", zap.String("addr", server.Addr),
			zap.Float64("strength_threshold", cfg.Scoring.Strength),
			zap.Float64("weakness_threshold", cfg.Scoring.Weakness))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sharedFeeds != nil {
		g.Go(func() error {
			if err := sharedFeeds.Run(gctx); err != nil {
				log.Warn("feed fan-out stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores connects to Postgres when configured and falls back to process memory.
func openStores(ctx context.Context, cfg config.Config) (stores, func(), error) {
	if cfg.Postgres.URL == "" {
		mem := memory.NewStore()
		return stores{
			questions: mem,
			tests:     mem,
			results:   mem,
			users:     mem,
			loader:    app.NewStoreTestLoader(mem, mem),
			ready:     func(*http.Request) error { return nil },
		}, func() {}, nil
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return stores{}, nil, err
	}
	pg := postgres.NewStore(pool)
	return stores{
		questions: pg,
		tests:     pg,
		results:   pg,
		users:     pg,
		loader:    postgres.NewTestLoader(pool),
		ready: func(r *http.Request) error {
			return pg.Ping(r.Context(), 2*time.Second)
		},
	}, pool.Close, nil
}
