package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"iqplay/internal/app"
	"iqplay/internal/config"
	"iqplay/internal/identity"
	"iqplay/internal/infra/memory"
	"iqplay/internal/infra/postgres"
	infraredis "iqplay/internal/infra/redis"
	"iqplay/internal/logging"
	"iqplay/internal/telemetry"
	transport "iqplay/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type backends struct {
	sessions  app.SessionRepository
	catalogue app.CatalogueRepository
	store     app.DocumentStore
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.App.Name, cfg.App.Env)
	ctx = logging.IntoContext(ctx, logger)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	var verifier *identity.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Warn().Msg("auth.jwtSecret not set, every request is anonymous")
	}

	metrics := telemetry.NewMetrics()
	service := app.NewQuizService(b.sessions, b.catalogue, b.store, identity.ContextIdentity{}, app.Options{
		BlockSize:   cfg.Quiz.BlockSize,
		TurnSeconds: cfg.Quiz.TurnSeconds,
		ReadyDelay:  config.TTLDuration(cfg.Quiz.ReadyDelay, 0),
		Logger:      logger,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service:  service,
			Verifier: verifier,
			Metrics:  metrics.Handler(),
			Logger:   logger,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openBackends picks Postgres for durable documents and the catalogue when
// configured, Redis for caching and liveness when configured, and in-process
// implementations otherwise.
func openBackends(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var loader memory.CatalogueLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		loader = postgres.NewCatalogueLoader(pool)
		b.store = postgres.NewDocumentStore(pool)
	} else {
		if cfg.Catalogue.Path == "" {
			b.close()
			return nil, fmt.Errorf("either postgres.url or catalogue.path must be configured")
		}
		static, err := memory.LoadCatalogueFile(cfg.Catalogue.Path)
		if err != nil {
			b.close()
			return nil, err
		}
		loader = static
	}

	if b.store == nil {
		if redisClient != nil {
			b.store = infraredis.NewDocumentStore(redisClient)
		} else {
			logger.Warn().Msg("no durable store configured, documents are kept in memory")
			b.store = memory.NewDocumentStore()
		}
	}

	catalogueTTL := config.TTLDuration(cfg.Catalogue.TTL, 10*time.Minute)
	if redisClient != nil {
		b.catalogue = infraredis.NewCatalogueRepository(redisClient, loader, catalogueTTL)
		b.sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		b.catalogue = memory.NewCatalogueRepository(loader, catalogueTTL)
		b.sessions = memory.NewSessionStore()
	}
	return b, nil
}

