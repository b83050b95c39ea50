package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"hanzi-quiz-service/internal/app"
	"hanzi-quiz-service/internal/auth"
	"hanzi-quiz-service/internal/config"
	"hanzi-quiz-service/internal/i18n"
	"hanzi-quiz-service/internal/infra/memory"
	pgloader "hanzi-quiz-service/internal/infra/postgres"
	redisstore "hanzi-quiz-service/internal/infra/redis"
	"hanzi-quiz-service/internal/metrics"
	transport "hanzi-quiz-service/internal/transport/http"
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

// backends holds the storage adapters chosen from config.
type backends struct {
	catalogs app.CatalogRepository
	sessions app.SessionRepository
	prefs    i18n.PreferenceStore
	close    func()
}

func openBackends(ctx context.Context, cfg config.Config) (backends, error) {
	b := backends{close: func() {}}

	var pool *pgxpool.Pool
	var loader memory.CatalogLoader
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, false); err != nil {
			return b, err
		}
		p, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return b, err
		}
		pool = p
		loader = pgloader.NewCatalogLoader(pool)
	} else {
		embedded, err := memory.NewEmbeddedCatalogLoader()
		if err != nil {
			return b, err
		}
		loader = embedded
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		b.catalogs = memory.NewCatalogRepository(loader, catalogTTL)
		b.sessions = memory.NewSessionStore()
		b.prefs = memory.NewPreferenceStore()
	} else {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
		b.catalogs = redisstore.NewCatalogRepository(client, loader, catalogTTL)
		b.sessions = redisstore.NewSessionStore(client, sessionTTL)
		b.prefs = redisstore.NewPreferenceStore(client)
		b.close = func() {
			if err := client.Close(); err != nil {
				log.Printf("close redis: %v", err)
			}
		}
	}

	if pool != nil {
		closeRedis := b.close
		b.close = func() {
			closeRedis()
			pool.Close()
		}
	}
	return b, nil
}

func newService(cfg config.Config, b backends, observers ...app.Observer) (*app.QuizService, error) {
	exercises, err := cfg.Exercises()
	if err != nil {
		return nil, err
	}
	return app.NewQuizService(b.sessions, b.catalogs,
		app.WithExercises(exercises),
		app.WithCatalogName(cfg.Catalog.Name),
		app.WithScoring(cfg.Scoring()),
		app.WithObserver(observers...),
	), nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	translator, err := i18n.Load()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	stats := app.NewStatsAggregator()
	service, err := newService(cfg, b, collector, stats)
	if err != nil {
		return err
	}
	defer service.Shutdown()

	tokens := auth.NewTokenIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	api := transport.NewAPI(transport.APIDeps{
		Service:    service,
		Gate:       auth.NewGate(cfg.Auth.Users),
		Tokens:     tokens,
		Verifier:   tokens,
		Prefs:      i18n.NewPreferences(b.prefs),
		Translator: translator,
		Stats:      stats,
		Logins:     collector,
	})
	wsHandler := transport.NewWSHandler(service, tokens)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(api, wsHandler, collector.Handler()),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket streams outlive any fixed deadline.
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
