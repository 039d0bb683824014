package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devoverflow/internal/ai"
	"devoverflow/internal/auth"
	"devoverflow/internal/cache"
	"devoverflow/internal/config"
	"devoverflow/internal/content"
	"devoverflow/internal/database"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/engine"
	"devoverflow/internal/handlers"
	"devoverflow/internal/middleware"
	"devoverflow/internal/tags"
	"devoverflow/internal/utils"
	"devoverflow/internal/votes"

	"github.com/asynkron/protoactor-go/actor"
)

// app holds everything main wires together.
type app struct {
	handler http.Handler
	engine  *engine.Engine
	store   database.Store
	cache   *cache.Cache
	logger  *slog.Logger
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(os.Stdout, cfg.LogFormat, cfg.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", utils.ErrAttr(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Drafts may take the whole AI timeout.
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "db", cfg.Database.Type)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (database.Store, error) {
	if cfg.Type == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}

	mongodb, err := database.NewMongoDB(ctx, cfg.URI, cfg.Name, logger)
	if err != nil {
		return nil, err
	}
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mongodb.EnsureIndexes(indexCtx); err != nil {
		_ = mongodb.Close(context.Background())
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return mongodb, nil
}

func newDrafter(cfg *config.AIConfig, logger *slog.Logger) *ai.Drafter {
	var completer ai.Completer
	if cfg.APIKey != "" {
		client, err := ai.NewOpenAIClient(cfg)
		if err != nil {
			logger.Warn("answer drafting disabled", utils.ErrAttr(err))
		} else {
			completer = client
		}
	} else {
		logger.Info("OPENAI_API_KEY not set, answer drafting disabled")
	}
	return ai.NewDrafter(completer, cfg, logger)
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	metrics := utils.NewMetricsCollector()
	reads := cfg.Retry.Policy(cfg.Database.Timeout)
	c := cache.Connect(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
	jwt := middleware.NewJWTManager(cfg.Auth)

	reconciler := tags.NewReconciler(store, tags.NewLedger(logger), logger)
	services := engine.Services{
		Content: content.NewService(store, reconciler, c, reads, logger),
		Votes:   votes.NewLedger(store, reads, logger),
		Auth:    auth.NewService(store, jwt, reads, logger),
		Drafter: newDrafter(cfg.AI, logger),
	}

	e := engine.NewEngine(actor.NewActorSystem(), services, metrics, logger, engine.Options{
		PoolSize:       cfg.Server.PoolSize,
		OpTimeout:      cfg.Database.Timeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		DraftTimeout:   cfg.AI.Timeout,
	})

	cors := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	if !cfg.Server.MetricsEnabled {
		metrics = nil
	}
	server := handlers.NewServer(e, jwt, metrics, cors, cfg.Auth.OAuthLinkSecret, logger)

	return &app{
		handler: server.Routes(),
		engine:  e,
		store:   store,
		cache:   c,
		logger:  logger,
	}, nil
}

func (a *app) close() {
	a.engine.Shutdown()
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", utils.ErrAttr(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("failed to close store", utils.ErrAttr(err))
	}
}
