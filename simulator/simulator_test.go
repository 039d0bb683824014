package simulator_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"devoverflow/internal/ai"
	"devoverflow/internal/audit"
	"devoverflow/internal/auth"
	"devoverflow/internal/config"
	"devoverflow/internal/content"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/engine"
	"devoverflow/internal/handlers"
	"devoverflow/internal/middleware"
	"devoverflow/internal/tags"
	"devoverflow/internal/utils"
	"devoverflow/internal/votes"
	"devoverflow/simulator"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func startEngine(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	retry := utils.DefaultRetryPolicy()
	jwt := middleware.NewJWTManager(&config.AuthConfig{JWTSecret: "sim-secret", TokenTTL: time.Hour})

	e := engine.NewEngine(actor.NewActorSystem(), engine.Services{
		Content: content.NewService(store, tags.NewReconciler(store, tags.NewLedger(logger), logger), nil, retry, logger),
		Votes:   votes.NewLedger(store, retry, logger),
		Auth:    auth.NewService(store, jwt, retry, logger),
		Drafter: ai.NewDrafter(nil, config.DefaultAIConfig(), logger),
	}, nil, logger, engine.Options{PoolSize: 4, OpTimeout: 5 * time.Second, RequestTimeout: 5 * time.Second})
	t.Cleanup(e.Shutdown)

	srv := httptest.NewServer(handlers.NewServer(e, jwt, nil, middleware.DefaultCORSConfig(nil), "", logger).Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestSimulationLeavesCountersConsistent(t *testing.T) {
	defer auth.SetPasswordCost(bcrypt.MinCost)()
	srv, store := startEngine(t)

	cfg := simulator.DefaultConfig()
	cfg.EngineURL = srv.URL
	cfg.NumUsers = 4
	cfg.Workers = 4
	cfg.RequestsPerSecond = 0
	cfg.TickInterval = 50 * time.Millisecond
	// At these rates every user acts on every tick.
	cfg.AskFrequency = 1200
	cfg.AnswerFrequency = 1200
	cfg.VoteFrequency = 1200
	cfg.SaveFrequency = 1200
	cfg.EditFrequency = 1200
	cfg.BrowseFrequency = 1200

	sim := simulator.NewSimulator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sim.Run(ctx))

	m := sim.GetMetrics()
	assert.Equal(t, 4, m.TotalUsers)
	assert.Positive(t, m.TotalQuestions)
	assert.Positive(t, m.TotalVotes)

	report, err := audit.Check(context.Background(), store.Snapshot())
	require.NoError(t, err)
	assert.True(t, report.OK(), "drift: %v", report.Drift)
	// A request cut off by the deadline may still have committed.
	assert.GreaterOrEqual(t, report.Questions, m.TotalQuestions)
}

func TestSimulationFailsWithoutEngine(t *testing.T) {
	cfg := simulator.DefaultConfig()
	cfg.EngineURL = "http://127.0.0.1:1"
	cfg.NumUsers = 2

	sim := simulator.NewSimulator(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	assert.Error(t, sim.Run(ctx))
}

func TestClientSurfacesErrorKind(t *testing.T) {
	srv, _ := startEngine(t)
	client := simulator.NewClient(srv.URL, 0, nil)

	err := client.Do(context.Background(), "POST", "/questions", "", map[string]any{"title": "anonymous"}, nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrUnauthorized, utils.AsAppError(err).Code)
}
