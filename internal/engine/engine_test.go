package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"devoverflow/internal/ai"
	"devoverflow/internal/auth"
	"devoverflow/internal/config"
	"devoverflow/internal/content"
	"devoverflow/internal/database"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/middleware"
	"devoverflow/internal/models"
	"devoverflow/internal/tags"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"
	"devoverflow/internal/votes"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newEngine(t *testing.T, poolSize int) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return newEngineOn(t, store, Options{
		PoolSize:       poolSize,
		OpTimeout:      5 * time.Second,
		RequestTimeout: 5 * time.Second,
		DraftTimeout:   time.Second,
	}), store
}

func newEngineOn(t *testing.T, store database.Store, opts Options) *Engine {
	t.Helper()
	retry := utils.RetryPolicy{MaxTries: 1}
	svc := content.NewService(store, tags.NewReconciler(store, tags.NewLedger(nil), nil), nil, retry, nil)
	jwt := middleware.NewJWTManager(&config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})

	e := NewEngine(actor.NewActorSystem(), Services{
		Content: svc,
		Votes:   votes.NewLedger(store, retry, nil),
		Auth:    auth.NewService(store, jwt, retry, nil),
		Drafter: ai.NewDrafter(nil, config.DefaultAIConfig(), nil),
	}, utils.NewMetricsCollector(), nil, opts)
	t.Cleanup(e.Shutdown)
	return e
}

func TestMain(m *testing.M) {
	defer auth.SetPasswordCost(bcrypt.MinCost)()
	m.Run()
}

func TestRoundRobin(t *testing.T) {
	e, _ := newEngine(t, 3)

	first := e.PID(VotePool)
	second := e.PID(VotePool)
	third := e.PID(VotePool)
	assert.NotEqual(t, first.Id, second.Id)
	assert.NotEqual(t, second.Id, third.Id)
	assert.Equal(t, first.Id, e.PID(VotePool).Id)
}

func TestRequest_TypedResults(t *testing.T) {
	e, _ := newEngine(t, 2)

	user, err := Request[*models.User](e, UserPool, &actors.RegisterUserMsg{Input: validation.Registration{
		Credentials: validation.Credentials{Email: "ada@example.com", Password: "hunter22"},
		Name:        "Ada",
		Username:    "ada",
	}})
	require.NoError(t, err)

	q, err := Request[*models.QuestionView](e, QuestionPool, &actors.CreateQuestionMsg{Input: content.CreateQuestionInput{
		AuthorID: user.ID,
		Title:    "Is this engine fair?",
		Content:  strings.Repeat("Requests should spread over every actor in the pool. ", 3),
		Tags:     []string{"actors"},
	}})
	require.NoError(t, err)

	stats, err := Request[*content.Stats](e, QuestionPool, &actors.GetCountsMsg{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Questions)

	_, err = Request[*models.Tag](e, TagPool, &actors.GetTagMsg{TagID: q.TagList[0].ID})
	require.NoError(t, err)
}

func TestRequest_Errors(t *testing.T) {
	e, _ := newEngine(t, 1)

	_, err := Request[*models.QuestionView](e, QuestionPool, &actors.GetQuestionMsg{QuestionID: uuid.New()})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	_, err = Request[*models.Tag](e, QuestionPool, &actors.GetCountsMsg{})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInternal))

	_, err = Request[*actors.Draft](e, DraftPool, &actors.GenerateDraftMsg{QuestionID: uuid.New()})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestRequest_DraftingUnavailable(t *testing.T) {
	e, store := newEngine(t, 1)
	author := &models.User{ID: uuid.New(), Name: "Ada", Username: "ada", Email: "ada@example.com"}
	require.NoError(t, store.Snapshot().Users().Insert(context.Background(), author))

	q, err := Request[*models.QuestionView](e, QuestionPool, &actors.CreateQuestionMsg{Input: content.CreateQuestionInput{
		AuthorID: author.ID,
		Title:    "Can the drafter help?",
		Content:  strings.Repeat("No completion service is configured in this test. ", 3),
		Tags:     []string{"ai"},
	}})
	require.NoError(t, err)

	_, err = Request[*actors.Draft](e, DraftPool, &actors.GenerateDraftMsg{QuestionID: q.ID})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
}

func TestConcurrentVotesThroughPool(t *testing.T) {
	e, store := newEngine(t, 4)
	author := &models.User{ID: uuid.New(), Name: "Ada", Username: "ada", Email: "ada@example.com"}
	require.NoError(t, store.Snapshot().Users().Insert(context.Background(), author))
	q, err := Request[*models.QuestionView](e, QuestionPool, &actors.CreateQuestionMsg{Input: content.CreateQuestionInput{
		AuthorID: author.ID,
		Title:    "Vote on me concurrently",
		Content:  strings.Repeat("Every voter goes through a different actor. ", 3),
		Tags:     []string{"votes"},
	}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Request[*votes.Outcome](e, VotePool, &actors.CastVoteMsg{Input: votes.CastVoteInput{
				TargetID:   q.ID,
				TargetType: models.QuestionTarget,
				VoteType:   models.Upvote,
				UserID:     uuid.New(),
			}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.Snapshot().Questions().Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, stored.Upvotes)
}

// slowStore stalls every transaction and snapshot before handing it to the
// memory store.
type slowStore struct {
	*memstore.Store
	delay atomic.Int64
}

func (s *slowStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, u database.Unit) error) error {
	time.Sleep(time.Duration(s.delay.Load()))
	return s.Store.WithTransaction(ctx, fn)
}

func (s *slowStore) Snapshot() database.Unit {
	time.Sleep(time.Duration(s.delay.Load()))
	return s.Store.Snapshot()
}

func TestTimedOutWriteNeverCommits(t *testing.T) {
	store := &slowStore{Store: memstore.New()}
	e := newEngineOn(t, store, Options{
		PoolSize:       1,
		OpTimeout:      5 * time.Second,
		RequestTimeout: 100 * time.Millisecond,
	})

	author := &models.User{ID: uuid.New(), Name: "Ada", Username: "ada", Email: "ada@example.com"}
	require.NoError(t, store.Store.Snapshot().Users().Insert(context.Background(), author))
	q, err := Request[*models.QuestionView](e, QuestionPool, &actors.CreateQuestionMsg{Input: content.CreateQuestionInput{
		AuthorID: author.ID,
		Title:    "Does a slow vote still land?",
		Content:  strings.Repeat("The store stalls longer than the caller waits. ", 3),
		Tags:     []string{"timeouts"},
	}})
	require.NoError(t, err)

	store.delay.Store(int64(300 * time.Millisecond))
	_, err = Request[*votes.Outcome](e, VotePool, &actors.CastVoteMsg{Input: votes.CastVoteInput{
		TargetID:   q.ID,
		TargetType: models.QuestionTarget,
		VoteType:   models.Upvote,
		UserID:     uuid.New(),
	}})
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
	assert.False(t, utils.IsRetryable(err), "a write with an unknown outcome must not be retried blindly")
	assert.Equal(t, "unknown", utils.AsAppError(err).Details["outcome"])

	// Give the stalled transaction time to finish.
	time.Sleep(500 * time.Millisecond)

	stored, err := store.Store.Snapshot().Questions().Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Upvotes)
	all, err := store.Store.Snapshot().Votes().All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTimedOutReadStaysRetryable(t *testing.T) {
	store := &slowStore{Store: memstore.New()}
	store.delay.Store(int64(300 * time.Millisecond))
	e := newEngineOn(t, store, Options{PoolSize: 1, RequestTimeout: 100 * time.Millisecond})

	_, err := Request[*votes.Status](e, VotePool, &actors.HasVotedMsg{
		TargetID:   uuid.New(),
		TargetType: models.QuestionTarget,
		UserID:     uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, utils.IsRetryable(err))
}
