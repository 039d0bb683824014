package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuestion(title string, created time.Time) *models.Question {
	return &models.Question{
		ID:        uuid.New(),
		Title:     title,
		Content:   "content for " + title,
		AuthorID:  uuid.New(),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestUpsertIncrementFoldsCase(t *testing.T) {
	ctx := context.Background()
	s := New()
	tags := s.Snapshot().Tags()

	first, err := tags.UpsertIncrement(ctx, "GoLang")
	require.NoError(t, err)
	second, err := tags.UpsertIncrement(ctx, "golang")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "GoLang", second.Name)
	assert.Equal(t, 2, second.UsageCount)

	all, err := tags.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		if _, err := u.Tags().UpsertIncrement(ctx, "react"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := s.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTransactionIsolatedUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		if _, err := u.Tags().UpsertIncrement(ctx, "rust"); err != nil {
			return err
		}
		outside, err := s.Snapshot().Tags().All(ctx)
		require.NoError(t, err)
		assert.Empty(t, outside)
		return nil
	})
	require.NoError(t, err)

	all, err := s.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFailOnInjectsFault(t *testing.T) {
	ctx := context.Background()
	s := New()
	injected := utils.NewTransientError("injected", nil)
	s.FailOn(OpLinkInsert, injected)

	err := s.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		tag, err := u.Tags().UpsertIncrement(ctx, "go")
		if err != nil {
			return err
		}
		return u.Links().InsertMany(ctx, []*models.TagQuestion{{ID: uuid.New(), TagID: tag.ID, QuestionID: uuid.New()}})
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))

	all, err := s.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	s.ClearFaults()
	_, err = s.Snapshot().Tags().UpsertIncrement(ctx, "go")
	assert.NoError(t, err)
}

func TestVoteUniqueness(t *testing.T) {
	ctx := context.Background()
	votes := New().Snapshot().Votes()
	author, target := uuid.New(), uuid.New()

	v := &models.Vote{ID: uuid.New(), AuthorID: author, TargetID: target, TargetType: models.QuestionTarget, VoteType: models.Upvote}
	require.NoError(t, votes.Insert(ctx, v))

	dup := *v
	dup.ID = uuid.New()
	err := votes.Insert(ctx, &dup)
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflict))

	found, err := votes.Find(ctx, author, target, models.QuestionTarget)
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)

	none, err := votes.Find(ctx, author, target, models.AnswerTarget)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, votes.Delete(ctx, v.ID))
	err = votes.Delete(ctx, v.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestQuestionListing(t *testing.T) {
	ctx := context.Background()
	questions := New().Snapshot().Questions()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tagID := uuid.New()
	old := newQuestion("How do goroutines work", base)
	old.Tags = []uuid.UUID{tagID}
	mid := newQuestion("Channels versus mutexes", base.Add(time.Hour))
	mid.Answers = 2
	mid.Upvotes = 5
	recent := newQuestion("Generic constraints in Go", base.Add(2*time.Hour))
	for _, q := range []*models.Question{old, mid, recent} {
		require.NoError(t, questions.Insert(ctx, q))
	}

	got, total, err := questions.List(ctx, query.ForQuestions(query.ListParams{}))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []uuid.UUID{recent.ID, mid.ID, old.ID}, ids(got))

	got, _, err = questions.List(ctx, query.ForQuestions(query.ListParams{Filter: "unanswered"}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{recent.ID, old.ID}, ids(got))

	got, _, err = questions.List(ctx, query.ForQuestions(query.ListParams{Filter: "popular"}))
	require.NoError(t, err)
	assert.Equal(t, mid.ID, got[0].ID)

	got, total, err = questions.List(ctx, query.ForQuestions(query.ListParams{Query: "GOROUTINES"}))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, old.ID, got[0].ID)

	got, _, err = questions.List(ctx, query.ForTaggedQuestions(tagID, query.ListParams{}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID}, ids(got))

	got, total, err = questions.List(ctx, query.ForQuestions(query.ListParams{Page: 2, PageSize: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []uuid.UUID{old.ID}, ids(got))
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	questions := New().Snapshot().Questions()
	q := newQuestion("Copy semantics", time.Now())
	require.NoError(t, questions.Insert(ctx, q))

	got, err := questions.Get(ctx, q.ID)
	require.NoError(t, err)
	got.Tags = append(got.Tags, uuid.New())
	got.Title = "mutated"

	again, err := questions.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Copy semantics", again.Title)
	assert.Empty(t, again.Tags)
}

func TestUserEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	users := New().Snapshot().Users()
	u := &models.User{ID: uuid.New(), Name: "Ada", Username: "ada", Email: "Ada@Example.com"}
	require.NoError(t, users.Insert(ctx, u))

	got, err := users.GetByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = users.Insert(ctx, &models.User{ID: uuid.New(), Username: "other", Email: "ADA@example.com"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflict))
}

func ids(qs []*models.Question) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}
