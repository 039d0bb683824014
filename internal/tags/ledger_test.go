package tags

import (
	"context"
	"testing"

	"devoverflow/internal/database"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementOrDelete(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewLedger(nil)
	u := store.Snapshot()

	tag, err := ledger.UpsertAndIncrement(ctx, u, "go")
	require.NoError(t, err)
	_, err = ledger.UpsertAndIncrement(ctx, u, "Go")
	require.NoError(t, err)

	require.NoError(t, ledger.DecrementOrDelete(ctx, u, tag.ID))
	got, err := u.Tags().Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)

	require.NoError(t, ledger.DecrementOrDelete(ctx, u, tag.ID))
	_, err = u.Tags().Get(ctx, tag.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	err = ledger.DecrementOrDelete(ctx, u, tag.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestDecrementOrDeleteFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewLedger(nil)
	u := store.Snapshot()

	tag, err := ledger.UpsertAndIncrement(ctx, u, "legacy")
	require.NoError(t, err)
	// Simulate drift left behind by an older writer.
	_, err = u.Tags().Increment(ctx, tag.ID, -1)
	require.NoError(t, err)

	require.NoError(t, ledger.DecrementOrDelete(ctx, u, tag.ID))
	all, err := u.Tags().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentDecrementsDeleteOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ledger := NewLedger(nil)

	tag, err := ledger.UpsertAndIncrement(ctx, store.Snapshot(), "race")
	require.NoError(t, err)
	_, err = ledger.UpsertAndIncrement(ctx, store.Snapshot(), "race")
	require.NoError(t, err)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
				return ledger.DecrementOrDelete(ctx, u, tag.ID)
			})
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	all, err := store.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLinkToQuestionRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	u := memstore.New().Snapshot()
	ledger := NewLedger(nil)
	qid, tid := uuid.New(), uuid.New()

	require.NoError(t, ledger.LinkToQuestion(ctx, u, qid, tid))
	err := ledger.LinkToQuestion(ctx, u, qid, tid)
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflict))

	require.NoError(t, ledger.UnlinkFromQuestion(ctx, u, tid, qid))
	links, err := u.Links().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestNormalizeNames(t *testing.T) {
	names, err := NormalizeNames([]string{"  Go ", "go", "Rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Rust"}, names)

	_, err = NormalizeNames([]string{"ThisTagIsWayTooLong"})
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrValidation, appErr.Code)
}
