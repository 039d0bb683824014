package tags

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"devoverflow/internal/audit"
	"devoverflow/internal/database"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longContent = strings.Repeat("How should this be structured? ", 5)

func setup(t *testing.T) (*memstore.Store, *Reconciler) {
	t.Helper()
	store := memstore.New()
	return store, NewReconciler(store, NewLedger(nil), nil)
}

func seedQuestion(t *testing.T, store *memstore.Store, author uuid.UUID) *models.Question {
	t.Helper()
	now := time.Now().UTC()
	q := &models.Question{
		ID:        uuid.New(),
		Title:     "A question about tags",
		Content:   longContent,
		AuthorID:  author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Snapshot().Questions().Insert(context.Background(), q))
	return q
}

func tagByName(t *testing.T, store *memstore.Store, name string) *models.Tag {
	t.Helper()
	all, err := store.Snapshot().Tags().All(context.Background())
	require.NoError(t, err)
	for _, tag := range all {
		if tag.NameKey == models.TagKey(name) {
			return tag
		}
	}
	return nil
}

func requireConsistent(t *testing.T, store database.Store) {
	t.Helper()
	report, err := audit.Check(context.Background(), store.Snapshot())
	require.NoError(t, err)
	require.True(t, report.OK(), "drift: %v", report.Drift)
}

func TestReconcileOnCreate(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	q := seedQuestion(t, store, uuid.New())

	tags, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"go", "Concurrency", "testing"})
	require.NoError(t, err)
	require.Len(t, tags, 3)

	got, err := store.Snapshot().Questions().Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tags[0].ID, tags[1].ID, tags[2].ID}, got.Tags)
	assert.Equal(t, "Concurrency", tags[1].Name)
	for _, tag := range tags {
		assert.Equal(t, 1, tag.UsageCount)
	}
	requireConsistent(t, store)
}

func TestCaseInsensitiveMerge(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)

	for i := 0; i < 5; i++ {
		q := seedQuestion(t, store, uuid.New())
		_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"javascript"})
		require.NoError(t, err)
	}

	q := seedQuestion(t, store, uuid.New())
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"JavaScript"})
	require.NoError(t, err)

	all, err := store.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 6, all[0].UsageCount)
	assert.Equal(t, "javascript", all[0].Name)
	requireConsistent(t, store)
}

func TestDuplicateNamesCollapseToFirst(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	q := seedQuestion(t, store, uuid.New())

	tags, err := rec.ReconcileOnCreate(ctx, q.ID, []string{" React ", "react", "REACT"})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "React", tags[0].Name)
	assert.Equal(t, 1, tags[0].UsageCount)
	requireConsistent(t, store)
}

func TestValidationRejectsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	cases := map[string][]string{
		"no tags":  nil,
		"too many": {"a", "b", "c", "d"},
		"too long": {"averyveryverylongtag"},
		"blank":    {"go", "   "},
	}
	for name, names := range cases {
		t.Run(name, func(t *testing.T) {
			store, rec := setup(t)
			q := seedQuestion(t, store, uuid.New())

			_, err := rec.ReconcileOnCreate(ctx, q.ID, names)
			assert.True(t, utils.IsErrorCode(err, utils.ErrValidation), "got %v", err)

			all, err := store.Snapshot().Tags().All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestEditAppliesDelta(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)

	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)
	react := tagByName(t, store, "react")

	// node is also used elsewhere so it survives the edit
	other := seedQuestion(t, store, uuid.New())
	_, err = rec.ReconcileOnCreate(ctx, other.ID, []string{"node"})
	require.NoError(t, err)

	updated, err := rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID,
		EditorID:   author,
		Title:      "A question about frameworks",
		Content:    longContent,
		TagNames:   []string{"REACT", "vue"},
	})
	require.NoError(t, err)

	vue := tagByName(t, store, "vue")
	require.NotNil(t, vue)
	assert.Equal(t, 1, vue.UsageCount)
	assert.Equal(t, []uuid.UUID{react.ID, vue.ID}, updated.Tags)
	assert.Equal(t, "A question about frameworks", updated.Title)

	stillReact := tagByName(t, store, "react")
	assert.Equal(t, "react", stillReact.Name)
	assert.Equal(t, 1, stillReact.UsageCount)

	node := tagByName(t, store, "node")
	require.NotNil(t, node)
	assert.Equal(t, 1, node.UsageCount)
	requireConsistent(t, store)
}

func TestEditDeletesUnusedTag(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)

	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)

	_, err = rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, Title: q.Title, Content: q.Content,
		TagNames: []string{"react", "vue"},
	})
	require.NoError(t, err)

	assert.Nil(t, tagByName(t, store, "node"))
	requireConsistent(t, store)
}

func TestEditTagsOnlyKeepsTitleAndContent(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react"})
	require.NoError(t, err)

	updated, err := rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, TagNames: []string{"react", "hooks"},
	})
	require.NoError(t, err)
	assert.Equal(t, q.Title, updated.Title)
	assert.Equal(t, q.Content, updated.Content)
	assert.Len(t, updated.Tags, 2)
	requireConsistent(t, store)
}

func TestEditTitleOnlyKeepsTags(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)
	before, err := store.Snapshot().Questions().Get(ctx, q.ID)
	require.NoError(t, err)

	updated, err := rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, Title: "A sharper question about tags",
	})
	require.NoError(t, err)
	assert.Equal(t, "A sharper question about tags", updated.Title)
	assert.Equal(t, q.Content, updated.Content)
	assert.Equal(t, before.Tags, updated.Tags)
	assert.Equal(t, 1, tagByName(t, store, "react").UsageCount)
	assert.Equal(t, 1, tagByName(t, store, "node").UsageCount)
	requireConsistent(t, store)
}

func TestEditRejectsInvalidNewTitle(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react"})
	require.NoError(t, err)

	_, err = rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, Title: "Why", TagNames: []string{"vue"},
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidation), "got %v", err)
	assert.Nil(t, tagByName(t, store, "vue"))
	requireConsistent(t, store)
}

func TestEditDropsLinksOfMissingTags(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)

	// node vanishes without its link being removed
	node := tagByName(t, store, "node")
	require.NoError(t, store.Snapshot().Tags().Delete(ctx, node.ID))

	updated, err := rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, TagNames: []string{"react", "vue"},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Tags, 2)
	assert.NotContains(t, updated.Tags, node.ID)

	links, err := store.Snapshot().Links().All(ctx)
	require.NoError(t, err)
	for _, l := range links {
		assert.NotEqual(t, node.ID, l.TagID)
	}
	assert.Len(t, links, 2)
	requireConsistent(t, store)
}

func TestEditByOtherUserIsForbidden(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	q := seedQuestion(t, store, uuid.New())
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)

	before, err := store.Snapshot().Tags().All(ctx)
	require.NoError(t, err)

	_, err = rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: uuid.New(), Title: "Hijacked title",
		Content: longContent, TagNames: []string{"vue"},
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	after, err := store.Snapshot().Tags().All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)

	got, err := store.Snapshot().Questions().Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Title, got.Title)
	requireConsistent(t, store)
}

func TestEditWithoutSessionIsUnauthorized(t *testing.T) {
	store, rec := setup(t)
	q := seedQuestion(t, store, uuid.New())

	_, err := rec.ReconcileOnEdit(context.Background(), EditInput{
		QuestionID: q.ID, Title: q.Title, Content: q.Content, TagNames: []string{"go"},
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))
}

func TestEditMissingQuestion(t *testing.T) {
	_, rec := setup(t)
	_, err := rec.ReconcileOnEdit(context.Background(), EditInput{
		QuestionID: uuid.New(), EditorID: uuid.New(), Title: "Some title",
		Content: longContent, TagNames: []string{"go"},
	})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestLinkFailureRollsBackUpserts(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)

	existing := seedQuestion(t, store, uuid.New())
	_, err := rec.ReconcileOnCreate(ctx, existing.ID, []string{"go"})
	require.NoError(t, err)

	store.FailOn(memstore.OpLinkInsert, utils.NewTransientError("link insert failed", nil))
	q := seedQuestion(t, store, uuid.New())
	_, err = rec.ReconcileOnCreate(ctx, q.ID, []string{"go", "rust"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))

	assert.Equal(t, 1, tagByName(t, store, "go").UsageCount)
	assert.Nil(t, tagByName(t, store, "rust"))
	got, err := store.Snapshot().Questions().Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	store.ClearFaults()
	requireConsistent(t, store)
}

func TestEditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)
	author := uuid.New()
	q := seedQuestion(t, store, author)
	_, err := rec.ReconcileOnCreate(ctx, q.ID, []string{"react", "node"})
	require.NoError(t, err)

	store.FailOn(memstore.OpQuestionUpdate, utils.NewTransientError("update failed", nil))
	_, err = rec.ReconcileOnEdit(ctx, EditInput{
		QuestionID: q.ID, EditorID: author, Title: q.Title, Content: q.Content,
		TagNames: []string{"vue"},
	})
	require.Error(t, err)

	assert.NotNil(t, tagByName(t, store, "node"))
	assert.NotNil(t, tagByName(t, store, "react"))
	assert.Nil(t, tagByName(t, store, "vue"))
	requireConsistent(t, store)
}

func TestConcurrentEditsKeepCountsExact(t *testing.T) {
	ctx := context.Background()
	store, rec := setup(t)

	const n = 20
	authors := make([]uuid.UUID, n)
	questions := make([]*models.Question, n)
	for i := range questions {
		authors[i] = uuid.New()
		questions[i] = seedQuestion(t, store, authors[i])
		_, err := rec.ReconcileOnCreate(ctx, questions[i].ID, []string{"shared", "first"})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := range questions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.ReconcileOnEdit(ctx, EditInput{
				QuestionID: questions[i].ID, EditorID: authors[i],
				Title: questions[i].Title, Content: questions[i].Content,
				TagNames: []string{"Shared", "second"},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Nil(t, tagByName(t, store, "first"))
	assert.Equal(t, n, tagByName(t, store, "shared").UsageCount)
	assert.Equal(t, n, tagByName(t, store, "second").UsageCount)
	requireConsistent(t, store)
}
