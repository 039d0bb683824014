package tags

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Reconciler turns a question's desired tag names into ledger operations.
type Reconciler struct {
	store  database.Store
	ledger *Ledger
	logger *slog.Logger
}

func NewReconciler(store database.Store, ledger *Ledger, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, ledger: ledger, logger: logger}
}

// EditInput is an author's edit of a question.
// EditInput is a partial edit. An empty Title or Content keeps the stored
// value and a nil TagNames keeps the current tags.
type EditInput struct {
	QuestionID uuid.UUID `json:"-"`
	EditorID   uuid.UUID `json:"-"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	TagNames   []string  `json:"tags,omitempty"`
}

// ApplyOnCreate attaches already normalized tag names to a new question
// inside u. Upserts run concurrently; links and the question's tag list are
// written once all of them succeeded, in the order of names.
func (r *Reconciler) ApplyOnCreate(ctx context.Context, u database.Unit, questionID uuid.UUID, names []string) ([]*models.Tag, error) {
	tags, err := r.upsertAll(ctx, u, names)
	if err != nil {
		return nil, err
	}

	ids := tagIDs(tags)
	if err := r.ledger.LinkToQuestion(ctx, u, questionID, ids...); err != nil {
		return nil, err
	}
	if err := u.Questions().PushTags(ctx, questionID, ids); err != nil {
		return nil, err
	}
	return tags, nil
}

// ReconcileOnCreate validates names and applies them to an existing question
// in a transaction of its own.
func (r *Reconciler) ReconcileOnCreate(ctx context.Context, questionID uuid.UUID, names []string) ([]*models.Tag, error) {
	names, err := NormalizeNames(names)
	if err != nil {
		return nil, err
	}

	var tags []*models.Tag
	err = r.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		var err error
		tags, err = r.ApplyOnCreate(ctx, u, questionID, names)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("tags attached", "question_id", questionID, "count", len(tags))
	return tags, nil
}

// ReconcileOnEdit applies the tag delta of an edit together with any new
// title and content. Tags that stay keep their stored display name.
func (r *Reconciler) ReconcileOnEdit(ctx context.Context, in EditInput) (*models.Question, error) {
	if in.EditorID == uuid.Nil {
		return nil, utils.NewUnauthorizedError("sign in to edit a question")
	}
	var names []string
	if in.TagNames != nil {
		var err error
		if names, err = NormalizeNames(in.TagNames); err != nil {
			return nil, err
		}
	}

	var updated *models.Question
	err := r.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		q, err := u.Questions().Get(ctx, in.QuestionID)
		if err != nil {
			return err
		}
		if q.AuthorID != in.EditorID {
			return utils.NewForbiddenError("only the author can edit this question")
		}

		title, body := q.Title, q.Content
		if in.Title != "" {
			title = in.Title
		}
		if in.Content != "" {
			body = in.Content
		}
		if err := validation.Validate(validation.QuestionFields{Title: title, Content: body}); err != nil {
			return err
		}

		current, err := u.Tags().GetMany(ctx, q.Tags)
		if err != nil {
			return err
		}
		if err := r.unlinkMissing(ctx, u, q, current); err != nil {
			return err
		}
		want := names
		if in.TagNames == nil {
			for _, t := range current {
				want = append(want, t.Name)
			}
		}

		desired := make(map[string]bool, len(want))
		for _, name := range want {
			desired[models.TagKey(name)] = true
		}
		existing := make(map[string]bool, len(current))
		var kept []uuid.UUID
		for _, t := range current {
			existing[t.NameKey] = true
			if desired[t.NameKey] {
				kept = append(kept, t.ID)
				continue
			}
			if err := r.ledger.DecrementOrDelete(ctx, u, t.ID); err != nil {
				return err
			}
			if err := r.ledger.UnlinkFromQuestion(ctx, u, t.ID, q.ID); err != nil {
				return err
			}
		}

		var toAdd []string
		for _, name := range want {
			if !existing[models.TagKey(name)] {
				toAdd = append(toAdd, name)
			}
		}
		added, err := r.upsertAll(ctx, u, toAdd)
		if err != nil {
			return err
		}
		addedIDs := tagIDs(added)
		if err := r.ledger.LinkToQuestion(ctx, u, q.ID, addedIDs...); err != nil {
			return err
		}

		q.Title = title
		q.Content = body
		q.Tags = slices.Concat(kept, addedIDs)
		q.UpdatedAt = time.Now().UTC()
		if err := u.Questions().Update(ctx, q); err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// unlinkMissing removes the links of tag ids the question lists but the
// store no longer has, so the rewritten tag list and the links agree.
func (r *Reconciler) unlinkMissing(ctx context.Context, u database.Unit, q *models.Question, found []*models.Tag) error {
	if len(found) == len(q.Tags) {
		return nil
	}
	present := make(map[uuid.UUID]bool, len(found))
	for _, t := range found {
		present[t.ID] = true
	}
	for _, id := range q.Tags {
		if present[id] {
			continue
		}
		r.logger.Warn("question references a missing tag", "question_id", q.ID, "tag_id", id)
		err := r.ledger.UnlinkFromQuestion(ctx, u, id, q.ID)
		if err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
			return err
		}
	}
	return nil
}

// upsertAll upserts every name concurrently and returns the tags in the
// order of names.
func (r *Reconciler) upsertAll(ctx context.Context, u database.Unit, names []string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validation.MaxTags)
	for i, name := range names {
		g.Go(func() error {
			tag, err := r.ledger.UpsertAndIncrement(gctx, u, name)
			if err != nil {
				return err
			}
			tags[i] = tag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tags, nil
}

func tagIDs(tags []*models.Tag) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
