// Package tags keeps tag usage counts and question-tag links consistent.
//
// Every operation takes the unit of work it runs in. Counts are only ever
// changed together with the links they count, inside one transaction.
package tags

import (
	"context"
	"log/slog"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"

	"github.com/google/uuid"
)

type Ledger struct {
	logger *slog.Logger
}

func NewLedger(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// UpsertAndIncrement creates the tag with a count of one or increments the
// existing tag with the same case-folded name. A lost creation race surfaces
// as a conflict.
func (l *Ledger) UpsertAndIncrement(ctx context.Context, u database.Unit, name string) (*models.Tag, error) {
	return u.Tags().UpsertIncrement(ctx, name)
}

// DecrementOrDelete drops one use of the tag and deletes it once nothing
// uses it. A count that was already zero or below is deleted, never stored.
func (l *Ledger) DecrementOrDelete(ctx context.Context, u database.Unit, tagID uuid.UUID) error {
	tag, err := u.Tags().Increment(ctx, tagID, -1)
	if err != nil {
		return err
	}
	if tag.UsageCount > 0 {
		return nil
	}
	if tag.UsageCount < 0 {
		l.logger.Warn("tag usage count below zero, deleting",
			"tag_id", tag.ID, "name", tag.Name, "usage_count", tag.UsageCount)
	}
	return u.Tags().Delete(ctx, tagID)
}

// LinkToQuestion inserts one link per tag in a single batch.
func (l *Ledger) LinkToQuestion(ctx context.Context, u database.Unit, questionID uuid.UUID, tagIDs ...uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	links := make([]*models.TagQuestion, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, &models.TagQuestion{
			ID:         uuid.New(),
			TagID:      id,
			QuestionID: questionID,
			CreatedAt:  now,
		})
	}
	return u.Links().InsertMany(ctx, links)
}

func (l *Ledger) UnlinkFromQuestion(ctx context.Context, u database.Unit, tagID, questionID uuid.UUID) error {
	return u.Links().Delete(ctx, tagID, questionID)
}
