package content

import (
	"context"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

// ToggleSave saves the question for the user, or unsaves it when already
// saved. It reports whether the question is saved afterwards.
func (s *Service) ToggleSave(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, utils.NewUnauthorizedError("sign in to save questions")
	}

	var saved bool
	err := s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		if _, err := u.Questions().Get(ctx, questionID); err != nil {
			return err
		}
		existing, err := u.Collections().Find(ctx, userID, questionID)
		if err != nil {
			return err
		}
		if existing != nil {
			saved = false
			return u.Collections().Delete(ctx, existing.ID)
		}
		saved = true
		return u.Collections().Insert(ctx, &models.Collection{
			ID:         uuid.New(),
			AuthorID:   userID,
			QuestionID: questionID,
			CreatedAt:  time.Now().UTC(),
		})
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

// HasSaved is false for anonymous users.
func (s *Service) HasSaved(ctx context.Context, userID, questionID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	return read(ctx, s, "collections.find", func(ctx context.Context, u database.Unit) (bool, error) {
		c, err := u.Collections().Find(ctx, userID, questionID)
		return c != nil, err
	})
}

// ListSaved pages through the user's saved questions, newest save first.
func (s *Service) ListSaved(ctx context.Context, userID uuid.UUID, p query.ListParams) (*query.Page[*models.QuestionView], error) {
	if userID == uuid.Nil {
		return nil, utils.NewUnauthorizedError("sign in to see saved questions")
	}
	spec := query.ForQuestions(query.ListParams{Page: p.Page, PageSize: p.PageSize})

	return read(ctx, s, "collections.list", func(ctx context.Context, u database.Unit) (*query.Page[*models.QuestionView], error) {
		ids, total, err := u.Collections().QuestionIDs(ctx, userID, spec)
		if err != nil {
			return nil, err
		}
		questions, err := u.Questions().GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		items, err := views(ctx, u, questions)
		if err != nil {
			return nil, err
		}
		return &query.Page[*models.QuestionView]{
			Items:  items,
			IsNext: total > spec.Skip()+len(ids),
			Total:  total,
		}, nil
	})
}
