package content

import (
	"context"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"

	"github.com/google/uuid"
)

type CreateAnswerInput struct {
	QuestionID uuid.UUID `json:"-"`
	AuthorID   uuid.UUID `json:"-"`
	Content    string    `json:"content"`
}

// CreateAnswer inserts the answer and bumps the question's answer count
// together.
func (s *Service) CreateAnswer(ctx context.Context, in CreateAnswerInput) (*models.Answer, error) {
	if in.AuthorID == uuid.Nil {
		return nil, utils.NewUnauthorizedError("sign in to answer")
	}
	if err := validation.Validate(validation.AnswerFields{Content: in.Content}); err != nil {
		return nil, err
	}

	a := &models.Answer{
		ID:         uuid.New(),
		QuestionID: in.QuestionID,
		AuthorID:   in.AuthorID,
		Content:    in.Content,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		if _, err := u.Questions().Get(ctx, in.QuestionID); err != nil {
			return err
		}
		if err := u.Answers().Insert(ctx, a); err != nil {
			return err
		}
		return u.Questions().IncrementAnswers(ctx, in.QuestionID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("answer created", "answer_id", a.ID, "question_id", a.QuestionID)
	return a, nil
}

func (s *Service) ListAnswers(ctx context.Context, questionID uuid.UUID, p query.ListParams) (*query.Page[*models.Answer], error) {
	spec := query.ForAnswers(p)
	return read(ctx, s, "answers.list", func(ctx context.Context, u database.Unit) (*query.Page[*models.Answer], error) {
		if _, err := u.Questions().Get(ctx, questionID); err != nil {
			return nil, err
		}
		items, total, err := u.Answers().ListForQuestion(ctx, questionID, spec)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []*models.Answer{}
		}
		return &query.Page[*models.Answer]{
			Items:  items,
			IsNext: total > spec.Skip()+len(items),
			Total:  total,
		}, nil
	})
}
