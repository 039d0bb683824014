package content

import (
	"context"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/tags"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"

	"github.com/google/uuid"
)

type CreateQuestionInput struct {
	AuthorID uuid.UUID `json:"-"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Tags     []string  `json:"tags"`
}

// CreateQuestion inserts the question and attaches its tags in one
// transaction.
func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*models.QuestionView, error) {
	if in.AuthorID == uuid.Nil {
		return nil, utils.NewUnauthorizedError("sign in to ask a question")
	}
	if err := validation.Validate(validation.QuestionFields{Title: in.Title, Content: in.Content}); err != nil {
		return nil, err
	}
	names, err := tags.NormalizeNames(in.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q := &models.Question{
		ID:        uuid.New(),
		Title:     in.Title,
		Content:   in.Content,
		AuthorID:  in.AuthorID,
		Tags:      []uuid.UUID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var view *models.QuestionView
	err = s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		author, err := u.Users().Get(ctx, in.AuthorID)
		if err != nil {
			return err
		}
		if err := u.Questions().Insert(ctx, q); err != nil {
			return err
		}
		attached, err := s.reconciler.ApplyOnCreate(ctx, u, q.ID, names)
		if err != nil {
			return err
		}

		created := q.Clone()
		for _, t := range attached {
			created.Tags = append(created.Tags, t.ID)
		}
		view = &models.QuestionView{Question: created, TagList: attached, Author: author}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.tagsChanged(ctx)
	s.logger.Info("question created", "question_id", q.ID, "author_id", in.AuthorID, "tags", len(names))
	return view, nil
}

// EditQuestion applies an author's edit, tags included.
func (s *Service) EditQuestion(ctx context.Context, in tags.EditInput) (*models.QuestionView, error) {
	q, err := s.reconciler.ReconcileOnEdit(ctx, in)
	if err != nil {
		return nil, err
	}
	s.tagsChanged(ctx)

	out, err := read(ctx, s, "questions.view", func(ctx context.Context, u database.Unit) ([]*models.QuestionView, error) {
		return views(ctx, u, []*models.Question{q})
	})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// GetQuestion returns the question for display and counts the view. A failed
// view count is logged and does not fail the read.
func (s *Service) GetQuestion(ctx context.Context, id uuid.UUID) (*models.QuestionView, error) {
	out, err := read(ctx, s, "questions.get", func(ctx context.Context, u database.Unit) ([]*models.QuestionView, error) {
		q, err := u.Questions().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return views(ctx, u, []*models.Question{q})
	})
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		return u.Questions().IncrementViews(ctx, id)
	})
	if err != nil {
		s.logger.Warn("view count not recorded", "question_id", id, utils.ErrAttr(err))
	} else {
		out[0].Views++
	}
	return out[0], nil
}

// LookupQuestion reads a question without counting a view.
func (s *Service) LookupQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return read(ctx, s, "questions.lookup", func(ctx context.Context, u database.Unit) (*models.Question, error) {
		return u.Questions().Get(ctx, id)
	})
}

func (s *Service) ListQuestions(ctx context.Context, p query.ListParams) (*query.Page[*models.QuestionView], error) {
	return s.listQuestions(ctx, query.ForQuestions(p))
}

// TaggedQuestions is a tag with one page of its questions.
type TaggedQuestions struct {
	Tag *models.Tag `json:"tag"`
	*query.Page[*models.QuestionView]
}

func (s *Service) ListQuestionsByTag(ctx context.Context, tagID uuid.UUID, p query.ListParams) (*TaggedQuestions, error) {
	tag, err := s.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	page, err := s.listQuestions(ctx, query.ForTaggedQuestions(tagID, p))
	if err != nil {
		return nil, err
	}
	return &TaggedQuestions{Tag: tag, Page: page}, nil
}

func (s *Service) listQuestions(ctx context.Context, spec query.Spec) (*query.Page[*models.QuestionView], error) {
	return read(ctx, s, "questions.list", func(ctx context.Context, u database.Unit) (*query.Page[*models.QuestionView], error) {
		questions, total, err := u.Questions().List(ctx, spec)
		if err != nil {
			return nil, err
		}
		items, err := views(ctx, u, questions)
		if err != nil {
			return nil, err
		}
		return &query.Page[*models.QuestionView]{
			Items:  items,
			IsNext: total > spec.Skip()+len(items),
			Total:  total,
		}, nil
	})
}
