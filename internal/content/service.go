// Package content serves questions, answers, saved collections and tag
// listings. Tag and vote consistency is delegated to the tags and votes
// packages; this package only composes them with plain reads and writes.
package content

import (
	"context"
	"log/slog"

	"devoverflow/internal/cache"
	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/tags"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

const popularTagsKey = "tags:popular"

type Service struct {
	store      database.Store
	reconciler *tags.Reconciler
	cache      *cache.Cache
	retry      utils.RetryPolicy
	logger     *slog.Logger
}

func NewService(store database.Store, reconciler *tags.Reconciler, c *cache.Cache, retry utils.RetryPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(nil, 0, logger)
	}
	return &Service{store: store, reconciler: reconciler, cache: c, retry: retry, logger: logger}
}

// read runs an idempotent snapshot read under the retry policy.
func read[T any](ctx context.Context, s *Service, name string, fn func(ctx context.Context, u database.Unit) (T, error)) (T, error) {
	return utils.Retry(ctx, s.retry, name, func(ctx context.Context) (T, error) {
		return fn(ctx, s.store.Snapshot())
	})
}

// tagsChanged drops cached tag listings after a committed tag mutation.
func (s *Service) tagsChanged(ctx context.Context) {
	s.cache.Invalidate(ctx, popularTagsKey)
}

// views joins questions with their tags and authors. Missing tags or authors
// are left out rather than failing the listing.
func views(ctx context.Context, u database.Unit, questions []*models.Question) ([]*models.QuestionView, error) {
	var tagIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, q := range questions {
		for _, id := range q.Tags {
			if !seen[id] {
				seen[id] = true
				tagIDs = append(tagIDs, id)
			}
		}
	}
	found, err := u.Tags().GetMany(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	authors := make(map[uuid.UUID]*models.User)
	out := make([]*models.QuestionView, 0, len(questions))
	for _, q := range questions {
		v := &models.QuestionView{Question: q, TagList: make([]*models.Tag, 0, len(q.Tags))}
		for _, id := range q.Tags {
			if t, ok := byID[id]; ok {
				v.TagList = append(v.TagList, t)
			}
		}

		author, ok := authors[q.AuthorID]
		if !ok {
			author, err = u.Users().Get(ctx, q.AuthorID)
			if err != nil && !utils.IsErrorCode(err, utils.ErrNotFound) {
				return nil, err
			}
			authors[q.AuthorID] = author
		}
		v.Author = author
		out = append(out, v)
	}
	return out, nil
}

// Stats are the headline counts reported by the health endpoint.
type Stats struct {
	Questions int `json:"questions"`
	Users     int `json:"users"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return read(ctx, s, "content.stats", func(ctx context.Context, u database.Unit) (*Stats, error) {
		questions, err := u.Questions().Count(ctx)
		if err != nil {
			return nil, err
		}
		users, err := u.Users().Count(ctx)
		if err != nil {
			return nil, err
		}
		return &Stats{Questions: questions, Users: users}, nil
	})
}
