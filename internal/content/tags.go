package content

import (
	"context"

	"devoverflow/internal/cache"
	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/query"

	"github.com/google/uuid"
)

func (s *Service) ListTags(ctx context.Context, p query.ListParams) (*query.Page[*models.Tag], error) {
	spec := query.ForTags(p)
	return read(ctx, s, "tags.list", func(ctx context.Context, u database.Unit) (*query.Page[*models.Tag], error) {
		items, total, err := u.Tags().List(ctx, spec)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []*models.Tag{}
		}
		return &query.Page[*models.Tag]{
			Items:  items,
			IsNext: total > spec.Skip()+len(items),
			Total:  total,
		}, nil
	})
}

// PopularTags returns the most used tags. The top page is cached and
// invalidated whenever a question's tags change.
func (s *Service) PopularTags(ctx context.Context, limit int) ([]*models.Tag, error) {
	if limit < 1 || limit > query.MaxPageSize {
		limit = 5
	}
	top, err := cache.Aside(ctx, s.cache, popularTagsKey, func(ctx context.Context) ([]*models.Tag, error) {
		page, err := s.ListTags(ctx, query.ListParams{Filter: "popular", PageSize: query.MaxPageSize})
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	})
	if err != nil {
		return nil, err
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (s *Service) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	return read(ctx, s, "tags.get", func(ctx context.Context, u database.Unit) (*models.Tag, error) {
		return u.Tags().Get(ctx, id)
	})
}
