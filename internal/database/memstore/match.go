package memstore

import (
	"cmp"
	"slices"
	"strings"

	"devoverflow/internal/models"
	"devoverflow/internal/query"
)

func containsFold(term string, fields ...string) bool {
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func matchQuestion(q *models.Question, spec query.Spec) bool {
	for _, c := range spec.Filters() {
		switch c := c.(type) {
		case query.TextSearch:
			if !containsFold(c.Term, q.Title, q.Content) {
				return false
			}
		case query.Unanswered:
			if q.Answers != 0 {
				return false
			}
		case query.HasTag:
			if !q.HasTag(c.TagID) {
				return false
			}
		}
	}
	return true
}

func matchTag(t *models.Tag, spec query.Spec) bool {
	for _, c := range spec.Filters() {
		if ts, ok := c.(query.TextSearch); ok && !containsFold(ts.Term, t.Name) {
			return false
		}
	}
	return true
}

func sortQuestions(qs []*models.Question, sorts []query.SortBy) {
	slices.SortStableFunc(qs, func(a, b *models.Question) int {
		for _, s := range sorts {
			var c int
			switch s.Field {
			case query.FieldCreatedAt:
				c = a.CreatedAt.Compare(b.CreatedAt)
			case query.FieldUpvotes:
				c = cmp.Compare(a.Upvotes, b.Upvotes)
			case query.FieldAnswers:
				c = cmp.Compare(a.Answers, b.Answers)
			case query.FieldViews:
				c = cmp.Compare(a.Views, b.Views)
			}
			if c != 0 {
				return c * int(s.Direction)
			}
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func sortTags(ts []*models.Tag, sorts []query.SortBy) {
	slices.SortStableFunc(ts, func(a, b *models.Tag) int {
		for _, s := range sorts {
			var c int
			switch s.Field {
			case query.FieldCreatedAt:
				c = a.CreatedAt.Compare(b.CreatedAt)
			case query.FieldUsageCount:
				c = cmp.Compare(a.UsageCount, b.UsageCount)
			case query.FieldName:
				c = strings.Compare(a.NameKey, b.NameKey)
			}
			if c != 0 {
				return c * int(s.Direction)
			}
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func sortAnswers(as []*models.Answer, sorts []query.SortBy) {
	slices.SortStableFunc(as, func(a, b *models.Answer) int {
		for _, s := range sorts {
			var c int
			switch s.Field {
			case query.FieldCreatedAt:
				c = a.CreatedAt.Compare(b.CreatedAt)
			case query.FieldUpvotes:
				c = cmp.Compare(a.Upvotes, b.Upvotes)
			}
			if c != 0 {
				return c * int(s.Direction)
			}
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// Saved questions list newest first.
func sortCollections(cs []*models.Collection) {
	slices.SortStableFunc(cs, func(a, b *models.Collection) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

func pageOf[T any](items []T, spec query.Spec) []T {
	if spec.PageSize <= 0 {
		return items
	}
	skip := max(spec.Skip(), 0)
	if skip >= len(items) {
		return nil
	}
	end := min(skip+spec.PageSize, len(items))
	return items[skip:end]
}
