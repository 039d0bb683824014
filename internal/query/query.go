// Package query describes list queries as plain values. Composers here are
// pure; storage backends translate a Spec into their own query language.
package query

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Clause is one element of a query specification.
type Clause interface {
	isClause()
}

// NoFilter matches everything.
type NoFilter struct{}

// TextSearch matches a case-insensitive substring of the searchable fields.
type TextSearch struct {
	Term string
}

// SortBy orders results by a field.
type SortBy struct {
	Field     Field
	Direction Direction
}

// Unanswered matches questions without answers.
type Unanswered struct{}

// HasTag matches questions carrying a tag.
type HasTag struct {
	TagID uuid.UUID
}

func (NoFilter) isClause()   {}
func (TextSearch) isClause() {}
func (SortBy) isClause()     {}
func (Unanswered) isClause() {}
func (HasTag) isClause()     {}

type Field string

const (
	FieldCreatedAt  Field = "createdAt"
	FieldUpvotes    Field = "upvotes"
	FieldAnswers    Field = "answers"
	FieldViews      Field = "views"
	FieldUsageCount Field = "usageCount"
	FieldName       Field = "name"
)

type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// Spec is a composed query: filters, ordering and a page window.
type Spec struct {
	Clauses  []Clause
	Page     int
	PageSize int
}

// Skip is the number of rows before the requested page.
func (s Spec) Skip() int {
	return (s.Page - 1) * s.PageSize
}

// Filters returns the non-sort clauses.
func (s Spec) Filters() []Clause {
	out := make([]Clause, 0, len(s.Clauses))
	for _, c := range s.Clauses {
		if _, ok := c.(SortBy); !ok {
			out = append(out, c)
		}
	}
	return out
}

// Sorts returns the sort clauses in priority order.
func (s Spec) Sorts() []SortBy {
	var out []SortBy
	for _, c := range s.Clauses {
		if sb, ok := c.(SortBy); ok {
			out = append(out, sb)
		}
	}
	return out
}

// ListParams are the raw, optional inputs of a list endpoint.
type ListParams struct {
	Query    string
	Filter   string
	Page     int
	PageSize int
}

func window(p ListParams) (int, int) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

func search(p ListParams) Clause {
	term := strings.TrimSpace(p.Query)
	if term == "" {
		return NoFilter{}
	}
	return TextSearch{Term: term}
}

// ForQuestions composes a question listing. Filters: newest (default),
// unanswered, popular.
func ForQuestions(p ListParams) Spec {
	page, size := window(p)
	clauses := []Clause{search(p)}

	switch strings.ToLower(p.Filter) {
	case "unanswered":
		clauses = append(clauses, Unanswered{}, SortBy{FieldCreatedAt, Descending})
	case "popular":
		clauses = append(clauses, SortBy{FieldUpvotes, Descending}, SortBy{FieldCreatedAt, Descending})
	default:
		clauses = append(clauses, SortBy{FieldCreatedAt, Descending})
	}
	return Spec{Clauses: clauses, Page: page, PageSize: size}
}

// ForTaggedQuestions is ForQuestions restricted to one tag.
func ForTaggedQuestions(tagID uuid.UUID, p ListParams) Spec {
	spec := ForQuestions(p)
	spec.Clauses = append([]Clause{HasTag{TagID: tagID}}, spec.Clauses...)
	return spec
}

// ForTags composes a tag listing. Filters: popular (default), recent, name, oldest.
func ForTags(p ListParams) Spec {
	page, size := window(p)
	clauses := []Clause{search(p)}

	switch strings.ToLower(p.Filter) {
	case "recent":
		clauses = append(clauses, SortBy{FieldCreatedAt, Descending})
	case "name":
		clauses = append(clauses, SortBy{FieldName, Ascending})
	case "oldest":
		clauses = append(clauses, SortBy{FieldCreatedAt, Ascending})
	default:
		clauses = append(clauses, SortBy{FieldUsageCount, Descending}, SortBy{FieldName, Ascending})
	}
	return Spec{Clauses: clauses, Page: page, PageSize: size}
}

// ForAnswers composes an answer listing. Sorts: latest (default), oldest, popular.
func ForAnswers(p ListParams) Spec {
	page, size := window(p)
	var clauses []Clause

	switch strings.ToLower(p.Filter) {
	case "oldest":
		clauses = []Clause{SortBy{FieldCreatedAt, Ascending}}
	case "popular":
		clauses = []Clause{SortBy{FieldUpvotes, Descending}, SortBy{FieldCreatedAt, Descending}}
	default:
		clauses = []Clause{SortBy{FieldCreatedAt, Descending}}
	}
	return Spec{Clauses: append([]Clause{NoFilter{}}, clauses...), Page: page, PageSize: size}
}

// Page is one window of results plus whether more follow.
type Page[T any] struct {
	Items  []T  `json:"items"`
	IsNext bool `json:"isNext"`
	Total  int  `json:"total"`
}
