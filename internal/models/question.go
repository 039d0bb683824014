package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is the root document of a thread. Tags holds tag ids in the order
// they were attached; it must agree with the question's tag links.
type Question struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	AuthorID  uuid.UUID   `json:"authorId"`
	Tags      []uuid.UUID `json:"tags"`
	Answers   int         `json:"answers"`
	Views     int         `json:"views"`
	Upvotes   int         `json:"upvotes"`
	Downvotes int         `json:"downvotes"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate the tag list freely.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Tags = append([]uuid.UUID(nil), q.Tags...)
	return &c
}

// HasTag reports whether the tag id is attached to the question.
func (q *Question) HasTag(tagID uuid.UUID) bool {
	for _, id := range q.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// QuestionView is a question joined with its tags and author for display.
type QuestionView struct {
	*Question
	TagList []*Tag `json:"tagList"`
	Author  *User  `json:"author,omitempty"`
}
