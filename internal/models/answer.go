package models

import (
	"time"

	"github.com/google/uuid"
)

type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"questionId"`
	AuthorID   uuid.UUID `json:"authorId"`
	Content    string    `json:"content"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (a *Answer) Clone() *Answer {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
