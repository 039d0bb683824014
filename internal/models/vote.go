package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetType represents the type of content being voted on.
type TargetType string

const (
	QuestionTarget TargetType = "question"
	AnswerTarget   TargetType = "answer"
)

func (t TargetType) Valid() bool {
	return t == QuestionTarget || t == AnswerTarget
}

// VoteType represents the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Vote is the single vote a user holds on a target.
type Vote struct {
	ID         uuid.UUID  `json:"id"`
	AuthorID   uuid.UUID  `json:"authorId"`
	TargetID   uuid.UUID  `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	VoteType   VoteType   `json:"voteType"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Votable is the counter pair carried by questions and answers.
type Votable struct {
	ID        uuid.UUID
	Upvotes   int
	Downvotes int
}
