package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Tag is a shared label. NameKey is the case-folded form of Name and is the
// only field used for equality; Name keeps the casing of the first writer.
type Tag struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	NameKey    string    `json:"-"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (t *Tag) Clone() *Tag {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// TagQuestion links one tag to one question. A link exists exactly when the
// question's Tags list contains the tag.
type TagQuestion struct {
	ID         uuid.UUID `json:"id"`
	TagID      uuid.UUID `json:"tagId"`
	QuestionID uuid.UUID `json:"questionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TagKey normalizes a tag name for comparison and storage of the unique key.
// cases.Caser is stateful, so a fresh one is built per call.
func TagKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
