// Package audit recomputes the denormalized counters by full scan and
// reports where stored values drifted. It is meant for the admin CLI and for
// tests, never for request handling.
package audit

import (
	"context"
	"fmt"
	"sort"

	"devoverflow/internal/database"
	"devoverflow/internal/models"

	"github.com/google/uuid"
)

// Drift kinds.
const (
	TagCount      = "tag_usage_count"
	OrphanTag     = "orphan_tag"
	DanglingLink  = "dangling_link"
	QuestionTags  = "question_tags"
	DuplicateVote = "duplicate_vote"
	UpvoteCount   = "upvote_count"
	DownvoteCount = "downvote_count"
	AnswerCount   = "answer_count"
)

type Drift struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Stored int       `json:"stored"`
	Actual int       `json:"actual"`
}

func (d Drift) String() string {
	return fmt.Sprintf("%s %s: stored=%d actual=%d", d.Kind, d.ID, d.Stored, d.Actual)
}

type Report struct {
	Tags      int     `json:"tags"`
	Links     int     `json:"links"`
	Questions int     `json:"questions"`
	Answers   int     `json:"answers"`
	Votes     int     `json:"votes"`
	Drift     []Drift `json:"drift"`
}

func (r *Report) OK() bool {
	return len(r.Drift) == 0
}

func (r *Report) add(kind string, id uuid.UUID, stored, actual int) {
	r.Drift = append(r.Drift, Drift{Kind: kind, ID: id, Stored: stored, Actual: actual})
}

type voteTally struct{ up, down int }

type voteIdentity struct {
	author, target uuid.UUID
	targetType     models.TargetType
}

// Check scans every collection through u. Pass a transactional unit for a
// consistent picture; a snapshot unit may report drift from in-flight writes.
func Check(ctx context.Context, u database.Unit) (*Report, error) {
	tags, err := u.Tags().All(ctx)
	if err != nil {
		return nil, err
	}
	links, err := u.Links().All(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := u.Questions().All(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := u.Answers().All(ctx)
	if err != nil {
		return nil, err
	}
	votes, err := u.Votes().All(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{Tags: len(tags), Links: len(links), Questions: len(questions), Answers: len(answers), Votes: len(votes)}

	linksPerTag := make(map[uuid.UUID]int)
	linksPerQuestion := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, l := range links {
		linksPerTag[l.TagID]++
		if linksPerQuestion[l.QuestionID] == nil {
			linksPerQuestion[l.QuestionID] = make(map[uuid.UUID]bool)
		}
		linksPerQuestion[l.QuestionID][l.TagID] = true
	}

	known := make(map[uuid.UUID]bool, len(tags))
	for _, t := range tags {
		known[t.ID] = true
		if t.UsageCount <= 0 {
			r.add(OrphanTag, t.ID, t.UsageCount, linksPerTag[t.ID])
		}
		if t.UsageCount != linksPerTag[t.ID] {
			r.add(TagCount, t.ID, t.UsageCount, linksPerTag[t.ID])
		}
	}
	for id, n := range linksPerTag {
		if !known[id] {
			r.add(DanglingLink, id, 0, n)
		}
	}

	answersPerQuestion := make(map[uuid.UUID]int)
	for _, a := range answers {
		answersPerQuestion[a.QuestionID]++
	}

	tallies := make(map[uuid.UUID]*voteTally)
	seen := make(map[voteIdentity]int)
	for _, v := range votes {
		seen[voteIdentity{v.AuthorID, v.TargetID, v.TargetType}]++
		t := tallies[v.TargetID]
		if t == nil {
			t = &voteTally{}
			tallies[v.TargetID] = t
		}
		switch v.VoteType {
		case models.Upvote:
			t.up++
		case models.Downvote:
			t.down++
		}
	}
	for id, n := range seen {
		if n > 1 {
			r.add(DuplicateVote, id.target, 1, n)
		}
	}

	for _, q := range questions {
		linked := linksPerQuestion[q.ID]
		listed := make(map[uuid.UUID]bool, len(q.Tags))
		for _, id := range q.Tags {
			listed[id] = true
		}
		if !sameSet(listed, linked) || len(listed) != len(q.Tags) {
			r.add(QuestionTags, q.ID, len(q.Tags), len(linked))
		}
		if q.Answers != answersPerQuestion[q.ID] {
			r.add(AnswerCount, q.ID, q.Answers, answersPerQuestion[q.ID])
		}
		r.checkVotes(q.ID, q.Upvotes, q.Downvotes, tallies[q.ID])
	}
	for _, a := range answers {
		r.checkVotes(a.ID, a.Upvotes, a.Downvotes, tallies[a.ID])
	}

	sort.Slice(r.Drift, func(i, j int) bool {
		if r.Drift[i].Kind != r.Drift[j].Kind {
			return r.Drift[i].Kind < r.Drift[j].Kind
		}
		return r.Drift[i].ID.String() < r.Drift[j].ID.String()
	})
	return r, nil
}

func (r *Report) checkVotes(id uuid.UUID, up, down int, t *voteTally) {
	if t == nil {
		t = &voteTally{}
	}
	if up != t.up {
		r.add(UpvoteCount, id, up, t.up)
	}
	if down != t.down {
		r.add(DownvoteCount, id, down, t.down)
	}
}

func sameSet(a, b map[uuid.UUID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
