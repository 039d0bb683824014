package memstore

import (
	"context"
	"strings"
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

type tagRepo struct{ u *unit }

func (r *tagRepo) UpsertIncrement(ctx context.Context, name string) (*models.Tag, error) {
	var out *models.Tag
	err := r.u.write(ctx, OpTagUpsert, func(st *state) error {
		key := models.TagKey(name)
		if id, ok := st.tagKeys[key]; ok {
			t := st.tags[id]
			t.UsageCount++
			out = t.Clone()
			return nil
		}
		t := &models.Tag{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(name),
			NameKey:    key,
			UsageCount: 1,
			CreatedAt:  time.Now().UTC(),
		}
		st.tags[t.ID] = t
		st.tagKeys[key] = t.ID
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *tagRepo) Increment(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error) {
	var out *models.Tag
	err := r.u.write(ctx, OpTagIncrement, func(st *state) error {
		t, ok := st.tags[id]
		if !ok {
			return utils.NewNotFoundError("tag")
		}
		t.UsageCount += delta
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *tagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.u.write(ctx, OpTagDelete, func(st *state) error {
		t, ok := st.tags[id]
		if !ok {
			return utils.NewNotFoundError("tag")
		}
		delete(st.tagKeys, t.NameKey)
		delete(st.tags, id)
		return nil
	})
}

func (r *tagRepo) Get(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var out *models.Tag
	err := r.u.read(ctx, func(st *state) error {
		t, ok := st.tags[id]
		if !ok {
			return utils.NewNotFoundError("tag")
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *tagRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error) {
	var out []*models.Tag
	err := r.u.read(ctx, func(st *state) error {
		for _, id := range ids {
			if t, ok := st.tags[id]; ok {
				out = append(out, t.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *tagRepo) List(ctx context.Context, spec query.Spec) ([]*models.Tag, int, error) {
	var (
		out   []*models.Tag
		total int
	)
	err := r.u.read(ctx, func(st *state) error {
		var matches []*models.Tag
		for _, t := range st.tags {
			if matchTag(t, spec) {
				matches = append(matches, t.Clone())
			}
		}
		sortTags(matches, spec.Sorts())
		total = len(matches)
		out = pageOf(matches, spec)
		return nil
	})
	return out, total, err
}

func (r *tagRepo) All(ctx context.Context) ([]*models.Tag, error) {
	var out []*models.Tag
	err := r.u.read(ctx, func(st *state) error {
		for _, t := range st.tags {
			out = append(out, t.Clone())
		}
		return nil
	})
	return out, err
}

type linkRepo struct{ u *unit }

func (r *linkRepo) InsertMany(ctx context.Context, links []*models.TagQuestion) error {
	if len(links) == 0 {
		return nil
	}
	return r.u.write(ctx, OpLinkInsert, func(st *state) error {
		seen := make(map[linkKey]bool, len(links))
		for _, l := range links {
			k := linkKey{l.TagID, l.QuestionID}
			if _, exists := st.links[k]; exists || seen[k] {
				return utils.NewConflictError("tag link already exists", nil)
			}
			seen[k] = true
		}
		for _, l := range links {
			c := *l
			st.links[linkKey{l.TagID, l.QuestionID}] = &c
		}
		return nil
	})
}

func (r *linkRepo) Delete(ctx context.Context, tagID, questionID uuid.UUID) error {
	return r.u.write(ctx, OpLinkDelete, func(st *state) error {
		k := linkKey{tagID, questionID}
		if _, ok := st.links[k]; !ok {
			return utils.NewNotFoundError("tag link")
		}
		delete(st.links, k)
		return nil
	})
}

func (r *linkRepo) All(ctx context.Context) ([]*models.TagQuestion, error) {
	var out []*models.TagQuestion
	err := r.u.read(ctx, func(st *state) error {
		for _, l := range st.links {
			c := *l
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

type questionRepo struct{ u *unit }

func (r *questionRepo) Insert(ctx context.Context, q *models.Question) error {
	return r.u.write(ctx, OpQuestionInsert, func(st *state) error {
		if _, exists := st.questions[q.ID]; exists {
			return utils.NewConflictError("question already exists", nil)
		}
		st.questions[q.ID] = q.Clone()
		return nil
	})
}

func (r *questionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var out *models.Question
	err := r.u.read(ctx, func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		out = q.Clone()
		return nil
	})
	return out, err
}

func (r *questionRepo) Update(ctx context.Context, q *models.Question) error {
	return r.u.write(ctx, OpQuestionUpdate, func(st *state) error {
		stored, ok := st.questions[q.ID]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		stored.Title = q.Title
		stored.Content = q.Content
		stored.Tags = append([]uuid.UUID(nil), q.Tags...)
		stored.UpdatedAt = q.UpdatedAt
		return nil
	})
}

func (r *questionRepo) PushTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) error {
	return r.u.write(ctx, OpQuestionPushTags, func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		q.Tags = append(q.Tags, tagIDs...)
		return nil
	})
}

func (r *questionRepo) IncrementAnswers(ctx context.Context, id uuid.UUID, delta int) error {
	return r.u.write(ctx, OpQuestionCounters, func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		q.Answers += delta
		return nil
	})
}

func (r *questionRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.u.write(ctx, OpQuestionCounters, func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		q.Views++
		return nil
	})
}

func (r *questionRepo) AdjustVotes(ctx context.Context, id uuid.UUID, upDelta, downDelta int) (*models.Votable, error) {
	var out *models.Votable
	err := r.u.write(ctx, OpVotesAdjust, func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return utils.NewNotFoundError("question")
		}
		q.Upvotes += upDelta
		q.Downvotes += downDelta
		out = &models.Votable{ID: id, Upvotes: q.Upvotes, Downvotes: q.Downvotes}
		return nil
	})
	return out, err
}

func (r *questionRepo) List(ctx context.Context, spec query.Spec) ([]*models.Question, int, error) {
	var (
		out   []*models.Question
		total int
	)
	err := r.u.read(ctx, func(st *state) error {
		var matches []*models.Question
		for _, q := range st.questions {
			if matchQuestion(q, spec) {
				matches = append(matches, q.Clone())
			}
		}
		sortQuestions(matches, spec.Sorts())
		total = len(matches)
		out = pageOf(matches, spec)
		return nil
	})
	return out, total, err
}

func (r *questionRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Question, error) {
	var out []*models.Question
	err := r.u.read(ctx, func(st *state) error {
		for _, id := range ids {
			if q, ok := st.questions[id]; ok {
				out = append(out, q.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *questionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.u.read(ctx, func(st *state) error {
		n = len(st.questions)
		return nil
	})
	return n, err
}

func (r *questionRepo) All(ctx context.Context) ([]*models.Question, error) {
	var out []*models.Question
	err := r.u.read(ctx, func(st *state) error {
		for _, q := range st.questions {
			out = append(out, q.Clone())
		}
		return nil
	})
	return out, err
}

type answerRepo struct{ u *unit }

func (r *answerRepo) Insert(ctx context.Context, a *models.Answer) error {
	return r.u.write(ctx, OpAnswerInsert, func(st *state) error {
		if _, exists := st.answers[a.ID]; exists {
			return utils.NewConflictError("answer already exists", nil)
		}
		st.answers[a.ID] = a.Clone()
		return nil
	})
}

func (r *answerRepo) Get(ctx context.Context, id uuid.UUID) (*models.Answer, error) {
	var out *models.Answer
	err := r.u.read(ctx, func(st *state) error {
		a, ok := st.answers[id]
		if !ok {
			return utils.NewNotFoundError("answer")
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *answerRepo) ListForQuestion(ctx context.Context, questionID uuid.UUID, spec query.Spec) ([]*models.Answer, int, error) {
	var (
		out   []*models.Answer
		total int
	)
	err := r.u.read(ctx, func(st *state) error {
		var matches []*models.Answer
		for _, a := range st.answers {
			if a.QuestionID == questionID {
				matches = append(matches, a.Clone())
			}
		}
		sortAnswers(matches, spec.Sorts())
		total = len(matches)
		out = pageOf(matches, spec)
		return nil
	})
	return out, total, err
}

func (r *answerRepo) AdjustVotes(ctx context.Context, id uuid.UUID, upDelta, downDelta int) (*models.Votable, error) {
	var out *models.Votable
	err := r.u.write(ctx, OpVotesAdjust, func(st *state) error {
		a, ok := st.answers[id]
		if !ok {
			return utils.NewNotFoundError("answer")
		}
		a.Upvotes += upDelta
		a.Downvotes += downDelta
		out = &models.Votable{ID: id, Upvotes: a.Upvotes, Downvotes: a.Downvotes}
		return nil
	})
	return out, err
}

func (r *answerRepo) All(ctx context.Context) ([]*models.Answer, error) {
	var out []*models.Answer
	err := r.u.read(ctx, func(st *state) error {
		for _, a := range st.answers {
			out = append(out, a.Clone())
		}
		return nil
	})
	return out, err
}

type voteRepo struct{ u *unit }

func (r *voteRepo) Find(ctx context.Context, authorID, targetID uuid.UUID, targetType models.TargetType) (*models.Vote, error) {
	var out *models.Vote
	err := r.u.read(ctx, func(st *state) error {
		if id, ok := st.voteKeys[voteKey{authorID, targetID, targetType}]; ok {
			out = st.votes[id].Clone()
		}
		return nil
	})
	return out, err
}

func (r *voteRepo) Insert(ctx context.Context, v *models.Vote) error {
	return r.u.write(ctx, OpVoteInsert, func(st *state) error {
		k := voteKey{v.AuthorID, v.TargetID, v.TargetType}
		if _, exists := st.voteKeys[k]; exists {
			return utils.NewConflictError("vote already exists", nil)
		}
		st.votes[v.ID] = v.Clone()
		st.voteKeys[k] = v.ID
		return nil
	})
}

func (r *voteRepo) UpdateType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error {
	return r.u.write(ctx, OpVoteUpdate, func(st *state) error {
		v, ok := st.votes[id]
		if !ok {
			return utils.NewNotFoundError("vote")
		}
		v.VoteType = voteType
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *voteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.u.write(ctx, OpVoteDelete, func(st *state) error {
		v, ok := st.votes[id]
		if !ok {
			return utils.NewNotFoundError("vote")
		}
		delete(st.voteKeys, voteKey{v.AuthorID, v.TargetID, v.TargetType})
		delete(st.votes, id)
		return nil
	})
}

func (r *voteRepo) All(ctx context.Context) ([]*models.Vote, error) {
	var out []*models.Vote
	err := r.u.read(ctx, func(st *state) error {
		for _, v := range st.votes {
			out = append(out, v.Clone())
		}
		return nil
	})
	return out, err
}

type userRepo struct{ u *unit }

func (r *userRepo) Insert(ctx context.Context, user *models.User) error {
	return r.u.write(ctx, OpUserInsert, func(st *state) error {
		email := emailKey(user.Email)
		if _, exists := st.emails[email]; exists {
			return utils.NewConflictError("user already exists", nil)
		}
		if _, exists := st.usernames[user.Username]; exists {
			return utils.NewConflictError("user already exists", nil)
		}
		c := user.Clone()
		c.Email = email
		st.users[c.ID] = c
		st.emails[email] = c.ID
		st.usernames[c.Username] = c.ID
		return nil
	})
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.u.read(ctx, func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return utils.NewNotFoundError("user")
		}
		out = user.Clone()
		return nil
	})
	return out, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.u.read(ctx, func(st *state) error {
		id, ok := st.emails[emailKey(email)]
		if !ok {
			return utils.NewNotFoundError("user")
		}
		out = st.users[id].Clone()
		return nil
	})
	return out, err
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.u.read(ctx, func(st *state) error {
		n = len(st.users)
		return nil
	})
	return n, err
}

type accountRepo struct{ u *unit }

func (r *accountRepo) Find(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	var out *models.Account
	err := r.u.read(ctx, func(st *state) error {
		if a, ok := st.accounts[accountKey{provider, providerAccountID}]; ok {
			c := *a
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *accountRepo) Insert(ctx context.Context, a *models.Account) error {
	return r.u.write(ctx, OpAccountInsert, func(st *state) error {
		k := accountKey{a.Provider, a.ProviderAccountID}
		if _, exists := st.accounts[k]; exists {
			return utils.NewConflictError("account already exists", nil)
		}
		c := *a
		st.accounts[k] = &c
		return nil
	})
}

type collectionRepo struct{ u *unit }

func (r *collectionRepo) Find(ctx context.Context, authorID, questionID uuid.UUID) (*models.Collection, error) {
	var out *models.Collection
	err := r.u.read(ctx, func(st *state) error {
		if c, ok := st.collections[collectionKey{authorID, questionID}]; ok {
			cc := *c
			out = &cc
		}
		return nil
	})
	return out, err
}

func (r *collectionRepo) Insert(ctx context.Context, c *models.Collection) error {
	return r.u.write(ctx, OpCollectionInsert, func(st *state) error {
		k := collectionKey{c.AuthorID, c.QuestionID}
		if _, exists := st.collections[k]; exists {
			return utils.NewConflictError("collection already exists", nil)
		}
		cc := *c
		st.collections[k] = &cc
		return nil
	})
}

func (r *collectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.u.write(ctx, OpCollectionDelete, func(st *state) error {
		for k, c := range st.collections {
			if c.ID == id {
				delete(st.collections, k)
				return nil
			}
		}
		return utils.NewNotFoundError("collection")
	})
}

func (r *collectionRepo) QuestionIDs(ctx context.Context, authorID uuid.UUID, spec query.Spec) ([]uuid.UUID, int, error) {
	var (
		out   []uuid.UUID
		total int
	)
	err := r.u.read(ctx, func(st *state) error {
		var saved []*models.Collection
		for _, c := range st.collections {
			if c.AuthorID == authorID {
				saved = append(saved, c)
			}
		}
		sortCollections(saved)
		total = len(saved)
		for _, c := range pageOf(saved, spec) {
			out = append(out, c.QuestionID)
		}
		return nil
	})
	return out, total, err
}
