package database

import (
	"context"

	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

// Store is a document store with multi-document transactions.
type Store interface {
	// WithTransaction runs fn inside one transaction. The transaction commits
	// when fn returns nil and aborts otherwise. fn is called exactly once.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
	// Snapshot returns a non-transactional unit for display reads. Values read
	// through it must not drive writes without being re-read in a transaction.
	Snapshot() Unit
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// Unit is the unit of work threaded through every core operation.
type Unit interface {
	Tags() TagRepository
	Links() LinkRepository
	Questions() QuestionRepository
	Answers() AnswerRepository
	Votes() VoteRepository
	Users() UserRepository
	Accounts() AccountRepository
	Collections() CollectionRepository
}

type TagRepository interface {
	// UpsertIncrement atomically creates the tag keyed by TagKey(name) with a
	// count of one, or increments the existing tag. The stored display name is
	// never overwritten.
	UpsertIncrement(ctx context.Context, name string) (*models.Tag, error)
	// Increment adds delta to the usage count and returns the updated tag.
	Increment(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	// GetMany returns the tags in the order of ids, skipping missing ones.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error)
	List(ctx context.Context, spec query.Spec) ([]*models.Tag, int, error)
	All(ctx context.Context) ([]*models.Tag, error)
}

type LinkRepository interface {
	InsertMany(ctx context.Context, links []*models.TagQuestion) error
	Delete(ctx context.Context, tagID, questionID uuid.UUID) error
	All(ctx context.Context) ([]*models.TagQuestion, error)
}

// VotableRepository adjusts the denormalized vote counters of a target.
type VotableRepository interface {
	AdjustVotes(ctx context.Context, id uuid.UUID, upDelta, downDelta int) (*models.Votable, error)
}

type QuestionRepository interface {
	VotableRepository
	Insert(ctx context.Context, q *models.Question) error
	Get(ctx context.Context, id uuid.UUID) (*models.Question, error)
	// Update persists title, content, tags and updatedAt.
	Update(ctx context.Context, q *models.Question) error
	PushTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) error
	IncrementAnswers(ctx context.Context, id uuid.UUID, delta int) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, spec query.Spec) ([]*models.Question, int, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Question, error)
	Count(ctx context.Context) (int, error)
	All(ctx context.Context) ([]*models.Question, error)
}

type AnswerRepository interface {
	VotableRepository
	Insert(ctx context.Context, a *models.Answer) error
	Get(ctx context.Context, id uuid.UUID) (*models.Answer, error)
	ListForQuestion(ctx context.Context, questionID uuid.UUID, spec query.Spec) ([]*models.Answer, int, error)
	All(ctx context.Context) ([]*models.Answer, error)
}

type VoteRepository interface {
	// Find returns nil without error when the user has no vote on the target.
	Find(ctx context.Context, authorID, targetID uuid.UUID, targetType models.TargetType) (*models.Vote, error)
	Insert(ctx context.Context, v *models.Vote) error
	UpdateType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error
	Delete(ctx context.Context, id uuid.UUID) error
	All(ctx context.Context) ([]*models.Vote, error)
}

type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

type AccountRepository interface {
	// Find returns nil without error when no account matches.
	Find(ctx context.Context, provider, providerAccountID string) (*models.Account, error)
	Insert(ctx context.Context, a *models.Account) error
}

type CollectionRepository interface {
	// Find returns nil without error when the question is not saved.
	Find(ctx context.Context, authorID, questionID uuid.UUID) (*models.Collection, error)
	Insert(ctx context.Context, c *models.Collection) error
	Delete(ctx context.Context, id uuid.UUID) error
	// QuestionIDs lists saved question ids, newest save first.
	QuestionIDs(ctx context.Context, authorID uuid.UUID, spec query.Spec) ([]uuid.UUID, int, error)
}

// VotableFor selects the counter repository for a target type.
func VotableFor(u Unit, targetType models.TargetType) (VotableRepository, error) {
	switch targetType {
	case models.QuestionTarget:
		return u.Questions(), nil
	case models.AnswerTarget:
		return u.Answers(), nil
	default:
		return nil, utils.NewValidationError("unknown target type", map[string]string{
			"targetType": "must be one of: question answer",
		})
	}
}
