// Package votes records at most one vote per user and target and keeps the
// target's denormalized counters in step with the recorded votes.
package votes

import (
	"context"
	"log/slog"
	"time"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

// State is a user's standing vote on one target.
type State string

const (
	NoVote    State = "none"
	Upvoted   State = "upvoted"
	Downvoted State = "downvoted"
)

func stateOf(v *models.Vote) State {
	switch {
	case v == nil:
		return NoVote
	case v.VoteType == models.Upvote:
		return Upvoted
	default:
		return Downvoted
	}
}

// Transition applies a vote action to the current state. Repeating the
// standing vote removes it; the opposite vote replaces it.
func Transition(current State, action models.VoteType) (next State, upDelta, downDelta int) {
	switch {
	case current == NoVote && action == models.Upvote:
		return Upvoted, 1, 0
	case current == NoVote && action == models.Downvote:
		return Downvoted, 0, 1
	case current == Upvoted && action == models.Upvote:
		return NoVote, -1, 0
	case current == Upvoted && action == models.Downvote:
		return Downvoted, -1, 1
	case current == Downvoted && action == models.Downvote:
		return NoVote, 0, -1
	case current == Downvoted && action == models.Upvote:
		return Upvoted, 1, -1
	}
	return current, 0, 0
}

type CastVoteInput struct {
	TargetID   uuid.UUID         `json:"targetId"`
	TargetType models.TargetType `json:"targetType"`
	VoteType   models.VoteType   `json:"voteType"`
	UserID     uuid.UUID         `json:"-"`
}

// Outcome is the caller's vote and the target's counters after a cast.
type Outcome struct {
	State     State `json:"state"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
}

type Status struct {
	HasUpvoted   bool `json:"hasUpvoted"`
	HasDownvoted bool `json:"hasDownvoted"`
}

type Ledger struct {
	store  database.Store
	retry  utils.RetryPolicy
	logger *slog.Logger
}

func NewLedger(store database.Store, retry utils.RetryPolicy, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, retry: retry, logger: logger}
}

func validate(targetType models.TargetType, voteType *models.VoteType) error {
	details := make(map[string]string)
	if !targetType.Valid() {
		details["targetType"] = "must be one of: question answer"
	}
	if voteType != nil && !voteType.Valid() {
		details["voteType"] = "must be one of: upvote downvote"
	}
	if len(details) > 0 {
		return utils.NewValidationError("validation failed", details)
	}
	return nil
}

// CastVote records the vote and adjusts the target's counters in one
// transaction. It is never retried here: a commit whose acknowledgement was
// lost would otherwise be applied twice.
func (l *Ledger) CastVote(ctx context.Context, in CastVoteInput) (*Outcome, error) {
	if in.UserID == uuid.Nil {
		return nil, utils.NewUnauthorizedError("sign in to vote")
	}
	if err := validate(in.TargetType, &in.VoteType); err != nil {
		return nil, err
	}

	var out *Outcome
	err := l.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		votable, err := database.VotableFor(u, in.TargetType)
		if err != nil {
			return err
		}
		existing, err := u.Votes().Find(ctx, in.UserID, in.TargetID, in.TargetType)
		if err != nil {
			return err
		}

		next, up, down := Transition(stateOf(existing), in.VoteType)
		counters, err := votable.AdjustVotes(ctx, in.TargetID, up, down)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch {
		case existing == nil:
			err = u.Votes().Insert(ctx, &models.Vote{
				ID:         uuid.New(),
				AuthorID:   in.UserID,
				TargetID:   in.TargetID,
				TargetType: in.TargetType,
				VoteType:   in.VoteType,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		case next == NoVote:
			err = u.Votes().Delete(ctx, existing.ID)
		default:
			err = u.Votes().UpdateType(ctx, existing.ID, in.VoteType)
		}
		if err != nil {
			return err
		}

		out = &Outcome{State: next, Upvotes: counters.Upvotes, Downvotes: counters.Downvotes}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("vote cast", "target_id", in.TargetID, "target_type", in.TargetType,
		"user_id", in.UserID, "state", out.State)
	return out, nil
}

// HasVoted reports the user's standing vote on a target. Without a session
// both flags are false.
func (l *Ledger) HasVoted(ctx context.Context, targetID uuid.UUID, targetType models.TargetType, userID uuid.UUID) (Status, error) {
	if userID == uuid.Nil {
		return Status{}, nil
	}
	if err := validate(targetType, nil); err != nil {
		return Status{}, err
	}

	vote, err := utils.Retry(ctx, l.retry, "votes.hasVoted", func(ctx context.Context) (*models.Vote, error) {
		return l.store.Snapshot().Votes().Find(ctx, userID, targetID, targetType)
	})
	if err != nil {
		return Status{}, err
	}

	state := stateOf(vote)
	return Status{HasUpvoted: state == Upvoted, HasDownvoted: state == Downvoted}, nil
}
