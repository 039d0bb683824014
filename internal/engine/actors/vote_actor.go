package actors

import (
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/votes"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

type (
	CastVoteMsg struct {
		Deadline
		Input votes.CastVoteInput
	}

	HasVotedMsg struct {
		TargetID   uuid.UUID
		TargetType models.TargetType
		UserID     uuid.UUID
	}
)

// VoteActor runs vote transitions. Every transition is its own transaction,
// so any number of vote actors may run side by side.
type VoteActor struct {
	ledger *votes.Ledger
	deps   Deps
}

func NewVoteActor(ledger *votes.Ledger, deps Deps) actor.Actor {
	return &VoteActor{ledger: ledger, deps: deps}
}

func (a *VoteActor) Receive(context actor.Context) {
	if a.deps.lifecycle("vote", context.Message()) || a.deps.expired(context, "vote") {
		return
	}

	start := time.Now()
	ctx, cancel := a.deps.operation(context.Message())
	defer cancel()

	switch msg := context.Message().(type) {
	case *CastVoteMsg:
		result, err := a.ledger.CastVote(ctx, msg.Input)
		a.deps.respond(context, "cast_vote", start, result, err)
	case *HasVotedMsg:
		status, err := a.ledger.HasVoted(ctx, msg.TargetID, msg.TargetType, msg.UserID)
		a.deps.respond(context, "has_voted", start, &status, err)
	default:
		a.deps.unknown(context, "vote")
	}
}
