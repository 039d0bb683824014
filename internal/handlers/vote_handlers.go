package handlers

import (
	"net/http"

	"devoverflow/internal/engine"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/middleware"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"
	"devoverflow/internal/votes"

	"github.com/google/uuid"
)

// HandleCastVote applies one vote action for the signed-in user.
func (s *Server) HandleCastVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req votes.CastVoteInput
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		req.UserID = middleware.UserID(r.Context())

		outcome, err := engine.Request[*votes.Outcome](s.Engine, engine.VotePool, &actors.CastVoteMsg{Input: req})
		s.respond(w, r, http.StatusOK, outcome, err)
	}
}

// HandleVoteStatus reports the caller's vote on a target. Anonymous callers
// always get an empty status.
func (s *Server) HandleVoteStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		targetID, err := uuid.Parse(q.Get("targetId"))
		if err != nil {
			s.respond(w, r, 0, nil, utils.NewValidationError("invalid id", map[string]string{"targetId": "must be a UUID"}))
			return
		}

		status, err := engine.Request[*votes.Status](s.Engine, engine.VotePool, &actors.HasVotedMsg{
			TargetID:   targetID,
			TargetType: models.TargetType(q.Get("targetType")),
			UserID:     middleware.UserID(r.Context()),
		})
		s.respond(w, r, http.StatusOK, status, err)
	}
}
