package handlers

import (
	"net/http"

	"devoverflow/internal/api"
	"devoverflow/internal/engine"
	"devoverflow/internal/engine/actors"
	"devoverflow/internal/models"
	"devoverflow/internal/validation"
)

// HandleRegister handles requests to register a new user
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validation.Registration
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		user, err := engine.Request[*models.User](s.Engine, engine.UserPool, &actors.RegisterUserMsg{Input: req})
		s.respond(w, r, http.StatusCreated, user, err)
	}
}

// HandleLogin handles requests to log in a user
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validation.Credentials
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		login, err := engine.Request[*api.LoginResponse](s.Engine, engine.UserPool, &actors.LoginMsg{Input: req})
		s.respond(w, r, http.StatusOK, login, err)
	}
}

// HandleOAuthSignIn links a provider identity. It sits behind the shared
// secret of the sign-in bridge, which has already verified the identity.
func (s *Server) HandleOAuthSignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validation.OAuthProfile
		if err := decode(w, r, &req); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		login, err := engine.Request[*api.LoginResponse](s.Engine, engine.UserPool, &actors.OAuthSignInMsg{Profile: req})
		s.respond(w, r, http.StatusOK, login, err)
	}
}

func (s *Server) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}

		user, err := engine.Request[*models.User](s.Engine, engine.UserPool, &actors.GetUserProfileMsg{UserID: id})
		s.respond(w, r, http.StatusOK, user, err)
	}
}
