package actors

import (
	stdctx "context"
	"time"

	"devoverflow/internal/auth"
	"devoverflow/internal/validation"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for account operations
type (
	RegisterUserMsg struct {
		Deadline
		Input validation.Registration
	}

	LoginMsg struct {
		Input validation.Credentials
	}

	OAuthSignInMsg struct {
		Profile validation.OAuthProfile
	}

	GetUserProfileMsg struct {
		UserID uuid.UUID
	}
)

// UserActor handles registration, sign-in and profile reads.
type UserActor struct {
	auth *auth.Service
	deps Deps
}

func NewUserActor(svc *auth.Service, deps Deps) actor.Actor {
	return &UserActor{auth: svc, deps: deps}
}

func (a *UserActor) Receive(context actor.Context) {
	if a.deps.lifecycle("user", context.Message()) || a.deps.expired(context, "user") {
		return
	}

	start := time.Now()
	ctx, cancel := a.deps.operation(context.Message())
	defer cancel()

	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		result, err := a.auth.Register(ctx, msg.Input)
		a.deps.respond(context, "register_user", start, result, err)

	case *LoginMsg:
		result, err := a.auth.Login(ctx, msg.Input)
		a.deps.respond(context, "login", start, result, err)

	case *OAuthSignInMsg:
		// Linking is bounded by its own retry policy, not the storage timeout.
		result, err := a.auth.SignInWithOAuth(stdctx.Background(), msg.Profile)
		a.deps.respond(context, "oauth_sign_in", start, result, err)

	case *GetUserProfileMsg:
		result, err := a.auth.GetUser(ctx, msg.UserID)
		a.deps.respond(context, "get_user", start, result, err)

	default:
		a.deps.unknown(context, "user")
	}
}
