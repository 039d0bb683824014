// Package auth registers users, checks credentials and links identities
// asserted by external sign-in providers to local users.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"devoverflow/internal/api"
	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Overridden by tests; bcrypt at the default cost dominates their run time.
var passwordCost = bcrypt.DefaultCost

// SetPasswordCost changes the bcrypt cost for new hashes and returns a func
// that restores the previous cost. Tests use it to keep hashing fast.
func SetPasswordCost(cost int) (restore func()) {
	prev := passwordCost
	passwordCost = cost
	return func() { passwordCost = prev }
}

// TokenIssuer signs session tokens for a user.
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID) (string, error)
}

type Service struct {
	store  database.Store
	tokens TokenIssuer
	reads  utils.RetryPolicy
	link   utils.RetryPolicy
	logger *slog.Logger
}

// OAuthLinkPolicy bounds account linking: three attempts, each capped at five
// seconds. Linking is a find-or-create keyed by the provider account, so an
// attempt whose commit was not acknowledged is safe to repeat.
func OAuthLinkPolicy() utils.RetryPolicy {
	return utils.RetryPolicy{
		MaxTries:        3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		AttemptTimeout:  5 * time.Second,
	}
}

func NewService(store database.Store, tokens TokenIssuer, reads utils.RetryPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		tokens: tokens,
		reads:  reads,
		link:   OAuthLinkPolicy(),
		logger: logger,
	}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(bytes), err
}

// Register creates a user with a password login.
func (s *Service) Register(ctx context.Context, in validation.Registration) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to hash password", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(in.Name),
		Username:       in.Username,
		Email:          strings.ToLower(in.Email),
		HashedPassword: hashed,
		CreatedAt:      time.Now().UTC(),
	}
	err = s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		return u.Users().Insert(ctx, user)
	})
	if utils.IsErrorCode(err, utils.ErrConflict) {
		return nil, utils.NewConflictError("email or username already registered", err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, in validation.Credentials) (*api.LoginResponse, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	user, err := utils.Retry(ctx, s.reads, "users.getByEmail", func(ctx context.Context) (*models.User, error) {
		return s.store.Snapshot().Users().GetByEmail(ctx, in.Email)
	})
	if utils.IsErrorCode(err, utils.ErrNotFound) {
		return nil, utils.NewUnauthorizedError("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.HashedPassword == "" {
		return nil, utils.NewUnauthorizedError("this account signs in with an external provider")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(in.Password)); err != nil {
		s.logger.Debug("login rejected", "user_id", user.ID)
		return nil, utils.NewUnauthorizedError("invalid credentials")
	}

	return s.issue(user)
}

// SignInWithOAuth finds the user linked to the provider account, or links the
// account to the user with the same email, creating that user if needed.
func (s *Service) SignInWithOAuth(ctx context.Context, in validation.OAuthProfile) (*api.LoginResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	user, err := utils.Retry(ctx, s.link, "auth.linkAccount", func(ctx context.Context) (*models.User, error) {
		return s.linkAccount(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *Service) linkAccount(ctx context.Context, in validation.OAuthProfile) (*models.User, error) {
	var user *models.User
	err := s.store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		account, err := u.Accounts().Find(ctx, in.Provider, in.ProviderAccountID)
		if err != nil {
			return err
		}
		if account != nil {
			user, err = u.Users().Get(ctx, account.UserID)
			return err
		}

		user, err = u.Users().GetByEmail(ctx, in.Email)
		switch {
		case utils.IsErrorCode(err, utils.ErrNotFound):
			user = &models.User{
				ID:        uuid.New(),
				Name:      in.Name,
				Username:  usernameFor(in),
				Email:     in.Email,
				Image:     in.Image,
				CreatedAt: time.Now().UTC(),
			}
			if err := u.Users().Insert(ctx, user); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		return u.Accounts().Insert(ctx, &models.Account{
			ID:                uuid.New(),
			UserID:            user.ID,
			Provider:          in.Provider,
			ProviderAccountID: in.ProviderAccountID,
			CreatedAt:         time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("oauth sign-in", "provider", in.Provider, "user_id", user.ID)
	return user, nil
}

// usernameFor picks a username for a new provider user. The random suffix
// means a retry after a username collision tries a different name.
func usernameFor(in validation.OAuthProfile) string {
	base := in.Username
	if base == "" {
		base, _, _ = strings.Cut(in.Email, "@")
	}
	base = strings.ToLower(strings.Join(strings.Fields(base), ""))
	if len(base) > 20 {
		base = base[:20]
	}
	return base + "-" + uuid.NewString()[:6]
}

func (s *Service) issue(user *models.User) (*api.LoginResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInternal, "failed to issue token", err)
	}
	return &api.LoginResponse{Token: token, UserID: user.ID.String()}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return utils.Retry(ctx, s.reads, "users.get", func(ctx context.Context) (*models.User, error) {
		return s.store.Snapshot().Users().Get(ctx, id)
	})
}
