package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"devoverflow/internal/config"
	"devoverflow/internal/database"
	"devoverflow/internal/database/memstore"
	"devoverflow/internal/middleware"
	"devoverflow/internal/utils"
	"devoverflow/internal/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func newService(store database.Store) (*Service, *middleware.JWTManager) {
	jwt := middleware.NewJWTManager(&config.AuthConfig{JWTSecret: "test", TokenTTL: time.Hour})
	s := NewService(store, jwt, utils.DefaultRetryPolicy(), nil)
	s.link.InitialInterval = time.Millisecond
	return s, jwt
}

func registration() validation.Registration {
	return validation.Registration{
		Credentials: validation.Credentials{Email: "Ada@Example.com", Password: "correct horse"},
		Name:        "Ada Lovelace",
		Username:    "ada",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, jwt := newService(memstore.New())

	user, err := s.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.HashedPassword)

	resp, err := s.Login(ctx, validation.Credentials{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), resp.UserID)

	claims, err := jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(memstore.New())

	_, err := s.Register(ctx, registration())
	require.NoError(t, err)

	again := registration()
	again.Username = "ada2"
	_, err = s.Register(ctx, again)
	assert.True(t, utils.IsErrorCode(err, utils.ErrConflict))
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newService(memstore.New())
	in := registration()
	in.Credentials.Email = "not-an-email"

	_, err := s.Register(context.Background(), in)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "email")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(memstore.New())
	_, err := s.Register(ctx, registration())
	require.NoError(t, err)

	_, err = s.Login(ctx, validation.Credentials{Email: "ada@example.com", Password: "wrong password"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))

	_, err = s.Login(ctx, validation.Credentials{Email: "nobody@example.com", Password: "whatever1"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthorized))
}

func profile() validation.OAuthProfile {
	return validation.OAuthProfile{
		Provider:          "github",
		ProviderAccountID: "12345",
		Email:             "grace@example.com",
		Name:              "Grace Hopper",
		Username:          "grace",
	}
}

func TestOAuthCreatesThenReusesUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s, _ := newService(store)

	first, err := s.SignInWithOAuth(ctx, profile())
	require.NoError(t, err)
	second, err := s.SignInWithOAuth(ctx, profile())
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)

	n, err := store.Snapshot().Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOAuthLinksExistingEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(memstore.New())

	reg := registration()
	user, err := s.Register(ctx, reg)
	require.NoError(t, err)

	p := profile()
	p.Email = "ADA@example.com"
	resp, err := s.SignInWithOAuth(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), resp.UserID)
}

// flakyStore fails the first transactions with a transient error.
type flakyStore struct {
	database.Store
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, u database.Unit) error) error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return utils.NewTransientError("connection reset", nil)
	}
	return f.Store.WithTransaction(ctx, fn)
}

func TestOAuthLinkingRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{Store: memstore.New()}
	store.failures.Store(2)
	s, _ := newService(store)

	_, err := s.SignInWithOAuth(context.Background(), profile())
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.calls.Load())
}

func TestOAuthLinkingGivesUpAfterMaxTries(t *testing.T) {
	store := &flakyStore{Store: memstore.New()}
	store.failures.Store(10)
	s, _ := newService(store)

	_, err := s.SignInWithOAuth(context.Background(), profile())
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
	assert.Equal(t, int32(3), store.calls.Load())
}

func TestOAuthLinkingDoesNotRetryValidation(t *testing.T) {
	store := &flakyStore{Store: memstore.New()}
	s, _ := newService(store)

	p := profile()
	p.Provider = "myspace"
	_, err := s.SignInWithOAuth(context.Background(), p)
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidation))
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(memstore.New())
	user, err := s.Register(ctx, registration())
	require.NoError(t, err)

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, got.Username)

	_, err = s.GetUser(ctx, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestUsernameFor(t *testing.T) {
	name := usernameFor(validation.OAuthProfile{Email: "Some Body@example.com"})
	assert.Regexp(t, `^somebody-[0-9a-f]{6}$`, name)
}
