package validation

import (
	"testing"

	"devoverflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password,omitempty" validate:"required,min=8"`
	Tags     []string `json:"tags" validate:"max=2"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := New().Validate(signup{Email: "nope", Password: "short", Tags: []string{"a", "b", "c"}})
	require.Error(t, err)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrValidation, appErr.Code)
	assert.Equal(t, "must be a valid email address", appErr.Details["email"])
	assert.Equal(t, "must be at least 8 characters", appErr.Details["password"])
	assert.Equal(t, "must not exceed 2 items", appErr.Details["tags"])
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, Validate(signup{Email: "ada@example.com", Password: "long enough"}))
}
