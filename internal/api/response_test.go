package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"devoverflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFail_Envelope(t *testing.T) {
	body, status := Fail(utils.NewValidationError("validation failed", map[string]string{"title": "too short"}))
	assert.Equal(t, http.StatusBadRequest, status)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"message": "validation failed", "kind": "VALIDATION_ERROR", "details": {"title": "too short"}}
	}`, string(raw))
}

func TestFail_HidesInternalDetail(t *testing.T) {
	body, status := Fail(errors.New("mongo: E11000 on collection users"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error.Message)
	assert.Equal(t, utils.ErrInternal, body.Error.Kind)
}

func TestOK_Envelope(t *testing.T) {
	raw, err := json.Marshal(OK(map[string]int{"upvotes": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "data": {"upvotes": 1}}`, string(raw))
}
