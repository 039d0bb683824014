package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devoverflow/internal/config"
	"devoverflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.CompleteFunc(ctx, system, prompt)
}

func testConfig() *config.AIConfig {
	cfg := config.DefaultAIConfig()
	cfg.Timeout = time.Second
	return cfg
}

func TestGenerateIncludesDraft(t *testing.T) {
	var seen string
	d := NewDrafter(&stubCompleter{CompleteFunc: func(_ context.Context, _, prompt string) (string, error) {
		seen = prompt
		return "  ## Answer\n", nil
	}}, testConfig(), nil)

	text, err := d.Generate(context.Background(), DraftRequest{Question: "Why nil maps?", Content: "details", UserDraft: "my try"})
	require.NoError(t, err)
	assert.Equal(t, "## Answer", text)
	assert.Contains(t, seen, "Why nil maps?")
	assert.Contains(t, seen, "my try")
}

func TestGenerateFailureIsTransient(t *testing.T) {
	d := NewDrafter(&stubCompleter{CompleteFunc: func(context.Context, string, string) (string, error) {
		return "", errors.New("upstream 500")
	}}, testConfig(), nil)

	_, err := d.Generate(context.Background(), DraftRequest{Question: "q"})
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrTransient, appErr.Code)
	assert.Equal(t, tryAgain, appErr.Message)
}

func TestGenerateTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	d := NewDrafter(&stubCompleter{CompleteFunc: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}, cfg, nil)

	_, err := d.Generate(context.Background(), DraftRequest{Question: "q"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMin = 1
	d := NewDrafter(&stubCompleter{CompleteFunc: func(context.Context, string, string) (string, error) {
		return "ok", nil
	}}, cfg, nil)

	_, err := d.Generate(context.Background(), DraftRequest{Question: "q"})
	require.NoError(t, err)
	_, err = d.Generate(context.Background(), DraftRequest{Question: "q"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
}

func TestGenerateNotConfigured(t *testing.T) {
	d := NewDrafter(nil, testConfig(), nil)
	_, err := d.Generate(context.Background(), DraftRequest{Question: "q"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrTransient))
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Len(t, body.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"drafted"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	client, err := NewOpenAIClient(cfg)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "drafted", text)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(testConfig())
	assert.Error(t, err)
}
