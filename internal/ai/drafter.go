// Package ai drafts answers through an external text-completion service.
// Drafts are a convenience: failures surface as a transient "try again"
// error and never touch stored data.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"devoverflow/internal/config"
	"devoverflow/internal/utils"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const tryAgain = "Failed to generate an answer, please try again"

const systemPrompt = "You write answers for a developer Q&A site. Reply in markdown, " +
	"using headings, lists and fenced code blocks where they help. Label code blocks " +
	"with short lowercase language ids such as js, ts, py, go, html or css."

// Completer is an opaque text-completion call.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIClient completes prompts with the chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg *config.AIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// DraftRequest is the question being answered plus the user's own attempt.
type DraftRequest struct {
	Question  string `json:"question"`
	Content   string `json:"content"`
	UserDraft string `json:"userAnswer,omitempty"`
}

// Drafter bounds completion calls with a timeout and a process-wide rate
// limit. A nil completer means drafting is not configured.
type Drafter struct {
	completer Completer
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

func NewDrafter(completer Completer, cfg *config.AIConfig, logger *slog.Logger) *Drafter {
	if logger == nil {
		logger = slog.Default()
	}
	perMin := max(cfg.RequestsPerMin, 1)
	return &Drafter{
		completer: completer,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

func (d *Drafter) Enabled() bool {
	return d != nil && d.completer != nil
}

// Generate returns a markdown answer draft.
func (d *Drafter) Generate(ctx context.Context, req DraftRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", utils.NewValidationError("validation failed", map[string]string{"question": "is required"})
	}
	if !d.Enabled() {
		return "", utils.NewTransientError("answer drafting is unavailable, please try again later", nil)
	}
	if !d.limiter.Allow() {
		return "", utils.NewTransientError("too many draft requests, please try again shortly", nil)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := d.completer.Complete(ctx, systemPrompt, prompt(req))
	if err != nil {
		d.logger.Error("answer draft failed", "elapsed", time.Since(start), utils.ErrAttr(err))
		return "", utils.NewTransientError(tryAgain, err)
	}
	d.logger.Debug("answer draft generated", "elapsed", time.Since(start), "chars", len(text))
	return strings.TrimSpace(text), nil
}

func prompt(req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a markdown answer to this question: %s\n\n", req.Question)
	if req.Content != "" {
		fmt.Fprintf(&b, "Details from the asker:\n%s\n\n", req.Content)
	}
	if req.UserDraft != "" {
		fmt.Fprintf(&b, "Improve on this draft where it is correct and fix it where it is not:\n%s\n", req.UserDraft)
	}
	return b.String()
}
