package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"devoverflow/internal/utils"

	"golang.org/x/time/rate"
)

// envelope is the uniform response body of the engine's HTTP API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
}

// Client calls the engine's HTTP API. Failures come back as *utils.AppError
// carrying the server's error kind, so callers can tell a lost uniqueness
// race from a real failure.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	reads     utils.RetryPolicy
	onRequest func(start time.Time, err error)
}

func NewClient(baseURL string, requestsPerSecond float64, onRequest func(start time.Time, err error)) *Client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond/10))
	}
	if onRequest == nil {
		onRequest = func(time.Time, error) {}
	}
	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(limit, burst),
		reads:     utils.DefaultRetryPolicy(),
		onRequest: onRequest,
	}
}

// Get is retried on transient failures and conflicts. Writes never are.
func (c *Client) Get(ctx context.Context, path, token string, out any) error {
	_, err := utils.Retry(ctx, c.reads, "GET "+path, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Do(ctx, http.MethodGet, path, token, nil, out)
	})
	return err
}

func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return utils.NewAppError(utils.ErrTransient, "rate limiter", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	err = c.send(req, out)
	c.onRequest(start, err)
	return err
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrTransient, "request failed", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return utils.NewAppError(utils.ErrInternal, fmt.Sprintf("unreadable response (status %d)", resp.StatusCode), err)
	}
	if !env.Success {
		if env.Error == nil {
			return utils.NewAppError(utils.ErrInternal, fmt.Sprintf("request failed with status: %d", resp.StatusCode), nil)
		}
		return &utils.AppError{Code: env.Error.Kind, Message: env.Error.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
