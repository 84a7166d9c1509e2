// Package completion is a client for OpenAI-compatible chat completion APIs
// such as Groq's.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragchat/internal/domain"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config configures the completion client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single request. Zero keeps the http.Client default.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client sends one chat completion per call. It never retries.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log,
	}, nil
}

// Complete sends a system instruction and user prompt and returns the first
// choice's content. All failures are *Error.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", newError(ErrKindRateLimit, 0, err)
	}

	body := chatRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", newError(ErrKindProvider, 0, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", newError(ErrKindProvider, 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", newError(ErrKindNetwork, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(ErrKindNetwork, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 {
		return "", c.statusError(resp.StatusCode, payload)
	}

	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", newError(ErrKindInvalidResponse, resp.StatusCode, fmt.Errorf("decode completion response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", newError(ErrKindInvalidResponse, resp.StatusCode, errors.New("completion response has no choices"))
	}
	c.log.Debug("completion done",
		"model", out.Model,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"finish_reason", out.Choices[0].FinishReason,
	)
	return out.Choices[0].Message.Content, nil
}

func (c *Client) statusError(status int, payload []byte) error {
	var er errorResponse
	msg := strings.TrimSpace(string(payload))
	code := ""
	if err := json.Unmarshal(payload, &er); err == nil && er.Error.Message != "" {
		msg = er.Error.Message
		code = er.Error.Code
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return newError(kindForStatus(status, code), status, fmt.Errorf("status %d: %s", status, msg))
}

var _ domain.Completer = (*Client)(nil)
