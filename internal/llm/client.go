// Package llm is a minimal OpenAI-compatible chat completions client.
package llm

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

	"github.com/lemonbanan4/ai-web-research/internal/backoff"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	cbackoff "github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	maxErrorRunes = 300
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client completes a conversation and returns the assistant text.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error %d: %s", e.StatusCode, e.Message)
}

// ErrEmptyCompletion is returned when the provider answers without content.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Retrier    backoff.Retrier
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type openaiClient struct {
	apiKey     string
	baseURL    string
	model      string
	retrier    backoff.Retrier
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient returns nil when no API key is configured so callers can
// take the disabled path.
func NewOpenAIClient(cfg Config) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &openaiClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		retrier:    cfg.Retrier,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

func (c *openaiClient) Model() string { return c.model }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *openaiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("llm retry", "model", c.model, "err", err, "wait", wait)
	}
	return backoff.Retry(ctx, c.retrier, func() (string, error) {
		return c.do(ctx, body)
	}, notify)
}

// do performs one request. Errors that should not be retried are wrapped
// with cbackoff.Permanent.
func (c *openaiClient) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", cbackoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", cbackoff.Permanent(err)
		}
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", apiErr
		}
		return "", cbackoff.Permanent(apiErr)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", cbackoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", cbackoff.Permanent(ErrEmptyCompletion)
	}
	return parsed.Choices[0].Message.Content, nil
}

func errorMessage(raw []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return domain.TruncateRunes(strings.TrimSpace(string(raw)), maxErrorRunes)
}
