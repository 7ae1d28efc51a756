package llm

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultTimeout = 120 * time.Second

// Backoff between retries. Variables so tests can shorten them.
var (
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second
)

// APIError is a non-200 reply from an LLM endpoint.
type APIError struct {
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API error %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// client speaks the OpenAI-compatible chat and embedding API.
type client struct {
	cfg    Config
	http   *http.Client
	prefix string // API path prefix such as "/v1"
}

func newClient(cfg Config, prefix string) client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return client{
		cfg:    cfg,
		prefix: prefix,
		http:   &http.Client{Timeout: timeout},
	}
}

// compatProvider serves every provider that exposes the OpenAI API shape.
type compatProvider struct {
	base client
}

func (p *compatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *compatProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}

// Wire shapes of the OpenAI-compatible API, trimmed to the fields used here.
type (
	wireChatRequest struct {
		Model          string      `json:"model"`
		Messages       []Message   `json:"messages"`
		Temperature    float64     `json:"temperature,omitempty"`
		MaxTokens      int         `json:"max_tokens,omitempty"`
		ResponseFormat *wireFormat `json:"response_format,omitempty"`
	}
	wireFormat struct {
		Type string `json:"type"`
	}
	wireChoice struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	}
	wireChatReply struct {
		Model   string       `json:"model"`
		Choices []wireChoice `json:"choices"`
		Usage   struct {
			Prompt     int `json:"prompt_tokens"`
			Completion int `json:"completion_tokens"`
			Total      int `json:"total_tokens"`
		} `json:"usage"`
	}
	wireEmbedRequest struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	wireEmbedReply struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
)

// ErrEmptyReply is returned when a chat reply carries no choices or an
// embedding reply misses one of the inputs.
var ErrEmptyReply = errors.New("llm: empty reply")

func (c *client) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := wireChatRequest{
		Model:       cmp.Or(req.Model, c.cfg.Model),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != "" {
		wire.ResponseFormat = &wireFormat{Type: req.ResponseFormat}
	}

	var reply wireChatReply
	if err := c.call(ctx, "/chat/completions", wire, &reply); err != nil {
		return nil, err
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyReply)
	}
	first := reply.Choices[0]
	return &ChatResponse{
		Content:          first.Message.Content,
		Model:            reply.Model,
		FinishReason:     first.FinishReason,
		PromptTokens:     reply.Usage.Prompt,
		CompletionTokens: reply.Usage.Completion,
		TotalTokens:      reply.Usage.Total,
	}, nil
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var reply wireEmbedReply
	if err := c.call(ctx, "/embeddings", wireEmbedRequest{Model: c.cfg.Model, Input: texts}, &reply); err != nil {
		return nil, err
	}

	// Items are matched by index; servers may reorder them.
	vectors := make([][]float32, len(texts))
	for _, d := range reply.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding for input %d", ErrEmptyReply, i)
		}
	}
	return vectors, nil
}

// call posts body under the client's API prefix and decodes the reply into out.
func (c *client) call(ctx context.Context, path string, body, out any) error {
	raw, err := c.post(ctx, c.prefix+path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s reply: %w", path, err)
	}
	return nil
}

// post sends a JSON body and returns the raw 200 reply. Transient failures
// are retried up to cfg.MaxRetries times with exponential backoff.
func (c *client) post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt, lastErr)
			slog.Warn("llm: retrying request",
				"url", url,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		respBody, err := c.do(ctx, url, data)
		if err == nil {
			return respBody, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return nil, err
		}
	}

	if c.cfg.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *client) do(ctx context.Context, url string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return respBody, nil
}

// retryDelay doubles baseRetryDelay per attempt. Rate-limited replies wait at
// least minRateLimitDelay (also doubling) or the server's Retry-After.
func retryDelay(attempt int, lastErr error) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<(attempt-1))

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		delay = max(delay, minRateLimitDelay*time.Duration(1<<(attempt-1)), apiErr.retryAfter)
	}
	return delay
}

func parseRetryAfter(v string) time.Duration {
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
