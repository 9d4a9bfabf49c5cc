package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is read to find its message.
const maxErrorBody = 64 << 10

// TokenSource provides the bearer token to attach to outgoing calls.
// An empty token means the call is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// APIClient performs the calls to the remote book club API. It makes a
// single attempt per call and never mutates any client side state.
type APIClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
	tokens     TokenSource
}

// NewAPIClient provides a client without token source.
func NewAPIClient(logger *zap.Logger, config *APIConfig, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &APIClient{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  config.UserAgent,
		timeout:    config.Timeout,
	}
}

// WithTokenSource returns a copy of the client which authenticates
// its calls with the tokens provided by ts.
func (c *APIClient) WithTokenSource(ts TokenSource) *APIClient {
	clone := *c
	clone.tokens = ts
	return &clone
}

// Get fetches path and decodes the response into out.
func (c *APIClient) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends in as JSON to path and decodes the response into out.
func (c *APIClient) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

// Put sends in as JSON to path and decodes the response into out.
func (c *APIClient) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

// Delete removes the resource at path. out may be nil.
func (c *APIClient) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api %s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api %s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("api %s %s: read token: %w", method, path, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	requestID := GetValueFromContext(ctx, RequestIDContextKey)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api call failed",
			zap.String("request.id", requestID),
			zap.String("api.method", method),
			zap.String("api.path", path),
			zap.Error(err),
		)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		zap.String("request.id", requestID),
		zap.String("api.method", method),
		zap.String("api.path", path),
		zap.Int("api.status", resp.StatusCode),
		zap.Duration("api.duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		var opErr interface{ Timeout() bool }
		if errors.As(err, &opErr) || ctx.Err() != nil {
			return &TransportError{Method: method, Path: path, Err: err}
		}
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	if err := validatePayload(out); err != nil {
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}

// readErrorMessage extracts the `message` field of an error body if any.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
