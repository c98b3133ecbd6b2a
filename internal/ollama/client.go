// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int // HTTP status when the server answered with a non-200
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeCanceled
	ErrTypePullFailed
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string

	// ConnectTimeout bounds connection setup and every short metadata
	// request (default: 2s)
	ConnectTimeout time.Duration

	// StreamTimeout bounds the wait for response headers and the gap
	// between two lines of a streaming response (default: 5m)
	StreamTimeout time.Duration

	// Logger receives debug output (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://localhost:11434",
		ConnectTimeout: 2 * time.Second,
		StreamTimeout:  5 * time.Minute,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use. Cancel aborts every request that is
// in flight, including open streams.
//
// Example:
//
//	client := ollama.NewClient("http://localhost:11434")
//	if !client.HealthCheck(ctx) {
//	    return ollama.ErrNotRunning
//	}
//	stream, err := client.Stream(ctx, ollama.ChatRequest{Model: "qwen3:1.7b", Messages: msgs})
//	for ev := range stream.Events() {
//	    fmt.Print(ev.Content)
//	}
type Client struct {
	config     *ClientConfig
	httpClient *http.Client // short requests, overall timeout
	longClient *http.Client // pulls and streams, bounded by context
	calls      *callTracker
	logger     *slog.Logger
}

// NewClient creates a client for baseURL with default settings.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 2 * time.Second
	}
	if cfg.StreamTimeout == 0 {
		cfg.StreamTimeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		ResponseHeaderTimeout: cfg.StreamTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.ConnectTimeout},
		longClient: &http.Client{Transport: transport},
		calls:      newCallTracker(),
		logger:     logger.With("component", "ollama", "host", cfg.BaseURL),
	}
}

// BaseURL returns the host this client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Cancel aborts every in-flight request of this client. Safe to call at any
// time and more than once.
func (c *Client) Cancel() {
	c.calls.cancelAll()
}

// InFlight returns the number of requests currently in flight.
func (c *Client) InFlight() int {
	return c.calls.inFlight()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, release := c.calls.track(ctx)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:       ErrTypeConnection,
			StatusCode: resp.StatusCode,
			Message:    "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// HealthCheck reports whether the server answers GET / with 200.
func (c *Client) HealthCheck(ctx context.Context) bool {
	err := c.CheckRunning(ctx)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
	}
	return err == nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, release := c.calls.track(ctx)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "failed to list models")
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// IsModelAvailable reports whether a local model name starts with name,
// ignoring case. Any failure counts as unavailable.
func (c *Client) IsModelAvailable(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		c.logger.Debug("model availability check failed", "model", name, "error", err)
		return false
	}
	want := strings.ToLower(name)
	for _, m := range models {
		if strings.HasPrefix(strings.ToLower(m.Name), want) {
			return true
		}
	}
	return false
}

// ShowModel retrieves the details of a model.
func (c *Client) ShowModel(ctx context.Context, name string) (*ShowModelResponse, error) {
	ctx, release := c.calls.track(ctx)
	defer release()

	resp, err := c.postJSON(ctx, c.httpClient, "/api/show", ShowModelRequest{Name: name})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "failed to show model")
	}

	var result ShowModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// PullModel asks the server to download a model and reads its progress
// stream. It returns an ErrTypePullFailed error carrying the first error
// the server reports, or "status <code>" for a non-200 answer without one.
// Completion of the download is not implied by a nil return; poll
// IsModelAvailable.
func (c *Client) PullModel(ctx context.Context, name string) error {
	ctx, release := c.calls.track(ctx)
	defer release()

	resp, err := c.postJSON(ctx, c.longClient, "/api/pull", PullRequest{Name: name, Stream: true})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev PullEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.Error != "" {
			return &ClientError{Type: ErrTypePullFailed, StatusCode: resp.StatusCode, Message: ev.Error}
		}
		c.logger.Debug("pull progress", "model", name, "status", ev.Status,
			"completed", ev.Completed, "total", ev.Total)
	}

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:       ErrTypePullFailed,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return &ClientError{Type: ErrTypeConnection, Message: "pull stream read failed", Cause: err}
	}
	if ctx.Err() != nil {
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: ctx.Err()}
	}
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Stream starts a streaming chat completion. Stream is forced to true.
//
// The returned Stream delivers tokens in arrival order and ends with exactly
// one EventDone or EventError unless ctx is cancelled first. Cancelling ctx,
// calling Stream.Cancel or calling Client.Cancel closes the connection.
func (c *Client) Stream(ctx context.Context, chat ChatRequest) (*Stream, error) {
	chat.Stream = true
	callCtx, release := c.calls.track(ctx)

	resp, err := c.postJSON(callCtx, c.longClient, "/api/chat", chat)
	if err != nil {
		release()
		if ctx.Err() != nil {
			return nil, &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: ctx.Err()}
		}
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer release()
		defer drainAndClose(resp.Body)
		if resp.StatusCode == http.StatusNotFound {
			return nil, &ClientError{
				Type:       ErrTypeModelNotFound,
				StatusCode: resp.StatusCode,
				Message:    ollamaErrorOr(resp, "model not found"),
			}
		}
		return nil, statusError(resp, "chat request failed")
	}

	c.logger.Debug("chat stream opened", "model", chat.Model, "messages", len(chat.Messages))
	return startStream(callCtx, release, resp.Body, c.config.StreamTimeout, c.logger), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) postJSON(ctx context.Context, hc *http.Client, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// transportError maps a failed round trip to a ClientError.
func transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	default:
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
}

// statusError builds an error for a non-200 answer, preferring the server's
// own error text.
func statusError(resp *http.Response, what string) error {
	t := ErrTypeInvalidResponse
	if resp.StatusCode == http.StatusNotFound {
		t = ErrTypeModelNotFound
	}
	return &ClientError{
		Type:       t,
		StatusCode: resp.StatusCode,
		Message:    what + ": " + ollamaErrorOr(resp, resp.Status),
	}
}

func ollamaErrorOr(resp *http.Response, fallback string) string {
	var ollamaErr OllamaError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(body, &ollamaErr); err == nil && ollamaErr.Error != "" {
		return ollamaErr.Error
	}
	return fallback
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return hasType(err, ErrTypeModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return hasType(err, ErrTypeNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return hasType(err, ErrTypeTimeout)
}

// IsCanceled checks if an error comes from a cancelled request.
func IsCanceled(err error) bool {
	return hasType(err, ErrTypeCanceled) || errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

func hasType(err error, t ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == t
	}
	return false
}
