// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses a newline-delimited JSON chat response.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	tokenCount  int
	model       string
	skipped     int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Next returns the next chunk. It returns io.EOF when the body ends and a
// *ClientError when the server reports an error inside the stream.
// Blank and malformed lines are skipped.
func (s *StreamReader) Next() (*StreamChunk, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}

		chunk, perr := s.parseLine(line)
		if perr != nil {
			return nil, perr
		}
		if chunk != nil {
			return chunk, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseLine returns nil, nil for lines that carry nothing.
func (s *StreamReader) parseLine(line []byte) (*StreamChunk, error) {
	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return nil, nil
	}

	var response struct {
		Model   string `json:"model"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Done               bool   `json:"done"`
		DoneReason         string `json:"done_reason,omitempty"`
		TotalDuration      int64  `json:"total_duration,omitempty"`
		LoadDuration       int64  `json:"load_duration,omitempty"`
		PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
		PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
		EvalCount          int    `json:"eval_count,omitempty"`
		EvalDuration       int64  `json:"eval_duration,omitempty"`
		Error              string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		s.skipped++
		return nil, nil
	}
	if response.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: response.Error}
	}

	if response.Model != "" {
		s.model = response.Model
	}

	content := response.Message.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.tokenCount++
	}

	chunk := &StreamChunk{
		Content:    content,
		Done:       response.Done,
		DoneReason: response.DoneReason,
		Model:      s.model,
	}
	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.LoadDuration = time.Duration(response.LoadDuration)
		chunk.PromptEvalDuration = time.Duration(response.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}
	return chunk, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// TokenCount returns the number of non-empty content chunks received.
func (s *StreamReader) TokenCount() int {
	return s.tokenCount
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations reported by the server
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	PromptTokens     int
	CompletionTokens int

	TTFT            time.Duration // time to first token
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{StartTime: time.Now()}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize copies the server statistics from the final chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.LoadDuration = chunk.LoadDuration
	s.PromptEvalDuration = chunk.PromptEvalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens

	if s.EvalDuration > 0 {
		s.TokensPerSecond = float64(s.CompletionTokens) / s.EvalDuration.Seconds()
	}
}

// Format returns a one-line summary.
func (s *StreamStats) Format() string {
	total := s.TotalDuration
	if total == 0 && !s.EndTime.IsZero() {
		total = s.EndTime.Sub(s.StartTime)
	}
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		total.Round(time.Millisecond), s.CompletionTokens, s.TokensPerSecond, s.TTFT.Milliseconds())
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is a running chat completion. Events arrive in order on Events();
// the channel is closed when the stream ends.
type Stream struct {
	events chan StreamEvent
	cancel context.CancelFunc
	done   chan struct{}
}

// Events returns the event channel.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Cancel aborts the underlying HTTP request. Safe to call more than once.
func (s *Stream) Cancel() {
	s.cancel()
}

// Done is closed once the stream has released its connection.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// startStream reads body in a new goroutine. release is called once the
// body is closed. idle bounds the time between two lines; zero disables it.
func startStream(ctx context.Context, release context.CancelFunc, body io.ReadCloser, idle time.Duration, logger *slog.Logger) *Stream {
	s := &Stream{
		events: make(chan StreamEvent, 64),
		cancel: release,
		done:   make(chan struct{}),
	}
	go s.run(ctx, body, idle, logger)
	return s
}

func (s *Stream) run(ctx context.Context, body io.ReadCloser, idle time.Duration, logger *slog.Logger) {
	defer close(s.events)
	defer close(s.done)
	defer s.cancel()
	defer body.Close()

	var timedOut atomic.Bool
	var idleTimer *time.Timer
	if idle > 0 {
		idleTimer = time.AfterFunc(idle, func() {
			timedOut.Store(true)
			s.cancel()
		})
		defer idleTimer.Stop()
	}

	reader := NewStreamReader(body)
	stats := NewStreamStats()

	for {
		chunk, err := reader.Next()
		if idleTimer != nil && err == nil {
			idleTimer.Reset(idle)
		}
		if err != nil {
			err = classifyStreamError(ctx, err, timedOut.Load())
			logger.Debug("chat stream ended with error", "error", err, "tokens", reader.TokenCount())
			s.emit(ctx, StreamEvent{Kind: EventError, Err: err})
			return
		}

		if chunk.Content != "" {
			stats.RecordFirstToken()
			if !s.emit(ctx, StreamEvent{Kind: EventToken, Content: chunk.Content}) {
				return
			}
		}

		if chunk.Done {
			stats.Finalize(*chunk)
			logger.Debug("chat stream completed",
				"model", reader.Model(),
				"done_reason", chunk.DoneReason,
				"skipped_lines", reader.skipped,
				"stats", stats.Format())
			s.emit(ctx, StreamEvent{Kind: EventDone, Content: reader.Accumulated(), Stats: stats})
			return
		}
	}
}

// emit delivers ev unless ctx is done first. It reports whether ev was sent.
func (s *Stream) emit(ctx context.Context, ev StreamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		select {
		case s.events <- ev:
			return true
		default:
			return false
		}
	}
}

func classifyStreamError(ctx context.Context, err error, timedOut bool) error {
	var ce *ClientError
	switch {
	case timedOut:
		return &ClientError{Type: ErrTypeTimeout, Message: "no data received from Ollama within the stream timeout"}
	case ctx.Err() != nil:
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: ctx.Err()}
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "stream ended before completion"}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
	}
}
