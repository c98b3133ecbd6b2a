// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default flush thresholds.
const (
	DefaultBatchSize = 15
	DefaultMaxFPS    = 30
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches tokens so the live region is not repainted on
// every one of them.
//
// Pending content is released when either
//  1. at least batchSize tokens accumulated, or
//  2. the frame limiter allows another frame (maxFPS per second).
//
// All methods are safe for concurrent use.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int

	batchSize int
	maxFPS    int
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewStreamingBuffer creates a buffer with the default thresholds.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(DefaultBatchSize, DefaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom thresholds.
// Out-of-range values fall back to the defaults.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	return newStreamingBuffer(batchSize, maxFPS, time.Now)
}

func newStreamingBuffer(batchSize, maxFPS int, now func() time.Time) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = DefaultMaxFPS
	}
	sb := &StreamingBuffer{
		batchSize: batchSize,
		maxFPS:    maxFPS,
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(maxFPS)), 1),
		now:       now,
	}
	// The first frame waits a full interval, like every later one.
	sb.limiter.AllowN(now(), 1)
	return sb
}

// Write adds a token to the buffer.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns the pending content if a threshold was reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && !sb.limiter.AllowN(sb.now(), 1) {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns the pending content regardless of thresholds.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	return content
}

// Reset drops pending content. Use it when a reply is cancelled or
// finished.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
}

// Pending returns the number of tokens waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

// FrameInterval returns the minimum time between two time-based flushes.
func (sb *StreamingBuffer) FrameInterval() time.Duration {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return time.Second / time.Duration(sb.maxFPS)
}

// Config returns the batch size and frame rate.
func (sb *StreamingBuffer) Config() (batchSize, maxFPS int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.batchSize, sb.maxFPS
}
