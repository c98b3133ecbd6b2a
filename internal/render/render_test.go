// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis/internal/content"
	"github.com/jeranaias/jarvis/internal/model"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewStreamingBuffer(t *testing.T) {
	sb := NewStreamingBuffer()

	batchSize, maxFPS := sb.Config()
	assert.Equal(t, 15, batchSize)
	assert.Equal(t, 30, maxFPS)
	assert.Equal(t, time.Second/30, sb.FrameInterval())
}

func TestStreamingBufferConfigFallbacks(t *testing.T) {
	sb := NewStreamingBufferWithConfig(0, 500)

	batchSize, maxFPS := sb.Config()
	assert.Equal(t, DefaultBatchSize, batchSize)
	assert.Equal(t, DefaultMaxFPS, maxFPS)
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sb := newStreamingBuffer(3, 30, clock.Now)

	sb.Write("A")
	sb.Write("B")
	_, ok := sb.Flush()
	assert.False(t, ok, "flushed before batch size or frame interval")

	sb.Write("C")
	got, ok := sb.Flush()
	require.True(t, ok)
	assert.Equal(t, "ABC", got)
	assert.Zero(t, sb.Pending())
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sb := newStreamingBuffer(100, 30, clock.Now)

	sb.Write("slow")
	clock.Advance(10 * time.Millisecond)
	_, ok := sb.Flush()
	assert.False(t, ok)

	clock.Advance(30 * time.Millisecond)
	got, ok := sb.Flush()
	require.True(t, ok)
	assert.Equal(t, "slow", got)

	sb.Write(" tokens")
	_, ok = sb.Flush()
	assert.False(t, ok, "second frame allowed without waiting")
}

func TestStreamingBufferEmptyNeverFlushes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	sb := newStreamingBuffer(1, 30, clock.Now)

	clock.Advance(time.Second)
	_, ok := sb.Flush()
	assert.False(t, ok)
	_, ok = sb.ForceFlush()
	assert.False(t, ok)
}

func TestStreamingBufferForceFlushAndReset(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30)

	sb.Write("a")
	sb.Write("b")
	got, ok := sb.ForceFlush()
	require.True(t, ok)
	assert.Equal(t, "ab", got)

	sb.Write("c")
	sb.Reset()
	assert.Zero(t, sb.Pending())
	_, ok = sb.ForceFlush()
	assert.False(t, ok)
}

// =============================================================================
// TERMINAL TESTS
// =============================================================================

func plainTerminal(out *bytes.Buffer, live bool) *Terminal {
	return NewTerminal(out, Options{Width: 40, Live: live})
}

func TestTerminal_RenderSegment(t *testing.T) {
	term := plainTerminal(&bytes.Buffer{}, false)

	tests := []struct {
		name string
		seg  content.Segment
		want string
	}{
		{"text", content.Text("Hello **world**\n"), "Hello **world**"},
		{"code", content.Code("Go", "x := 1\n"), "[go]\nx := 1"},
		{"code without language", content.Code("", "ls"), "[plaintext]\nls"},
		{"reasoning done", content.Reasoning("Checked the loop.", false), "Thought\nChecked the loop."},
		{"reasoning in progress", content.Reasoning("First paragraph.\n\nSecond incomplete", true), "Thinking...\nFirst paragraph."},
		{"reasoning just started", content.Reasoning("Hmm", true), "Thinking..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, term.RenderSegment(tc.seg))
		})
	}
}

func TestTerminal_PrintMessage(t *testing.T) {
	var out bytes.Buffer
	term := plainTerminal(&out, false)

	term.PrintMessage(model.NewAssistantMessage("Hi\n```go\nfmt.Println()"))

	assert.Equal(t, "Jarvis\nHi\n[go]\nfmt.Println()\n\n", out.String())
}

func TestTerminal_PrintInfoAndStatus(t *testing.T) {
	var out bytes.Buffer
	term := plainTerminal(&out, false)

	term.PrintMessage(model.NewInfoMessage("Model changed to llama3"))
	term.PrintStatus("1.0s | 3 tokens")

	assert.Equal(t, "Info\nModel changed to llama3\n\n1.0s | 3 tokens\n", out.String())
}

func TestTerminal_LiveRegionRepaints(t *testing.T) {
	var out bytes.Buffer
	term := plainTerminal(&out, true)

	term.AppendSegment(content.Text("Hel"))
	assert.Equal(t, "Jarvis\nHel\n", out.String())

	out.Reset()
	term.UpdateSegment(0, content.Text("Hello"))
	assert.Equal(t, "\x1b[2F\x1b[JJarvis\nHello\n", out.String())

	out.Reset()
	term.AppendSegment(content.Code("go", "x"))
	assert.Equal(t, "\x1b[2F\x1b[JJarvis\nHello\n[go]\nx\n", out.String())

	out.Reset()
	term.ClearLive()
	assert.Equal(t, "\x1b[4F\x1b[J", out.String())
	assert.Zero(t, term.LiveSegments())
}

func TestTerminal_LiveRegionCountsWrappedRows(t *testing.T) {
	var out bytes.Buffer
	term := plainTerminal(&out, true)

	term.AppendSegment(content.Text(strings.Repeat("x", 90)))
	out.Reset()
	term.ClearLive()

	// label row + 90 cells on a 40-cell terminal
	assert.Equal(t, "\x1b[4F\x1b[J", out.String())
}

func TestTerminal_TruncateSegments(t *testing.T) {
	term := plainTerminal(&bytes.Buffer{}, false)

	term.AppendSegment(content.Text("a"))
	term.AppendSegment(content.Code("go", "b"))
	term.UpdateSegment(5, content.Text("ignored"))
	term.TruncateSegments(1)
	assert.Equal(t, 1, term.LiveSegments())

	term.TruncateSegments(3)
	assert.Equal(t, 1, term.LiveSegments())
}

func TestTerminal_ColorRendersMarkdownAndCode(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, Options{Color: true, Width: 80})

	text := term.RenderSegment(content.Text("Some **bold** text"))
	assert.Contains(t, text, "bold")
	assert.False(t, strings.HasSuffix(text, "\n"))

	code := term.RenderSegment(content.Code("go", "package main"))
	assert.Contains(t, code, "\x1b[")
	assert.Contains(t, code, "main")
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func newTestView(out *bytes.Buffer, echoUser bool) (*View, *Terminal) {
	term := plainTerminal(out, false)
	return NewView(term, NewStreamingBufferWithConfig(1, 30), echoUser), term
}

func TestView_PrintsAddedMessages(t *testing.T) {
	var out bytes.Buffer
	view, _ := newTestView(&out, false)
	conv := model.NewConversation()
	defer conv.Close()
	conv.Subscribe(view.Handle)

	conv.AddMessage(model.NewUserMessage("hello", nil))
	conv.AddMessage(model.NewAssistantMessage("Hi there"))

	assert.Equal(t, "Jarvis\nHi there\n\n", out.String())
}

func TestView_EchoUser(t *testing.T) {
	var out bytes.Buffer
	view, _ := newTestView(&out, true)
	conv := model.NewConversation()
	defer conv.Close()
	conv.Subscribe(view.Handle)

	conv.AddMessage(model.NewUserMessage("hello", nil))

	assert.Equal(t, "You\nhello\n\n", out.String())
}

func TestView_ClearPrintsGreeting(t *testing.T) {
	var out bytes.Buffer
	view, _ := newTestView(&out, false)
	conv := model.NewConversation()
	defer conv.Close()
	conv.AddMessage(model.NewAssistantMessage("old"))
	conv.Subscribe(view.Handle)

	conv.Clear()

	assert.Equal(t, "Jarvis\n"+model.GreetingMessage().Content+"\n\n", out.String())
}

func TestView_StreamsIntoLiveRegion(t *testing.T) {
	var out bytes.Buffer
	view, term := newTestView(&out, false)
	conv := model.NewConversation()
	defer conv.Close()
	conv.Subscribe(view.Handle)

	release := make(chan struct{})
	streamed := make(chan struct{})
	g := conv.StartGeneration(context.Background(), model.NewUserMessage("code?", nil),
		func(ctx context.Context, g *model.Generation) {
			g.AppendToInProgress("Sure\n```go\n")
			g.AppendToInProgress("x := 1")
			close(streamed)
			<-release
			g.AddMessage(model.NewAssistantMessage("Sure\n```go\nx := 1\n```"))
		})

	<-streamed
	assert.Equal(t, 2, term.LiveSegments())

	close(release)
	g.Wait()
	assert.Zero(t, term.LiveSegments())
	assert.Equal(t, "Jarvis\nSure\n[go]\nx := 1\n\n", out.String())
}

func TestView_CancelClearsLiveRegion(t *testing.T) {
	var out bytes.Buffer
	view, term := newTestView(&out, false)
	conv := model.NewConversation()
	defer conv.Close()
	conv.Subscribe(view.Handle)

	streamed := make(chan struct{})
	g := conv.StartGeneration(context.Background(), model.NewUserMessage("hi", nil),
		func(ctx context.Context, g *model.Generation) {
			g.AppendToInProgress("partial")
			close(streamed)
			<-ctx.Done()
		})
	<-streamed
	require.Equal(t, 1, term.LiveSegments())

	g.Cancel()
	g.Wait()

	assert.Zero(t, term.LiveSegments())
	assert.Empty(t, out.String())
}

func TestView_RunFlushesTail(t *testing.T) {
	var out bytes.Buffer
	term := plainTerminal(&out, false)
	view := NewView(term, NewStreamingBufferWithConfig(100, 60), false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = view.Run(ctx)
	}()

	view.Handle(model.Event{Kind: model.InProgressTextChanged, NewText: "tail"})
	assert.Eventually(t, func() bool { return term.LiveSegments() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestView_Flush(t *testing.T) {
	term := plainTerminal(&bytes.Buffer{}, false)
	view := NewView(term, NewStreamingBufferWithConfig(100, 1), false)

	view.Handle(model.Event{Kind: model.InProgressTextChanged, NewText: "a"})
	view.Handle(model.Event{Kind: model.InProgressTextChanged, OldText: "a", NewText: "ab"})
	view.Flush()

	assert.Equal(t, 1, term.LiveSegments())
}
