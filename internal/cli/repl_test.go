// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/render"
)

type scriptedInput struct {
	lines []string
	err   error
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// fakeRouter answers chat input with a fixed reply and slash commands with
// an info message.
type fakeRouter struct {
	conv    *model.Conversation
	reply   string
	block   bool
	aborted bool
	started chan struct{}

	mu     sync.Mutex
	inputs []string
	ccs    []*model.CodeContext
}

func (f *fakeRouter) Submit(ctx context.Context, input string, cc *model.CodeContext) *model.Generation {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.ccs = append(f.ccs, cc)
	f.mu.Unlock()

	if strings.HasPrefix(input, "/") {
		f.conv.AddMessage(model.NewInfoMessage("done: " + input))
		return nil
	}
	return f.conv.StartGeneration(ctx, model.NewUserMessage(input, cc), func(ctx context.Context, g *model.Generation) {
		if f.block {
			f.started <- struct{}{}
			<-ctx.Done()
			return
		}
		if f.aborted {
			g.AppendToInProgress(f.reply)
			g.Cancel()
			return
		}
		g.AppendToInProgress(f.reply)
		g.AddMessage(model.NewAssistantMessage(f.reply))
	})
}

func (f *fakeRouter) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.inputs...)
}

type replHarness struct {
	repl       *REPL
	router     *fakeRouter
	conv       *model.Conversation
	out        *bytes.Buffer
	interrupts chan os.Signal
}

func newREPLHarness(t *testing.T, input LineReader, cc *model.CodeContext) *replHarness {
	t.Helper()

	conv := model.NewConversation()
	t.Cleanup(conv.Close)

	out := &bytes.Buffer{}
	term := render.NewTerminal(out, render.Options{})
	view := render.NewView(term, render.NewStreamingBuffer(), false)
	conv.Subscribe(view.Handle)

	h := &replHarness{
		router:     &fakeRouter{conv: conv, reply: "Hi there", started: make(chan struct{}, 1)},
		conv:       conv,
		out:        out,
		interrupts: make(chan os.Signal, 1),
	}
	h.repl = NewREPL(REPLConfig{
		Router:      h.router,
		Input:       input,
		Terminal:    term,
		View:        view,
		Store:       inference.NewStore(inference.DefaultSession()),
		CodeContext: cc,
		Interrupts:  h.interrupts,
	})
	return h
}

func TestREPL_RunHandlesInputUntilQuit(t *testing.T) {
	in := &scriptedInput{lines: []string{"hello", "   ", "/help", "QUIT", "never read"}}
	cc := &model.CodeContext{ProjectName: "demo"}
	h := newREPLHarness(t, in, cc)

	require.NoError(t, h.repl.Run(context.Background()))

	assert.Equal(t, []string{"hello", "/help"}, h.router.recorded())
	assert.Equal(t, []string{"never read"}, in.lines)
	assert.Same(t, cc, h.router.ccs[0])

	out := h.out.String()
	assert.Contains(t, out, "Model qwen3:1.7b on http://localhost:11434")
	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "done: /help")
	assert.Less(t, strings.Index(out, "Hi there"), strings.Index(out, "done: /help"))
}

func TestREPL_RunStopsAtEOFAndAbort(t *testing.T) {
	for _, err := range []error{io.EOF, liner.ErrPromptAborted} {
		h := newREPLHarness(t, &scriptedInput{err: err}, nil)
		assert.NoError(t, h.repl.Run(context.Background()))
	}
}

func TestREPL_RunReturnsReadErrors(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{err: errors.New("tty gone")}, nil)

	err := h.repl.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input: tty gone")
}

func TestREPL_RunStopsWhenContextDone(t *testing.T) {
	in := &scriptedInput{lines: []string{"hello"}}
	h := newREPLHarness(t, in, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.repl.Run(ctx))
	assert.Empty(t, h.router.recorded())
}

func TestREPL_SendWaitsForReply(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{}, nil)

	assert.True(t, h.repl.Send(context.Background(), "hello"))

	msgs := h.conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Hi there", msgs[2].Content)
	assert.False(t, h.conv.IsChatInProgress())
}

func TestREPL_InterruptCancelsReply(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{}, nil)
	h.router.block = true
	go func() {
		<-h.router.started
		h.interrupts <- os.Interrupt
	}()

	assert.False(t, h.repl.Send(context.Background(), "hello"))

	assert.Contains(t, h.out.String(), MsgCancelled)
	assert.Len(t, h.conv.Messages(), 2)
	assert.False(t, h.conv.IsChatInProgress())
	assert.Empty(t, h.conv.InProgressText())
}

func TestREPL_ContextCancelsReply(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{}, nil)
	h.router.block = true
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.router.started
		cancel()
	}()

	assert.False(t, h.repl.Send(ctx, "hello"))

	assert.NotContains(t, h.out.String(), MsgCancelled)
	assert.False(t, h.conv.IsChatInProgress())
}

func TestREPL_SendReportsAbortedReply(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{}, nil)
	h.router.aborted = true

	assert.False(t, h.repl.Send(context.Background(), "hello"))

	assert.Len(t, h.conv.Messages(), 2)
	assert.False(t, h.conv.IsChatInProgress())
	assert.NotContains(t, h.out.String(), MsgCancelled)
}

func TestREPL_CommandsReturnImmediately(t *testing.T) {
	h := newREPLHarness(t, &scriptedInput{}, nil)

	assert.True(t, h.repl.Send(context.Background(), "/model"))
	assert.Contains(t, h.out.String(), "done: /model")
}
