// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/render"
)

// MsgCancelled is printed when the user interrupts a reply.
const MsgCancelled = "cancelled by user"

// DefaultPrompt is shown before each line of input.
const DefaultPrompt = "jarvis> "

// Submitter handles one line of input. *commands.Router implements it.
type Submitter interface {
	Submit(ctx context.Context, input string, cc *model.CodeContext) *model.Generation
}

// REPLConfig configures a REPL.
type REPLConfig struct {
	Router   Submitter
	Input    LineReader
	Terminal *render.Terminal
	View     *render.View
	Store    *inference.Store

	// CodeContext is attached to every message.
	CodeContext *model.CodeContext

	// Interrupts cancel the running reply. When nil, SIGINT and SIGTERM are
	// watched while a reply is generated.
	Interrupts <-chan os.Signal

	Prompt string
	Logger *slog.Logger
}

// REPL is the interactive chat loop.
type REPL struct {
	router     Submitter
	input      LineReader
	term       *render.Terminal
	view       *render.View
	store      *inference.Store
	cc         *model.CodeContext
	interrupts <-chan os.Signal
	prompt     string
	logger     *slog.Logger
}

// NewREPL creates a REPL.
func NewREPL(cfg REPLConfig) *REPL {
	r := &REPL{
		router:     cfg.Router,
		input:      cfg.Input,
		term:       cfg.Terminal,
		view:       cfg.View,
		store:      cfg.Store,
		cc:         cfg.CodeContext,
		interrupts: cfg.Interrupts,
		prompt:     cfg.Prompt,
		logger:     cfg.Logger,
	}
	if r.prompt == "" {
		r.prompt = DefaultPrompt
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "cli")
	return r
}

// Run reads and handles input until EOF, Ctrl+C at the prompt, "exit" or
// "quit", or until ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := r.input.Prompt(r.prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.Send(ctx, input)
	}
}

// Send submits input and, for chat messages, waits for the reply. An
// interrupt cancels the reply. It reports false when the reply was
// cancelled.
func (r *REPL) Send(ctx context.Context, input string) bool {
	g := r.router.Submit(ctx, input, r.cc)
	defer r.view.Flush()
	if g == nil {
		return true
	}

	interrupts := r.interrupts
	if interrupts == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		interrupts = ch
	}

	select {
	case <-g.Done():
		return ctx.Err() == nil && !g.Cancelled()

	case <-interrupts:
		g.Cancel()
		<-g.Done()
		r.logger.Debug("generation cancelled", "id", g.ID)
		r.term.PrintStatus(MsgCancelled)
		return false

	case <-ctx.Done():
		g.Cancel()
		<-g.Done()
		return false
	}
}

func (r *REPL) printWelcome() {
	r.term.PrintMessage(model.GreetingMessage())
	if r.store != nil {
		sess := r.store.Current()
		r.term.PrintStatus(fmt.Sprintf("Model %s on %s. /help lists commands, Ctrl+D exits.", sess.Model(), sess.Host()))
	}
}
