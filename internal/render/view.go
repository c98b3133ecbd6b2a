// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/jarvis/internal/content"
	"github.com/jeranaias/jarvis/internal/model"
)

// View turns conversation events into terminal output.
type View struct {
	term     *Terminal
	rec      *content.Reconciler
	buf      *StreamingBuffer
	echoUser bool

	mu   sync.Mutex
	text string
}

// NewView creates a view. User messages are printed only when echoUser is
// set, since a line editor already shows what was typed.
func NewView(term *Terminal, buf *StreamingBuffer, echoUser bool) *View {
	if buf == nil {
		buf = NewStreamingBuffer()
	}
	return &View{
		term:     term,
		rec:      content.NewReconciler(term),
		buf:      buf,
		echoUser: echoUser,
	}
}

// Handle applies one conversation event. It is a model.Observer.
func (v *View) Handle(ev model.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Kind {
	case model.InProgressTextChanged:
		if ev.NewText == "" {
			v.resetLocked()
			return
		}
		delta := ev.NewText
		if strings.HasPrefix(ev.NewText, ev.OldText) {
			delta = ev.NewText[len(ev.OldText):]
		}
		v.buf.Write(delta)
		v.text = ev.NewText
		if _, ok := v.buf.Flush(); ok {
			v.rec.Render(v.text)
		}

	case model.MessagesChanged:
		v.resetLocked()
		for _, m := range addedMessages(ev.OldMessages, ev.NewMessages) {
			if m.Role == model.RoleUser && !v.echoUser {
				continue
			}
			v.term.PrintMessage(m)
		}

	case model.InProgressFlagChanged:
		if !ev.NewFlag {
			v.resetLocked()
		}
	}
}

// Flush renders pending in-progress text immediately.
func (v *View) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.buf.ForceFlush(); ok {
		v.rec.Render(v.text)
	}
}

// Run renders pending text every frame until ctx is done, so the tail of a
// stream shows up even when tokens stop arriving.
func (v *View) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.buf.FrameInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v.mu.Lock()
			if _, ok := v.buf.Flush(); ok {
				v.rec.Render(v.text)
			}
			v.mu.Unlock()
		}
	}
}

func (v *View) resetLocked() {
	v.buf.Reset()
	v.rec.Reset()
	v.term.ClearLive()
	v.text = ""
}

// addedMessages returns the messages to print for a list change. A list
// that does not extend the old one was replaced and is printed whole.
func addedMessages(old, next []model.Message) []model.Message {
	if len(next) < len(old) {
		return next
	}
	for i := range old {
		if old[i].ID != next[i].ID {
			return next
		}
	}
	return next[len(old):]
}
