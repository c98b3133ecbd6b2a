// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind names the piece of conversation state that changed.
type EventKind int

const (
	// MessagesChanged fires when the message list changes.
	MessagesChanged EventKind = iota
	// InProgressTextChanged fires when the reply being generated changes.
	InProgressTextChanged
	// InProgressFlagChanged fires when a generation starts or stops.
	InProgressFlagChanged
)

func (k EventKind) String() string {
	switch k {
	case MessagesChanged:
		return "messages"
	case InProgressTextChanged:
		return "in-progress-text"
	case InProgressFlagChanged:
		return "in-progress-flag"
	default:
		return "unknown"
	}
}

// Event carries the old and new value of the state named by Kind. Only the
// fields matching Kind are set.
type Event struct {
	Kind EventKind

	OldMessages []Message
	NewMessages []Message

	OldText string
	NewText string

	OldFlag bool
	NewFlag bool
}

// Observer receives conversation events.
type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}

// =============================================================================
// CONVERSATION
// =============================================================================

// GenerateFunc produces one reply. It must return once ctx is done. All
// conversation changes it makes go through g.
type GenerateFunc func(ctx context.Context, g *Generation)

// Conversation is the observable state of one chat: the ordered message
// list, the buffer holding the reply being generated and whether a
// generation is running.
//
// Mutations and their notifications are serialized: observers see events in
// the order the mutations happened and never concurrently. At most one
// generation is active; starting a new one cancels the previous one.
type Conversation struct {
	// emitMu serializes each mutation together with its notifications.
	emitMu sync.Mutex

	mu         sync.Mutex
	messages   []Message
	inProgress strings.Builder
	active     *Generation
	observers  []subscription
	nextID     int
	closed     bool
}

// NewConversation creates a conversation holding the greeting message.
func NewConversation() *Conversation {
	return &Conversation{
		messages: []Message{GreetingMessage()},
	}
}

// Subscribe registers an observer and returns a function removing it.
func (c *Conversation) Subscribe(fn Observer) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.observers = append(c.observers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.observers {
				if s.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Close cancels any running generation and drops every observer.
func (c *Conversation) Close() {
	c.CancelGeneration()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.observers = nil
}

// Messages returns a copy of the message list.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messagesLocked()
}

func (c *Conversation) messagesLocked() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// InProgressText returns the reply generated so far.
func (c *Conversation) InProgressText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress.String()
}

// IsChatInProgress reports whether a generation is running.
func (c *Conversation) IsChatInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// LastUserMessage returns the most recent user message.
func (c *Conversation) LastUserMessage() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// IsFirstUserMessage reports whether exactly one non-administrative user
// message exists.
func (c *Conversation) IsFirstUserMessage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.messages {
		if m.Role == RoleUser && !m.IsAdministrative() {
			n++
		}
	}
	return n == 1
}

// AddMessage appends a message and clears the in-progress buffer.
func (c *Conversation) AddMessage(m Message) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.addMessageLocked(m, nil)
}

// AppendToInProgress appends text to the reply being generated.
func (c *Conversation) AppendToInProgress(text string) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.appendLocked(text, nil)
}

// Clear cancels any running generation and resets the conversation to its
// greeting.
func (c *Conversation) Clear() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.cancelLocked()

	c.mu.Lock()
	old := c.messagesLocked()
	c.messages = []Message{GreetingMessage()}
	c.inProgress.Reset()
	ev := Event{Kind: MessagesChanged, OldMessages: old, NewMessages: c.messagesLocked()}
	c.mu.Unlock()

	c.notify(ev)
}

// StartGeneration cancels any running generation, appends msg and runs fn in
// a new goroutine. The returned handle is the only way fn may change the
// conversation; changes made through it after it was cancelled or
// superseded are dropped.
func (c *Conversation) StartGeneration(ctx context.Context, msg Message, fn GenerateFunc) *Generation {
	genCtx, cancel := context.WithCancel(ctx)
	g := &Generation{
		ID:     uuid.NewString(),
		conv:   c,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.emitMu.Lock()
	c.cancelLocked()
	c.addMessageLocked(msg, nil)
	c.mu.Lock()
	c.active = g
	c.mu.Unlock()
	c.notify(Event{Kind: InProgressFlagChanged, OldFlag: false, NewFlag: true})
	c.emitMu.Unlock()

	go func() {
		defer close(g.done)
		defer c.finish(g)
		fn(genCtx, g)
		if genCtx.Err() != nil {
			g.cancelled.Store(true)
		}
	}()
	return g
}

// CancelGeneration cancels the running generation, discards its partial
// reply and clears the in-progress flag before returning. It reports
// whether a generation was running.
func (c *Conversation) CancelGeneration() bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	return c.cancelLocked()
}

// cancelLocked cancels and ends the active generation. emitMu must be held,
// so no other generation can be installed in between.
func (c *Conversation) cancelLocked() bool {
	c.mu.Lock()
	g := c.active
	c.mu.Unlock()
	if g == nil {
		return false
	}
	g.cancelled.Store(true)
	g.cancel()
	c.endLocked(g)
	return true
}

// finish ends g if it is still the active generation.
func (c *Conversation) finish(g *Generation) {
	g.cancel()

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.endLocked(g)
}

// endLocked clears the buffer and flag if g is active. emitMu must be held.
func (c *Conversation) endLocked(g *Generation) {
	c.mu.Lock()
	if c.active != g {
		c.mu.Unlock()
		return
	}
	c.active = nil
	oldText := c.inProgress.String()
	c.inProgress.Reset()
	c.mu.Unlock()

	if oldText != "" {
		c.notify(Event{Kind: InProgressTextChanged, OldText: oldText, NewText: ""})
	}
	c.notify(Event{Kind: InProgressFlagChanged, OldFlag: true, NewFlag: false})
}

// addMessageLocked appends m when only is nil or still active. emitMu must
// be held.
func (c *Conversation) addMessageLocked(m Message, only *Generation) bool {
	c.mu.Lock()
	if only != nil && c.active != only {
		c.mu.Unlock()
		return false
	}
	old := c.messagesLocked()
	c.messages = append(c.messages, m)
	c.inProgress.Reset()
	ev := Event{Kind: MessagesChanged, OldMessages: old, NewMessages: c.messagesLocked()}
	c.mu.Unlock()

	c.notify(ev)
	return true
}

// appendLocked appends text when only is nil or still active. emitMu must
// be held.
func (c *Conversation) appendLocked(text string, only *Generation) bool {
	if text == "" {
		return only == nil || c.isActive(only)
	}

	c.mu.Lock()
	if only != nil && c.active != only {
		c.mu.Unlock()
		return false
	}
	oldText := c.inProgress.String()
	c.inProgress.WriteString(text)
	ev := Event{Kind: InProgressTextChanged, OldText: oldText, NewText: c.inProgress.String()}
	c.mu.Unlock()

	c.notify(ev)
	return true
}

func (c *Conversation) isActive(g *Generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active == g
}

// notify calls every observer. emitMu must be held, mu must not be.
func (c *Conversation) notify(ev Event) {
	c.mu.Lock()
	observers := make([]subscription, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, s := range observers {
		s.fn(ev)
	}
}

// =============================================================================
// GENERATION
// =============================================================================

// Generation is the handle of one reply being produced.
type Generation struct {
	ID string

	conv      *Conversation
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
}

// Done is closed once the generation function has returned and the
// conversation has been updated.
func (g *Generation) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the generation has finished.
func (g *Generation) Wait() {
	<-g.done
}

// Cancel cancels this generation if it is still the active one. The
// generation function may call it to report that it was aborted.
func (g *Generation) Cancel() {
	g.cancelled.Store(true)
	g.cancel()

	c := g.conv
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.endLocked(g)
}

// Cancelled reports whether the generation ended through cancellation
// instead of running to completion.
func (g *Generation) Cancelled() bool {
	return g.cancelled.Load()
}

// Active reports whether this generation may still change the conversation.
func (g *Generation) Active() bool {
	return g.conv.isActive(g)
}

// AppendToInProgress appends text to the reply buffer. It reports false and
// changes nothing when the generation is no longer active.
func (g *Generation) AppendToInProgress(text string) bool {
	c := g.conv
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	return c.appendLocked(text, g)
}

// AddMessage appends a message. It reports false and changes nothing when
// the generation is no longer active.
func (g *Generation) AddMessage(m Message) bool {
	c := g.conv
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	return c.addMessageLocked(m, g)
}

// LastUserMessage returns the most recent user message.
func (g *Generation) LastUserMessage() (Message, bool) {
	return g.conv.LastUserMessage()
}

// IsFirstUserMessage reports whether the conversation holds exactly one
// non-administrative user message.
func (g *Generation) IsFirstUserMessage() bool {
	return g.conv.IsFirstUserMessage()
}
