// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/jarvis/internal/content"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleInfo      Role = "info"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Jarvis"
	case RoleInfo:
		return "Info"
	default:
		return string(r)
	}
}

// =============================================================================
// CODE CONTEXT
// =============================================================================

// SelectedCode is the editor selection sent along with a message.
type SelectedCode struct {
	Content    string
	LanguageID string
}

// CodeContext describes where the user was working when they sent a message.
type CodeContext struct {
	ProjectName string
	Selected    *SelectedCode
}

// HasSelectedCode reports whether a non-blank selection is attached.
func (c *CodeContext) HasSelectedCode() bool {
	return c != nil && c.Selected != nil && strings.TrimSpace(c.Selected.Content) != ""
}

// Clone returns a deep copy. Messages own their context exclusively.
func (c *CodeContext) Clone() *CodeContext {
	if c == nil {
		return nil
	}
	out := &CodeContext{ProjectName: c.ProjectName}
	if c.Selected != nil {
		sel := *c.Selected
		out.Selected = &sel
	}
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// PlainPrefix marks a user message that must be sent without code context.
const PlainPrefix = "/plain "

// administrativeCommands are the slash commands that never reach the model.
var administrativeCommands = []string{
	"/help", "/?", "/new", "/model", "/model-info", "/host", "/copy",
}

// Message is a single immutable conversation entry.
type Message struct {
	ID          string
	Role        Role
	Content     string
	CodeContext *CodeContext
	Timestamp   time.Time
}

// NewMessage creates a new message with a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message. The code context is copied.
func NewUserMessage(content string, cc *CodeContext) Message {
	m := NewMessage(RoleUser, content)
	m.CodeContext = cc.Clone()
	return m
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewInfoMessage creates a message produced by the application itself.
func NewInfoMessage(content string) Message {
	return NewMessage(RoleInfo, content)
}

// GreetingMessage is the first message of every conversation.
func GreetingMessage() Message {
	return NewAssistantMessage("Hello! How can I help you?")
}

// HelpMessage lists the available commands.
func HelpMessage() Message {
	return NewInfoMessage(helpText)
}

const helpText = `Available commands:

- ` + "`/help`" + ` or ` + "`/?`" + ` shows this help
- ` + "`/new`" + ` starts a new conversation
- ` + "`/plain <message>`" + ` sends a message without the selected code
- ` + "`/model`" + ` shows information about the current model
- ` + "`/model <name>`" + ` switches model, ` + "`/model default`" + ` restores the default
- ` + "`/model set -<parameter> <value> ...`" + ` changes inference parameters
- ` + "`/host <url>`" + ` switches Ollama host, ` + "`/host default`" + ` restores the default
- ` + "`/copy`" + ` copies the conversation as a prompt for another assistant`

// WithContent returns a copy of the message with different content.
func (m Message) WithContent(content string) Message {
	m.Content = content
	m.CodeContext = m.CodeContext.Clone()
	return m
}

// IsPlain reports whether the message was sent with /plain.
func (m Message) IsPlain() bool {
	return hasPlainPrefix(m.Content)
}

// hasPlainPrefix matches PlainPrefix ignoring case, as the command parser
// does.
func hasPlainPrefix(text string) bool {
	return len(text) >= len(PlainPrefix) && strings.EqualFold(text[:len(PlainPrefix)], PlainPrefix)
}

// IsAdministrative reports whether the message is a slash command that is
// handled locally instead of being sent to the model.
func (m Message) IsAdministrative() bool {
	return m.Role == RoleUser && IsAdministrativeCommand(m.Content)
}

// IsAdministrativeCommand reports whether text starts with a known
// administrative slash command.
func IsAdministrativeCommand(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	keyword := strings.ToLower(fields[0])
	for _, cmd := range administrativeCommands {
		if keyword == cmd {
			return true
		}
	}
	return false
}

// ClosedContent returns the content with a trailing unterminated code
// block closed.
func (m Message) ClosedContent() string {
	return content.CloseTrailingCodeBlock(m.Content)
}

// PromptText returns the text sent to the model: closed content without
// the /plain prefix.
func (m Message) PromptText() string {
	text := m.ClosedContent()
	if hasPlainPrefix(text) {
		return text[len(PlainPrefix):]
	}
	return text
}

// Segments parses the content into display segments.
func (m Message) Segments() []content.Segment {
	return content.Parse(m.Content)
}
