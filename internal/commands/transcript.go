// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"

	"github.com/jeranaias/jarvis/internal/chat"
	"github.com/jeranaias/jarvis/internal/model"
)

// TranscriptHeader opens every copied conversation.
const TranscriptHeader = "I used Jarvis with a local model. Please take over this conversation and help me."

// Transcript renders the conversation as a prompt for another assistant.
// Administrative commands and info messages are left out. Selected code is
// included for messages that were sent with it.
func Transcript(messages []model.Message) string {
	var b strings.Builder
	b.WriteString(TranscriptHeader)
	b.WriteString("\n\n")

	for _, m := range messages {
		switch {
		case m.Role == model.RoleUser && !m.IsAdministrative():
			b.WriteString("[User]: ")
			b.WriteString(m.PromptText())
			b.WriteString("\n")
			if !m.IsPlain() && m.CodeContext.HasSelectedCode() {
				sel := m.CodeContext.Selected
				b.WriteString("[Code Context]:\n")
				b.WriteString(chat.FencedCode(sel.LanguageID, sel.Content))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		case m.Role == model.RoleAssistant:
			b.WriteString("[Assistant]: ")
			b.WriteString(m.ClosedContent())
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}
