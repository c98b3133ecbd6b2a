// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis/internal/model"
)

var (
	// AssistantStyle labels replies.
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// UserStyle labels the user's messages.
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245")) // Light gray

	// InfoStyle labels messages from Jarvis itself.
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")) // Orange

	// ReasoningStyle is used for the model's thinking.
	ReasoningStyle = lipgloss.NewStyle().
			Faint(true).
			Italic(true)

	// LanguageStyle labels code blocks.
	LanguageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// StatusStyle is used for one-line notes such as stream statistics.
	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")) // Dim
)

// roleStyle returns the label style for a role.
func roleStyle(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleAssistant:
		return AssistantStyle
	case model.RoleInfo:
		return InfoStyle
	default:
		return UserStyle
	}
}
