// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import "strings"

// PlaintextLanguage is the language id used when a fence names none.
const PlaintextLanguage = "plaintext"

// Kind identifies the variant of a Segment.
type Kind int

const (
	KindText Kind = iota
	KindCode
	KindReasoning
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCode:
		return "code"
	case KindReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// Segment is one typed piece of a message body.
//
// Body holds the markdown for Text and Reasoning segments and the code for
// Code segments. Language is only meaningful for Code. InProgress is only
// meaningful for Reasoning and is true while the closing tag has not arrived.
type Segment struct {
	Kind       Kind
	Body       string
	Language   string
	InProgress bool
}

// Text creates a markdown segment.
func Text(markdown string) Segment {
	return Segment{Kind: KindText, Body: markdown}
}

// Code creates a code segment. An empty language becomes PlaintextLanguage.
func Code(language, code string) Segment {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = PlaintextLanguage
	}
	return Segment{Kind: KindCode, Body: code, Language: language}
}

// Reasoning creates a reasoning segment.
func Reasoning(markdown string, inProgress bool) Segment {
	return Segment{Kind: KindReasoning, Body: markdown, InProgress: inProgress}
}

// Extends reports whether s can be shown by updating a view that currently
// shows prev in place: same kind, same language, and a body that starts
// with the previous body.
func (s Segment) Extends(prev Segment) bool {
	if s.Kind != prev.Kind || s.Language != prev.Language {
		return false
	}
	return strings.HasPrefix(s.Body, prev.Body)
}

// Display returns the text a view should show for the segment.
//
// Completed reasoning shows its whole body. In-progress reasoning shows only
// the last completed paragraph, so a half-written thought never flickers on
// screen.
func (s Segment) Display() string {
	if s.Kind != KindReasoning {
		return s.Body
	}
	if !s.InProgress {
		return strings.TrimSpace(s.Body)
	}
	return LastCompleteParagraph(s.Body)
}

// LastCompleteParagraph returns the last paragraph of text that is followed
// by a blank line, trimmed. It returns "" when no paragraph is complete yet.
func LastCompleteParagraph(text string) string {
	parts := strings.Split(text, "\n\n")
	if len(parts) < 2 {
		return ""
	}
	for i := len(parts) - 2; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}
