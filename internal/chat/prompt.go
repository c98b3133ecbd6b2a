// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/jarvis/internal/content"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/ollama"
)

// NoMessagePrompt is sent when the conversation has no user message.
const NoMessagePrompt = "Tell me that there was no message provided."

// NoCodeContext stands in for a missing selection.
const NoCodeContext = "*No code context provided.*"

// BuildPrompt renders a user message into the prompt sent to the model.
//
// The project name is included only for the first user message.
// The selection is included only when useCodeContext is set and the message
// was not sent with /plain.
func BuildPrompt(msg model.Message, firstUserMessage, useCodeContext bool) string {
	var b strings.Builder

	b.WriteString("[User]: ")
	b.WriteString(msg.PromptText())
	b.WriteString("\n")

	if firstUserMessage && msg.CodeContext != nil && msg.CodeContext.ProjectName != "" {
		b.WriteString("\nProject: ")
		b.WriteString(msg.CodeContext.ProjectName)
		b.WriteString("\n")
	}

	b.WriteString("\n[Code Context]:\n\n")
	b.WriteString(codeContextPrompt(msg.CodeContext, useCodeContext && !msg.IsPlain()))
	b.WriteString("\n\n[Assistant]: ")
	return b.String()
}

func codeContextPrompt(cc *model.CodeContext, use bool) string {
	if !use || !cc.HasSelectedCode() {
		return NoCodeContext
	}
	return FencedCode(cc.Selected.LanguageID, cc.Selected.Content)
}

// FencedCode wraps code in a fence tagged with the lowercased language id,
// or "plaintext" when there is none.
func FencedCode(language, code string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = content.PlaintextLanguage
	}
	return "```" + language + "\n" + code + "\n```"
}

// ErrorNote is appended to the reply when generation fails.
func ErrorNote(err error) string {
	msg := "Unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	note := "\n\nAn error occurred while processing the message.\n\nError: " + msg
	switch {
	case ollama.IsNotRunning(err):
		note += "\n\n" + HintNotRunning
	case ollama.IsTimeout(err):
		note += "\n\n" + HintTimeout
	}
	return note
}

// Hints added to an error note for failures the user can act on.
const (
	HintNotRunning = "Make sure Ollama is running (ollama serve) and reachable at the configured URL."
	HintTimeout    = "The model took too long to answer. Try again or raise the request timeout."
)

// SystemPrompt sets the assistant persona and the prompt layout it answers to.
const SystemPrompt = `You are Jarvis, a coding assistant with the skills of an expert software developer. You help with code completion, debugging, explanations and suggestions in any programming language. Keep answers clear and concise and address exactly what was asked.

Format every answer in Markdown. Use paragraphs, lists and headings where they help readability.

- Write readable, efficient and secure code.
- Put code in fenced blocks tagged with the language.
- Add short comments or explanations where they are needed.
- Ask a clarifying question when the request is ambiguous or context is missing.
- Stay focused and leave out unnecessary detail.

Each request has this layout:

[User]: the question

[Code Context]:

the code the user selected, or *No code context provided.*

[Assistant]: your answer

Example:

[User]: Why does this panic?

[Code Context]:

` + "```go" + `
var m map[string]int
m["a"] = 1
` + "```" + `

[Assistant]: Writing to a nil map panics. Create the map before using it:

` + "```go" + `
m := make(map[string]int)
m["a"] = 1
` + "```" + `

When code is selected, base the answer on that code first.`
