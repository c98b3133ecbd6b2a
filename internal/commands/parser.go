// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jeranaias/jarvis/internal/inference"
)

// =============================================================================
// COMMAND TYPES
// =============================================================================

// Command is the parsed form of one line of user input.
type Command interface {
	// Name returns the command keyword, or "chat" for ordinary messages.
	Name() string
}

// ChatCommand sends the input to the model with the selected code.
type ChatCommand struct{ Text string }

// PlainChatCommand sends the input to the model without the selected code.
type PlainChatCommand struct{ Text string }

// HelpCommand lists the available commands.
type HelpCommand struct{}

// NewConversationCommand starts a new conversation.
type NewConversationCommand struct{}

// ModelCommand shows model information when Model is empty, and switches
// model otherwise.
type ModelCommand struct{ Model string }

// ModelSetCommand changes inference parameters. Errors holds problems found
// while parsing the arguments.
type ModelSetCommand struct {
	Assignments []inference.Assignment
	Errors      []string
}

// HostCommand shows the host when Host is empty, and switches host otherwise.
type HostCommand struct{ Host string }

// CopyCommand copies the conversation to the clipboard.
type CopyCommand struct{}

func (ChatCommand) Name() string            { return "chat" }
func (PlainChatCommand) Name() string       { return "/plain" }
func (HelpCommand) Name() string            { return "/help" }
func (NewConversationCommand) Name() string { return "/new" }
func (ModelCommand) Name() string           { return "/model" }
func (ModelSetCommand) Name() string        { return "/model set" }
func (HostCommand) Name() string            { return "/host" }
func (CopyCommand) Name() string            { return "/copy" }

// =============================================================================
// PARSER
// =============================================================================

// Parse classifies input. It never fails: anything that is not a known
// command is a ChatCommand.
func Parse(input string) Command {
	trimmed := strings.TrimSpace(input)
	if !IsCommand(trimmed) {
		return ChatCommand{Text: trimmed}
	}

	tokens := splitCommandLine(trimmed)
	if len(tokens) == 0 {
		return ChatCommand{Text: trimmed}
	}
	keyword := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch keyword {
	case "/help", "/?":
		return HelpCommand{}
	case "/new":
		return NewConversationCommand{}
	case "/plain":
		return PlainChatCommand{Text: strings.TrimSpace(trimmed[len(tokens[0]):])}
	case "/model-info":
		return ModelCommand{}
	case "/model":
		if len(args) == 0 {
			return ModelCommand{}
		}
		if strings.EqualFold(args[0], "set") {
			return parseModelSet(args[1:])
		}
		return ModelCommand{Model: args[0]}
	case "/host":
		if len(args) == 0 {
			return HostCommand{}
		}
		return HostCommand{Host: args[0]}
	case "/copy":
		return CopyCommand{}
	default:
		return ChatCommand{Text: trimmed}
	}
}

// parseModelSet reads "-name value" pairs.
func parseModelSet(args []string) ModelSetCommand {
	var cmd ModelSetCommand
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !isFlag(tok) {
			cmd.Errors = append(cmd.Errors, fmt.Sprintf("unexpected argument %s", tok))
			continue
		}
		name := strings.TrimLeft(tok, "-")
		if n, v, ok := strings.Cut(name, "="); ok {
			cmd.Assignments = append(cmd.Assignments, inference.Assignment{Name: n, Value: v})
			continue
		}
		if i+1 >= len(args) || isFlag(args[i+1]) {
			cmd.Errors = append(cmd.Errors, fmt.Sprintf("missing value for %s", name))
			continue
		}
		cmd.Assignments = append(cmd.Assignments, inference.Assignment{Name: name, Value: args[i+1]})
		i++
	}
	return cmd
}

// isFlag reports whether tok names a parameter. Negative numbers are values.
func isFlag(tok string) bool {
	name := strings.TrimLeft(tok, "-")
	if len(name) == len(tok) || name == "" {
		return false
	}
	return unicode.IsLetter(rune(name[0])) || name[0] == '_'
}

// IsCommand checks if input starts with a slash.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName returns the lowercased keyword of a command line.
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !IsCommand(input) {
		return ""
	}
	name, _, _ := strings.Cut(input, " ")
	return strings.ToLower(name)
}

// splitCommandLine splits input on whitespace, honoring single and double
// quotes and backslash escapes inside quotes.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingleQuote, inDoubleQuote, quoted bool

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		switch {
		case char == '\'' && !inDoubleQuote:
			inSingleQuote = !inSingleQuote
			quoted = true

		case char == '"' && !inSingleQuote:
			inDoubleQuote = !inDoubleQuote
			quoted = true

		case char == '\\' && i+1 < len(runes) && (inDoubleQuote || inSingleQuote):
			next := runes[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(char)
			}

		case unicode.IsSpace(char) && !inSingleQuote && !inDoubleQuote:
			if current.Len() > 0 || quoted {
				tokens = append(tokens, current.String())
				current.Reset()
				quoted = false
			}

		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 || quoted {
		tokens = append(tokens, current.String())
	}
	return tokens
}
