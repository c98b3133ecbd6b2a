// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one tab-completion candidate.
type Completion struct {
	// Value replaces the word being completed.
	Value string
	// Description is shown alongside.
	Description string
	// Score for ranking (higher = better match).
	Score int
}

// commandInfo describes a slash command for completion and help.
type commandInfo struct {
	Name        string
	Description string
}

var knownCommands = []commandInfo{
	{"/help", "Show available commands"},
	{"/?", "Show available commands"},
	{"/new", "Start a new conversation"},
	{"/plain", "Chat without the selected code"},
	{"/model", "Show or switch the model"},
	{"/model-info", "Show the model card"},
	{"/host", "Show or switch the Ollama host"},
	{"/copy", "Copy the conversation to the clipboard"},
}

// parameterNames are the long names accepted by /model set.
var parameterNames = []string{
	"temperature", "top_p", "top_k", "max_tokens", "repeat_penalty",
	"seed", "num_ctx", "stop",
}

// Completer handles tab completion for commands and their arguments.
type Completer struct {
	// ModelsFn returns the models offered after "/model". Optional.
	ModelsFn func() []string
}

// NewCompleter creates a completer.
func NewCompleter(models func() []string) *Completer {
	return &Completer{ModelsFn: models}
}

// Complete returns completions for the last word of input.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}

	parts := splitCommandLine(input)
	trailingSpace := strings.HasSuffix(input, " ")
	if len(parts) == 0 {
		return c.completeCommands("")
	}
	if len(parts) == 1 && !trailingSpace {
		return c.completeCommands(parts[0])
	}

	partial := ""
	if !trailingSpace {
		partial = parts[len(parts)-1]
	}
	argIndex := len(parts) - 1
	if !trailingSpace {
		argIndex--
	}

	switch strings.ToLower(parts[0]) {
	case "/model":
		if argIndex == 0 {
			values := []string{"set", "default"}
			if c.ModelsFn != nil {
				values = append(values, c.ModelsFn()...)
			}
			return completeFromList(values, partial)
		}
		if strings.EqualFold(parts[1], "set") && strings.HasPrefix(partial, "-") {
			return completeFromList(prefixed("-", parameterNames), partial)
		}
	case "/host":
		if argIndex == 0 {
			return completeFromList([]string{"default"}, partial)
		}
	}
	return nil
}

// LineCompleter adapts Complete to line editors that replace the whole line.
func (c *Completer) LineCompleter() func(line string) []string {
	return func(line string) []string {
		head := line[:strings.LastIndexByte(line, ' ')+1]
		var lines []string
		for _, comp := range c.Complete(line) {
			lines = append(lines, head+comp.Value)
		}
		return lines
	}
}

func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)
	var completions []Completion
	for _, cmd := range knownCommands {
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	seen := make(map[string]bool)
	for _, v := range values {
		if seen[v] || !strings.HasPrefix(strings.ToLower(v), strings.ToLower(partial)) {
			continue
		}
		seen[v] = true
		completions = append(completions, Completion{Value: v, Score: calculateScore(v, partial)})
	}
	sortCompletions(completions)
	return completions
}

func prefixed(prefix string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v
	}
	return out
}

// calculateScore ranks a candidate. Higher is better.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}
