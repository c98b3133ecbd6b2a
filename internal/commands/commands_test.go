// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/jeranaias/jarvis/internal/inference"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/model qwen", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}

	for _, tc := range tests {
		got := IsCommand(tc.input)
		if got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/help"},
		{"/Model qwen", "/model"},
		{"  /copy  ", "/copy"},
		{"hello", ""},
		{"/", "/"},
	}

	for _, tc := range tests {
		got := ExtractCommandName(tc.input)
		if got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/model set -t 0.5", []string{"/model", "set", "-t", "0.5"}},
		{"/model set -stop 'a b,c'", []string{"/model", "set", "-stop", "a b,c"}},
		{`/host "http://my host"`, []string{"/host", "http://my host"}},
		{`/x "say \"hi\""`, []string{"/x", `say "hi"`}},
		{`/x ""`, []string{"/x", ""}},
		{"  /help   ", []string{"/help"}},
		{"", nil},
	}

	for _, tc := range tests {
		got := splitCommandLine(tc.input)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitCommandLine(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"chat", "hello there", ChatCommand{Text: "hello there"}},
		{"chat trimmed", "  hello  ", ChatCommand{Text: "hello"}},
		{"unknown command is chat", "/unknown x", ChatCommand{Text: "/unknown x"}},
		{"plain", "/plain explain this", PlainChatCommand{Text: "explain this"}},
		{"plain uppercase", "/PLAIN hi", PlainChatCommand{Text: "hi"}},
		{"plain empty", "/plain", PlainChatCommand{Text: ""}},
		{"help", "/help", HelpCommand{}},
		{"help uppercase", "/HELP", HelpCommand{}},
		{"help alias", "/?", HelpCommand{}},
		{"new", "/new", NewConversationCommand{}},
		{"model info", "/model", ModelCommand{}},
		{"model info alias", "/model-info", ModelCommand{}},
		{"model switch", "/model llama3.2:3b", ModelCommand{Model: "llama3.2:3b"}},
		{"model default", "/model default", ModelCommand{Model: "default"}},
		{"model set empty", "/model set", ModelSetCommand{}},
		{"host show", "/host", HostCommand{}},
		{"host switch", "/host http://10.0.0.2:11434", HostCommand{Host: "http://10.0.0.2:11434"}},
		{"copy", "/copy", CopyCommand{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseModelSet(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		assignments []inference.Assignment
		errors      []string
	}{
		{
			name:        "single",
			input:       "/model set -temperature 0.5",
			assignments: []inference.Assignment{{Name: "temperature", Value: "0.5"}},
		},
		{
			name:  "several with aliases",
			input: "/model set -t 0.2 -k 20 --num_ctx 8192",
			assignments: []inference.Assignment{
				{Name: "t", Value: "0.2"},
				{Name: "k", Value: "20"},
				{Name: "num_ctx", Value: "8192"},
			},
		},
		{
			name:        "negative number is a value",
			input:       "/model set -seed -1",
			assignments: []inference.Assignment{{Name: "seed", Value: "-1"}},
		},
		{
			name:        "equals form",
			input:       "/model set -top_p=0.8",
			assignments: []inference.Assignment{{Name: "top_p", Value: "0.8"}},
		},
		{
			name:        "quoted stop list",
			input:       `/model set -stop "User:, ###"`,
			assignments: []inference.Assignment{{Name: "stop", Value: "User:, ###"}},
		},
		{
			name:   "stray argument and missing value",
			input:  "/model set foo -t",
			errors: []string{"unexpected argument foo", "missing value for t"},
		},
		{
			name:        "missing value before next flag",
			input:       "/model set -t -k 3",
			assignments: []inference.Assignment{{Name: "k", Value: "3"}},
			errors:      []string{"missing value for t"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := Parse(tc.input).(ModelSetCommand)
			if !ok {
				t.Fatalf("Parse(%q) is not a ModelSetCommand", tc.input)
			}
			if !reflect.DeepEqual(cmd.Assignments, tc.assignments) {
				t.Errorf("assignments = %v, want %v", cmd.Assignments, tc.assignments)
			}
			if !reflect.DeepEqual(cmd.Errors, tc.errors) {
				t.Errorf("errors = %q, want %q", cmd.Errors, tc.errors)
			}
		})
	}
}

func TestCommandNames(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{ChatCommand{}, "chat"},
		{PlainChatCommand{}, "/plain"},
		{HelpCommand{}, "/help"},
		{NewConversationCommand{}, "/new"},
		{ModelCommand{}, "/model"},
		{ModelSetCommand{}, "/model set"},
		{HostCommand{}, "/host"},
		{CopyCommand{}, "/copy"},
	}

	for _, tc := range tests {
		if got := tc.cmd.Name(); got != tc.want {
			t.Errorf("%T.Name() = %q, want %q", tc.cmd, got, tc.want)
		}
	}
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func values(completions []Completion) []string {
	var out []string
	for _, c := range completions {
		out = append(out, c.Value)
	}
	return out
}

func TestCompleterCommands(t *testing.T) {
	c := NewCompleter(nil)

	got := values(c.Complete("/mo"))
	want := []string{"/model", "/model-info"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Complete(/mo) = %q, want %q", got, want)
	}

	if got := c.Complete("hello"); got != nil {
		t.Errorf("Complete(hello) = %v, want nil", got)
	}
	if got := values(c.Complete("/HEL")); !reflect.DeepEqual(got, []string{"/help"}) {
		t.Errorf("Complete(/HEL) = %q", got)
	}
}

func TestCompleterArguments(t *testing.T) {
	c := NewCompleter(func() []string { return []string{"qwen3:1.7b", "llama3.2:3b"} })

	tests := []struct {
		input string
		want  []string
	}{
		{"/model q", []string{"qwen3:1.7b"}},
		{"/model s", []string{"set"}},
		{"/model set -te", []string{"-temperature"}},
		{"/model set -top", []string{"-top_k", "-top_p"}},
		{"/host d", []string{"default"}},
		{"/copy x", nil},
	}

	for _, tc := range tests {
		got := values(c.Complete(tc.input))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Complete(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestLineCompleter(t *testing.T) {
	complete := NewCompleter(nil).LineCompleter()

	got := complete("/model set -rep")
	want := []string{"/model set -repeat_penalty"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LineCompleter = %q, want %q", got, want)
	}

	if got := complete("/cop"); !reflect.DeepEqual(got, []string{"/copy"}) {
		t.Errorf("LineCompleter(/cop) = %q", got)
	}
}
