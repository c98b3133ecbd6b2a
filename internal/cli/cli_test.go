// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/jarvis/internal/ollama"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Args
	}{
		{
			name: "no arguments",
			args: nil,
			want: Args{},
		},
		{
			name: "model and host",
			args: []string{"-m", "llama3.2", "--host=http://gpu:11434"},
			want: Args{Model: "llama3.2", Host: "http://gpu:11434"},
		},
		{
			name: "boolean flags do not swallow the message",
			args: []string{"--no-color", "-v", "explain", "this"},
			want: Args{NoColor: true, Verbose: true, Message: "explain this"},
		},
		{
			name: "context with lines",
			args: []string{"--context", "main.go", "--lines", "3-9", "--project", "demo"},
			want: Args{Context: "main.go", Lines: "3-9", Project: "demo"},
		},
		{
			name: "double dash ends flags",
			args: []string{"--", "-v", "is", "a", "flag"},
			want: Args{Message: "-v is a flag"},
		},
		{
			name: "explicit boolean value",
			args: []string{"--no-color=false", "--help"},
			want: Args{Help: true},
		},
		{
			name: "config path short form",
			args: []string{"-c", "/tmp/jarvis.toml", "--version"},
			want: Args{ConfigPath: "/tmp/jarvis.toml", Version: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%q) error = %v", tt.args, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing value", []string{"--model"}, "needs a value"},
		{"unknown flag", []string{"--bogus", "x"}, "unknown flag --bogus"},
		{"unknown boolean", []string{"--bogus=true"}, "unknown flag --bogus"},
		{"lines without context", []string{"--lines", "1-2"}, "--lines requires --context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Fatalf("ParseArgs(%q) expected error", tt.args)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// CODE CONTEXT TESTS (codecontext.go)
// =============================================================================

func TestLoadCodeContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cc, err := LoadCodeContext("demo", path, "")
	if err != nil {
		t.Fatalf("LoadCodeContext error = %v", err)
	}
	if cc.ProjectName != "demo" {
		t.Errorf("ProjectName = %q, want %q", cc.ProjectName, "demo")
	}
	if !cc.HasSelectedCode() {
		t.Fatal("expected selected code")
	}
	if cc.Selected.LanguageID != "go" {
		t.Errorf("LanguageID = %q, want %q", cc.Selected.LanguageID, "go")
	}
	if cc.Selected.Content != "package main\n\nfunc main() {}\n" {
		t.Errorf("Content = %q", cc.Selected.Content)
	}

	cc, err = LoadCodeContext("demo", path, "3-3")
	if err != nil {
		t.Fatalf("LoadCodeContext with lines error = %v", err)
	}
	if cc.Selected.Content != "func main() {}" {
		t.Errorf("Content = %q, want %q", cc.Selected.Content, "func main() {}")
	}
}

func TestLoadCodeContext_NoFile(t *testing.T) {
	cc, err := LoadCodeContext("", "", "")
	if err != nil {
		t.Fatalf("LoadCodeContext error = %v", err)
	}
	if cc.ProjectName == "" {
		t.Error("ProjectName should default to the working directory name")
	}
	if cc.HasSelectedCode() {
		t.Error("no code should be selected")
	}

	if _, err := LoadCodeContext("demo", filepath.Join(t.TempDir(), "missing.go"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSelectLines(t *testing.T) {
	text := "one\ntwo\nthree\nfour"

	tests := []struct {
		lineRange string
		want      string
		wantErr   bool
	}{
		{"2-3", "two\nthree", false},
		{"2", "two", false},
		{"3-99", "three\nfour", false},
		{" 1 - 1 ", "one", false},
		{"3-2", "", true},
		{"0-1", "", true},
		{"a-b", "", true},
		{"9-10", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.lineRange, func(t *testing.T) {
			got, err := selectLines(text, tt.lineRange)
			if (err != nil) != tt.wantErr {
				t.Fatalf("selectLines(%q) error = %v, wantErr %v", tt.lineRange, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("selectLines(%q) = %q, want %q", tt.lineRange, got, tt.want)
			}
		})
	}
}

func TestLanguageID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"/src/app/script.py", "python"},
		{"notes.unknownext", ""},
	}

	for _, tt := range tests {
		if got := languageID(tt.path); got != tt.want {
			t.Errorf("languageID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// =============================================================================
// TERMINAL TESTS (terminal.go)
// =============================================================================

func TestDetectColors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		tty  bool
		want bool
	}{
		{"tty", nil, true, true},
		{"pipe", nil, false, false},
		{"NO_COLOR on tty", map[string]string{"NO_COLOR": "1"}, true, false},
		{"FORCE_COLOR on pipe", map[string]string{"FORCE_COLOR": "1"}, false, true},
		{"NO_COLOR wins", map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			isTTY := func() bool { return tt.tty }
			if got := detectColors(getenv, isTTY); got != tt.want {
				t.Errorf("detectColors() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForceColorsEnabled(t *testing.T) {
	ForceColorsEnabled(false)
	if ColorsEnabled() {
		t.Error("ColorsEnabled() = true after ForceColorsEnabled(false)")
	}
	ForceColorsEnabled(true)
	if !ColorsEnabled() {
		t.Error("ColorsEnabled() = false after ForceColorsEnabled(true)")
	}
	ForceColorsEnabled(false)
}

// =============================================================================
// INPUT AND CLIENT POOL TESTS
// =============================================================================

func TestScannerInput(t *testing.T) {
	in := NewScannerInput(strings.NewReader("first\nsecond line\n"))

	for _, want := range []string{"first", "second line"} {
		got, err := in.Prompt(DefaultPrompt)
		if err != nil {
			t.Fatalf("Prompt() error = %v", err)
		}
		if got != want {
			t.Errorf("Prompt() = %q, want %q", got, want)
		}
	}
	if _, err := in.Prompt(DefaultPrompt); err != io.EOF {
		t.Errorf("Prompt() at end error = %v, want io.EOF", err)
	}
}

func TestClientPool(t *testing.T) {
	pool := NewClientPool(ollama.ClientConfig{})

	a := pool.Client("http://a:11434")
	if pool.Client("http://a:11434") != a {
		t.Error("Client should return the same client for a host")
	}
	b := pool.Client("http://b:11434")
	if b == a {
		t.Error("Client should return a new client for another host")
	}
	if b.BaseURL() != "http://b:11434" {
		t.Errorf("BaseURL() = %q, want %q", b.BaseURL(), "http://b:11434")
	}
	pool.CancelAll()
}
