// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// LineReader reads one line of user input. It returns io.EOF when the input
// is exhausted and liner.ErrPromptAborted when the user pressed Ctrl+C at
// the prompt.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// =============================================================================
// INTERACTIVE INPUT
// =============================================================================

// LineInput reads from the terminal with line editing, tab completion and
// history that persists across sessions.
type LineInput struct {
	line        *liner.State
	historyFile string
}

// NewLineInput puts the terminal under liner's control. complete may be nil.
// Close must be called to save history and restore the terminal.
func NewLineInput(historyFile string, complete func(line string) []string) *LineInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}

	in := &LineInput{line: line, historyFile: historyFile}
	in.loadHistory()
	return in
}

func (in *LineInput) loadHistory() {
	if in.historyFile == "" {
		return
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line. Non-blank input is added to history.
func (in *LineInput) Prompt(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (in *LineInput) Close() error {
	defer in.line.Close()

	if in.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = in.line.WriteHistory(f)
	return err
}

// =============================================================================
// PIPED INPUT
// =============================================================================

// ScannerInput reads lines from a non-interactive source such as a pipe.
// The prompt is not printed.
type ScannerInput struct {
	sc *bufio.Scanner
}

// NewScannerInput reads lines from r.
func NewScannerInput(r io.Reader) *ScannerInput {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ScannerInput{sc: sc}
}

// Prompt returns the next line, or io.EOF.
func (in *ScannerInput) Prompt(string) (string, error) {
	if in.sc.Scan() {
		return in.sc.Text(), nil
	}
	if err := in.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
