// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/jeranaias/jarvis/internal/model"
)

// MaxContextBytes caps the file attached with --context.
const MaxContextBytes = 64 * 1024

// LoadCodeContext builds the code context sent with chat messages. project
// defaults to the name of the working directory. When path is set its
// contents (optionally only the lines in lineRange, e.g. "10-20") become
// the selected code.
func LoadCodeContext(project, path, lineRange string) (*model.CodeContext, error) {
	if project == "" {
		if wd, err := os.Getwd(); err == nil {
			project = filepath.Base(wd)
		}
	}
	cc := &model.CodeContext{ProjectName: project}
	if path == "" {
		return cc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}
	if len(data) > MaxContextBytes {
		return nil, fmt.Errorf("context file %s is larger than %d bytes, use --lines", path, MaxContextBytes)
	}

	code := string(data)
	if lineRange != "" {
		code, err = selectLines(code, lineRange)
		if err != nil {
			return nil, err
		}
	}

	cc.Selected = &model.SelectedCode{
		Content:    code,
		LanguageID: languageID(path),
	}
	return cc, nil
}

// selectLines returns lines from through to (1-based, inclusive) of text.
func selectLines(text, lineRange string) (string, error) {
	fromStr, toStr, ok := strings.Cut(lineRange, "-")
	if !ok {
		toStr = fromStr
	}
	from, err1 := strconv.Atoi(strings.TrimSpace(fromStr))
	to, err2 := strconv.Atoi(strings.TrimSpace(toStr))
	if err1 != nil || err2 != nil || from < 1 || to < from {
		return "", fmt.Errorf("invalid line range %q, want A-B", lineRange)
	}

	lines := strings.Split(text, "\n")
	if from > len(lines) {
		return "", fmt.Errorf("line range %q is past the end of the file (%d lines)", lineRange, len(lines))
	}
	if to > len(lines) {
		to = len(lines)
	}
	return strings.Join(lines[from-1:to], "\n"), nil
}

// languageID names the language of path for the code fence, using chroma's
// filename patterns. Unknown files get an empty ID.
func languageID(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
