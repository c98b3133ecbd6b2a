// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import (
	"regexp"
	"strings"
)

// fenceLine matches a fence line: up to three spaces of indent, two or more
// backticks, an optional language id and trailing blanks.
var fenceLine = regexp.MustCompile("^( {0,3})(`{2,})([A-Za-z0-9_#+.\\-]*)[ \t]*$")

// partialFence matches a closing fence that is still arriving.
var partialFence = regexp.MustCompile("^ {0,3}`{1,2}$")

type fence struct {
	indent   string
	ticks    string
	language string
}

func parseFence(line string) (fence, bool) {
	m := fenceLine.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return fence{}, false
	}
	return fence{indent: m[1], ticks: m[2], language: m[3]}, true
}

// normalized returns the fence line with two backticks widened to three.
func (f fence) normalized() string {
	ticks := f.ticks
	if len(ticks) == 2 {
		ticks = "```"
	}
	return f.indent + ticks + f.language
}

// splitLines splits s after each newline. The final element has no newline
// and may be empty.
func splitLines(s string) []string {
	return strings.SplitAfter(s, "\n")
}

// CloseTrailingCodeBlock normalizes two-backtick fences to three backticks
// and appends a closing fence when the text ends inside a fenced block.
//
// A fence line with a language id never closes a block; inside a block it is
// code. A trailing line of one or two backticks inside an open block is the
// start of a closing fence and is completed instead of being treated as code.
func CloseTrailingCodeBlock(text string) string {
	if text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 4)

	lines := splitLines(text)
	open := false
	for i, raw := range lines {
		body := strings.TrimSuffix(raw, "\n")
		newline := raw[len(body):]
		last := i == len(lines)-1

		if f, ok := parseFence(body); ok {
			switch {
			case !open:
				open = true
				b.WriteString(f.normalized())
				b.WriteString(newline)
				continue
			case f.language == "":
				open = false
				b.WriteString(f.normalized())
				b.WriteString(newline)
				continue
			}
		}

		if open && last && partialFence.MatchString(body) {
			b.WriteString(strings.TrimRight(body, "`"))
			b.WriteString("```")
			open = false
			continue
		}

		b.WriteString(raw)
	}

	if open {
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```")
	}
	return b.String()
}
