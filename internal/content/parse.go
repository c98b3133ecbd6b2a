// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import "strings"

// Reasoning tags recognized at the very start of a message.
const (
	ReasoningOpen  = "<think>"
	ReasoningClose = "</think>"
)

// Parse splits text into display segments.
//
// A leading reasoning section becomes a Reasoning segment. The rest is split
// into fenced Code segments and Text segments holding everything between
// them, in order. Parse never fails and never returns two adjacent Text
// segments.
func Parse(text string) []Segment {
	var segments []Segment

	rest := text
	if strings.HasPrefix(rest, ReasoningOpen) {
		body := rest[len(ReasoningOpen):]
		end := strings.Index(body, ReasoningClose)
		if end < 0 {
			return append(segments, Reasoning(body, true))
		}
		segments = append(segments, Reasoning(body[:end], false))
		rest = body[end+len(ReasoningClose):]
	}

	return append(segments, parseBlocks(CloseTrailingCodeBlock(rest))...)
}

// parseBlocks splits text whose fences are all closed.
func parseBlocks(text string) []Segment {
	var segments []Segment

	pos := 0
	textStart := 0
	codeStart := 0
	var opening fence
	open := false

	for _, raw := range splitLines(text) {
		lineStart := pos
		pos += len(raw)
		body := strings.TrimSuffix(raw, "\n")

		f, ok := parseFence(body)
		if !ok {
			continue
		}

		if !open {
			if lineStart > textStart {
				segments = append(segments, Text(text[textStart:lineStart]))
			}
			open = true
			opening = f
			codeStart = pos
			continue
		}
		if f.language != "" {
			continue
		}

		code := ""
		if lineStart > codeStart {
			code = strings.TrimSuffix(text[codeStart:lineStart], "\n")
		}
		segments = append(segments, Code(opening.language, code))
		open = false
		textStart = lineStart + len(body)
	}

	if open {
		segments = append(segments, Code(opening.language, text[min(codeStart, len(text)):]))
	} else if textStart < len(text) {
		segments = append(segments, Text(text[textStart:]))
	}
	return segments
}
