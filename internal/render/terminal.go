// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis/internal/content"
	"github.com/jeranaias/jarvis/internal/model"
)

// Options configures a Terminal.
type Options struct {
	// Width of the terminal in cells, used to count wrapped rows.
	Width int
	// WordWrap for markdown text (default 80).
	WordWrap int
	// Color enables styles, markdown rendering and syntax highlighting.
	Color bool
	// Live repaints the in-progress reply. Without it nothing is printed
	// until the reply is final.
	Live bool
}

// Terminal prints messages and keeps the reply being generated in a
// repainted region at the bottom of the output. It implements
// content.Renderer for that region.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	opts     Options
	markdown *glamour.TermRenderer

	// segments holds the rendered form of each live segment.
	segments []string
	// rows is the number of screen rows the live region occupies.
	rows int
}

var _ content.Renderer = (*Terminal)(nil)

// NewTerminal creates a terminal writing to out.
func NewTerminal(out io.Writer, opts Options) *Terminal {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = 80
	}
	t := &Terminal{out: out, opts: opts}
	if opts.Color {
		t.markdown = newMarkdownRenderer(opts.WordWrap)
	}
	return t
}

// =============================================================================
// LIVE REGION
// =============================================================================

// AppendSegment adds a segment to the live region.
func (t *Terminal) AppendSegment(seg content.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = append(t.segments, t.renderSegment(seg))
	t.repaintLocked()
}

// UpdateSegment re-renders the live segment at index.
func (t *Terminal) UpdateSegment(index int, seg content.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.segments) {
		return
	}
	t.segments[index] = t.renderSegment(seg)
	t.repaintLocked()
}

// TruncateSegments drops live segments from index on.
func (t *Terminal) TruncateSegments(from int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if from < 0 {
		from = 0
	}
	if from >= len(t.segments) {
		return
	}
	t.segments = t.segments[:from]
	t.repaintLocked()
}

// ClearLive erases the live region.
func (t *Terminal) ClearLive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eraseLocked()
	t.segments = nil
}

// LiveSegments returns the number of segments in the live region.
func (t *Terminal) LiveSegments() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.segments)
}

func (t *Terminal) repaintLocked() {
	if !t.opts.Live {
		return
	}
	t.eraseLocked()
	if len(t.segments) == 0 {
		return
	}

	block := t.label(model.RoleAssistant) + "\n" + strings.Join(t.segments, "\n") + "\n"
	fmt.Fprint(t.out, block)
	t.rows = t.countRows(block)
}

// eraseLocked moves the cursor to the first row of the live region and
// clears everything below it.
func (t *Terminal) eraseLocked() {
	if t.rows == 0 {
		return
	}
	fmt.Fprintf(t.out, "\x1b[%dF\x1b[J", t.rows)
	t.rows = 0
}

// countRows counts the rows block occupies once the terminal wraps it.
func (t *Terminal) countRows(block string) int {
	rows := 0
	for _, line := range strings.Split(strings.TrimSuffix(block, "\n"), "\n") {
		w := lipgloss.Width(line)
		if w <= t.opts.Width {
			rows++
			continue
		}
		rows += (w + t.opts.Width - 1) / t.opts.Width
	}
	return rows
}

// =============================================================================
// FINISHED OUTPUT
// =============================================================================

// PrintMessage prints a finished message below the live region.
func (t *Terminal) PrintMessage(m model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var body string
	switch m.Role {
	case model.RoleAssistant:
		parts := make([]string, 0, 2)
		for _, seg := range content.Parse(m.ClosedContent()) {
			parts = append(parts, t.renderSegment(seg))
		}
		body = strings.Join(parts, "\n")
	case model.RoleInfo:
		body = t.renderMarkdown(m.Content)
	default:
		body = m.Content
	}

	t.eraseLocked()
	fmt.Fprintf(t.out, "%s\n%s\n\n", t.label(m.Role), body)
	t.repaintLocked()
}

// PrintStatus prints a one-line note, such as stream statistics.
func (t *Terminal) PrintStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.eraseLocked()
	fmt.Fprintln(t.out, t.style(StatusStyle, text))
	t.repaintLocked()
}

// =============================================================================
// SEGMENT RENDERING
// =============================================================================

// RenderSegment returns the terminal form of one segment.
func (t *Terminal) RenderSegment(seg content.Segment) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renderSegment(seg)
}

func (t *Terminal) renderSegment(seg content.Segment) string {
	switch seg.Kind {
	case content.KindCode:
		code := strings.TrimSuffix(seg.Body, "\n")
		if t.opts.Color {
			code = strings.TrimSuffix(highlightCode(code, seg.Language), "\n")
		}
		return t.style(LanguageStyle, "["+seg.Language+"]") + "\n" + code

	case content.KindReasoning:
		title := "Thought"
		if seg.InProgress {
			title = "Thinking..."
		}
		text := strings.TrimSpace(seg.Display())
		if text == "" {
			return t.style(ReasoningStyle, title)
		}
		return t.style(ReasoningStyle, title+"\n"+text)

	default:
		return t.renderMarkdown(seg.Body)
	}
}

func (t *Terminal) renderMarkdown(md string) string {
	if t.markdown == nil {
		return strings.Trim(md, "\n")
	}
	out, err := t.markdown.Render(md)
	if err != nil {
		return strings.Trim(md, "\n")
	}
	return strings.Trim(out, "\n")
}

func (t *Terminal) label(r model.Role) string {
	return t.style(roleStyle(r), r.DisplayName())
}

func (t *Terminal) style(s lipgloss.Style, text string) string {
	if !t.opts.Color {
		return text
	}
	return s.Render(text)
}
