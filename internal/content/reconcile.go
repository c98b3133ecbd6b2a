// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package content

import "sync"

// OpKind is the kind of change a renderer applies.
type OpKind int

const (
	// OpAppend adds a new segment view at the end.
	OpAppend OpKind = iota
	// OpUpdate updates the segment view at Index in place.
	OpUpdate
	// OpTruncate removes every segment view from Index on.
	OpTruncate
)

func (k OpKind) String() string {
	switch k {
	case OpAppend:
		return "append"
	case OpUpdate:
		return "update"
	case OpTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// Op is one change to a rendered segment list.
type Op struct {
	Kind    OpKind
	Index   int
	Segment Segment
}

// Diff computes the operations that turn a view showing prev into one
// showing next.
//
// Equal segments are left alone. A segment that extends the previous one at
// the same index is updated in place. At the first segment that does
// neither, every view from there on is dropped and the rest of next is
// appended.
func Diff(prev, next []Segment) []Op {
	var ops []Op
	for i, seg := range next {
		if i >= len(prev) {
			ops = append(ops, Op{Kind: OpAppend, Index: i, Segment: seg})
			continue
		}
		old := prev[i]
		if old == seg {
			continue
		}
		if seg.Extends(old) {
			ops = append(ops, Op{Kind: OpUpdate, Index: i, Segment: seg})
			continue
		}
		ops = append(ops, Op{Kind: OpTruncate, Index: i})
		for j := i; j < len(next); j++ {
			ops = append(ops, Op{Kind: OpAppend, Index: j, Segment: next[j]})
		}
		return ops
	}
	if len(prev) > len(next) {
		ops = append(ops, Op{Kind: OpTruncate, Index: len(next)})
	}
	return ops
}

// Renderer owns one view per segment.
type Renderer interface {
	AppendSegment(seg Segment)
	UpdateSegment(index int, seg Segment)
	TruncateSegments(from int)
}

// Reconciler keeps a Renderer in sync with a growing message body.
type Reconciler struct {
	mu       sync.Mutex
	renderer Renderer
	current  []Segment
}

// NewReconciler creates a reconciler driving r.
func NewReconciler(r Renderer) *Reconciler {
	return &Reconciler{renderer: r}
}

// Render parses text, applies the difference from the last render and
// returns the operations applied.
func (r *Reconciler) Render(text string) []Op {
	next := Parse(text)

	r.mu.Lock()
	defer r.mu.Unlock()

	ops := Diff(r.current, next)
	for _, op := range ops {
		switch op.Kind {
		case OpAppend:
			r.renderer.AppendSegment(op.Segment)
		case OpUpdate:
			r.renderer.UpdateSegment(op.Index, op.Segment)
		case OpTruncate:
			r.renderer.TruncateSegments(op.Index)
		}
	}
	r.current = next
	return ops
}

// Segments returns the segments currently shown.
func (r *Reconciler) Segments() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Segment, len(r.current))
	copy(out, r.current)
	return out
}

// Reset forgets the current segments and clears the renderer.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.current) > 0 {
		r.renderer.TruncateSegments(0)
	}
	r.current = nil
}
