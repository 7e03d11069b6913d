// Package history provides linear undo/redo over the graph editor state.
package history

import "mindmesh/domain/core/aggregates"

// Snapshot is an immutable copy of the graph's nodes and edges captured
// before a mutating operation.
type Snapshot struct {
	Nodes []aggregates.Node
	Edges []aggregates.Edge
}

// History keeps a bounded undo stack and an unbounded redo stack with
// standard linear semantics: recording a snapshot after a fresh user action
// discards the redo stack, and the oldest undo entries are evicted once the
// bound is exceeded.
type History struct {
	limit int
	undo  []Snapshot
	redo  []Snapshot
}

// New creates a history with the given undo bound. Non-positive bounds
// fall back to a single entry.
func New(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Record pushes the pre-mutation snapshot onto the undo stack and clears
// the redo stack. Overflow evicts the oldest entry silently.
func (h *History) Record(s Snapshot) {
	h.undo = append(h.undo, s)
	if len(h.undo) > h.limit {
		// Shift rather than reslice so the evicted snapshot is released.
		copy(h.undo, h.undo[1:])
		h.undo[len(h.undo)-1] = Snapshot{}
		h.undo = h.undo[:len(h.undo)-1]
	}
	h.redo = nil
}

// Undo pops the most recent snapshot, stashing current on the redo stack.
// Returns false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	top := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return top, true
}

// Redo is the symmetric inverse of Undo. Returns false when there is
// nothing to redo.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	top := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	return top, true
}

// CanUndo reports whether an undo is available.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether a redo is available.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// UndoDepth returns the number of recoverable snapshots.
func (h *History) UndoDepth() int {
	return len(h.undo)
}

// Reset discards both stacks.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}
