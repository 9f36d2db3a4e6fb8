package editor

import "github.com/dukex/flowdesk/pkg/models"

// Snapshot is an immutable copy of the graph at one action boundary.
type Snapshot struct {
	Nodes []*models.WorkflowNode `json:"nodes"`
	Edges []*models.WorkflowEdge `json:"edges"`
}

// History is a linear undo/redo stack of full graph snapshots.
type History struct {
	entries []Snapshot
	index   int
	limit   int // 0 means unbounded
}

// NewHistory returns a history whose only entry is initial.
func NewHistory(initial Snapshot, limit int) *History {
	return &History{
		entries: []Snapshot{initial},
		index:   0,
		limit:   limit,
	}
}

// Record discards the redo tail and appends s as the current entry.
func (h *History) Record(s Snapshot) {
	h.entries = append(h.entries[:h.index+1], s)
	h.index = len(h.entries) - 1

	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([]Snapshot(nil), h.entries[drop:]...)
		h.index -= drop
	}
}

// Undo steps back one entry. It reports false when already at the oldest entry.
func (h *History) Undo() (Snapshot, bool) {
	if h.index <= 0 {
		return Snapshot{}, false
	}

	h.index--

	return h.entries[h.index], true
}

// Redo steps forward one entry. It reports false when already at the newest entry.
func (h *History) Redo() (Snapshot, bool) {
	if h.index >= len(h.entries)-1 {
		return Snapshot{}, false
	}

	h.index++

	return h.entries[h.index], true
}

func (h *History) CanUndo() bool { return h.index > 0 }

func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len returns the number of recorded entries, including the initial one.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the currently applied entry.
func (h *History) Index() int { return h.index }
