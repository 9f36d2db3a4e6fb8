package editor

import (
	"testing"

	"github.com/dukex/flowdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(ids ...string) Snapshot {
	nodes := make([]*models.WorkflowNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, &models.WorkflowNode{ID: id, Type: models.NodeTypeTask})
	}

	return Snapshot{Nodes: nodes}
}

func TestHistory_UndoRedo(t *testing.T) {
	t.Parallel()

	h := NewHistory(snapshotWith(), 0)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	h.Record(snapshotWith("a"))
	h.Record(snapshotWith("a", "b"))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Index())

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Len(t, s.Nodes, 1)

	s, ok = h.Undo()
	require.True(t, ok)
	assert.Empty(t, s.Nodes)

	_, ok = h.Undo()
	assert.False(t, ok)

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Len(t, s.Nodes, 1)
}

func TestHistory_RecordTruncatesRedoTail(t *testing.T) {
	t.Parallel()

	h := NewHistory(snapshotWith(), 0)
	h.Record(snapshotWith("a"))
	h.Record(snapshotWith("a", "b"))
	h.Undo()
	h.Undo()

	h.Record(snapshotWith("c"))
	assert.Equal(t, 2, h.Len())
	assert.False(t, h.CanRedo())

	_, ok := h.Redo()
	assert.False(t, ok)
}

func TestHistory_Limit(t *testing.T) {
	t.Parallel()

	h := NewHistory(snapshotWith(), 2)
	h.Record(snapshotWith("a"))
	h.Record(snapshotWith("a", "b"))

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.Index())

	s, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", s.Nodes[0].ID)
	assert.False(t, h.CanUndo())
}

func TestGraphStore_SnapshotIsolation(t *testing.T) {
	t.Parallel()

	g := newGraphStore()
	g.putNode(&models.WorkflowNode{ID: "a", Type: models.NodeTypeStart, Config: &models.StartConfig{}})
	g.putNode(&models.WorkflowNode{ID: "b", Type: models.NodeTypeEnd, Config: &models.EndConfig{}})
	g.putEdge(&models.WorkflowEdge{ID: "ab", Source: "a", Target: "b"})

	snap := g.snapshot()

	node, _ := g.node("a")
	node.Title = "changed"
	removed, ok := g.removeNode("b")
	require.True(t, ok)
	assert.Equal(t, []string{"ab"}, removed)

	assert.Empty(t, snap.Nodes[0].Title)
	assert.Len(t, snap.Edges, 1)

	g.restore(snap)
	assert.True(t, g.HasEdge("a", "b"))
	assert.Equal(t, []string{"b"}, g.Successors("a"))

	restored, _ := g.node("a")
	assert.Empty(t, restored.Title)
}
