package editor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0

	return func() string {
		n++

		return fmt.Sprintf("id-%d", n)
	}
}

func newEditor(t *testing.T, opts ...editor.Option) *editor.Editor {
	t.Helper()

	opts = append([]editor.Option{editor.WithIDGenerator(sequentialIDs())}, opts...)

	return editor.New(opts...)
}

func addNode(t *testing.T, ed *editor.Editor, nodeType models.NodeType, x, y float64) *models.WorkflowNode {
	t.Helper()

	node, err := ed.AddNode(nodeType, x, y)
	require.NoError(t, err)
	require.NotNil(t, node)

	return node
}

func addEdge(t *testing.T, ed *editor.Editor, source, target string) *models.WorkflowEdge {
	t.Helper()

	edge, err := ed.AddEdge(source, target, "")
	require.NoError(t, err)
	require.NotNil(t, edge)

	return edge
}

func TestScenario_AddNodesAndEdge(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	start := addNode(t, ed, models.NodeTypeStart, 50, 50)
	end := addNode(t, ed, models.NodeTypeEnd, 300, 50)

	assert.Len(t, ed.Nodes(), 2)

	edge := addEdge(t, ed, start.ID, end.ID)

	edges := ed.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, start.ID, edges[0].Source)
	assert.Equal(t, end.ID, edges[0].Target)
	assert.Equal(t, edge.ID, edges[0].ID)
}

func TestScenario_DeleteNodeCascades(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	start := addNode(t, ed, models.NodeTypeStart, 50, 50)
	end := addNode(t, ed, models.NodeTypeEnd, 300, 50)
	addEdge(t, ed, start.ID, end.ID)

	require.NoError(t, ed.DeleteNode(start.ID))

	nodes := ed.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, end.ID, nodes[0].ID)
	assert.Empty(t, ed.Edges())
}

func TestScenario_UndoSteps(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	start := addNode(t, ed, models.NodeTypeStart, 50, 50)
	end := addNode(t, ed, models.NodeTypeEnd, 300, 50)
	addEdge(t, ed, start.ID, end.ID)

	require.True(t, ed.Undo())
	assert.Empty(t, ed.Edges())
	assert.Len(t, ed.Nodes(), 2)

	require.True(t, ed.Undo())
	assert.Len(t, ed.Nodes(), 1)
}

func TestScenario_ReadOnlyAddNode(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	addNode(t, ed, models.NodeTypeStart, 0, 0)
	ed.SetReadOnly(true)

	node, err := ed.AddNode(models.NodeTypeTask, 10, 10)
	require.NoError(t, err)
	assert.Nil(t, node)
	assert.Len(t, ed.Nodes(), 1)
}

func TestScenario_SelectNodeThenEdge(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	b := addNode(t, ed, models.NodeTypeEnd, 200, 0)
	e := addEdge(t, ed, a.ID, b.ID)

	require.NoError(t, ed.SelectNode(a.ID))
	require.NoError(t, ed.SelectEdge(e.ID))

	assert.Empty(t, ed.Selection().NodeID)
	assert.Equal(t, e.ID, ed.Selection().EdgeID)
}

func TestProperty_CascadeDelete(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	hub := addNode(t, ed, models.NodeTypeCondition, 0, 0)

	var others []*models.WorkflowNode
	for i := range 5 {
		others = append(others, addNode(t, ed, models.NodeTypeTask, float64(100*i), 100))
	}

	for i, other := range others {
		if i%2 == 0 {
			addEdge(t, ed, hub.ID, other.ID)
		} else {
			addEdge(t, ed, other.ID, hub.ID)
		}
	}

	unrelated := addEdge(t, ed, others[0].ID, others[1].ID)

	require.NoError(t, ed.DeleteNode(hub.ID))

	edges := ed.Edges()
	for _, edge := range edges {
		assert.NotEqual(t, hub.ID, edge.Source)
		assert.NotEqual(t, hub.ID, edge.Target)
	}

	require.Len(t, edges, 1)
	assert.Equal(t, unrelated.ID, edges[0].ID)
}

func TestProperty_UndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 10, 10)
	b := addNode(t, ed, models.NodeTypeApproval, 200, 10)
	c := addNode(t, ed, models.NodeTypeEnd, 400, 10)
	ab := addEdge(t, ed, a.ID, b.ID)
	addEdge(t, ed, b.ID, c.ID)

	title := "Manager approval"
	require.NoError(t, ed.UpdateNodeField(b.ID, editor.NodePatch{Title: &title}))
	require.NoError(t, ed.UpdateNodeConfig(b.ID, map[string]any{"assignee": "line-manager"}))

	label := "approved"
	require.NoError(t, ed.UpdateEdgeField(ab.ID, editor.EdgePatch{Label: &label}))
	require.NoError(t, ed.DeleteNode(a.ID))

	wantNodes, wantEdges := ed.Nodes(), ed.Edges()
	steps := ed.History().Index()
	require.Equal(t, 9, steps)

	for range steps {
		require.True(t, ed.Undo())
	}

	assert.False(t, ed.Undo(), "undo past the initial entry is a no-op")
	assert.Empty(t, ed.Nodes())

	for range steps {
		require.True(t, ed.Redo())
	}

	assert.False(t, ed.Redo(), "redo past the newest entry is a no-op")
	assert.Equal(t, wantNodes, ed.Nodes())
	assert.Equal(t, wantEdges, ed.Edges())
}

func TestProperty_SelectionExclusive(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	b := addNode(t, ed, models.NodeTypeEnd, 200, 0)
	e := addEdge(t, ed, a.ID, b.ID)

	require.NoError(t, ed.SelectEdge(e.ID))
	require.NoError(t, ed.SelectNode(b.ID))
	assert.Equal(t, editor.Selection{NodeID: b.ID}, ed.Selection())

	require.NoError(t, ed.PointerDown(a.ID, editor.Point{}))
	assert.Equal(t, editor.Selection{NodeID: a.ID}, ed.Selection())
	ed.PointerUp()

	ed.ClickCanvas()
	assert.True(t, ed.Selection().Empty())

	err := ed.SelectEdge("missing")
	assert.ErrorIs(t, err, editor.ErrEdgeNotFound)
	assert.True(t, ed.Selection().Empty())
}

func TestProperty_ReadOnlyImmutability(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	b := addNode(t, ed, models.NodeTypeTask, 200, 0)
	e := addEdge(t, ed, a.ID, b.ID)

	ed.SetReadOnly(true)

	nodesBefore, edgesBefore := ed.Nodes(), ed.Edges()
	historyBefore := ed.History().Len()

	title := "changed"
	label := "changed"

	_, err := ed.AddNode(models.NodeTypeEnd, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ed.DeleteNode(a.ID))
	_, err = ed.AddEdge(b.ID, a.ID, "")
	require.NoError(t, err)
	require.NoError(t, ed.DeleteEdge(e.ID))
	require.NoError(t, ed.UpdateNodePosition(a.ID, 50, 50))
	require.NoError(t, ed.UpdateNodeField(a.ID, editor.NodePatch{Title: &title}))
	require.NoError(t, ed.UpdateNodeConfig(b.ID, map[string]any{"assignee": "x"}))
	require.NoError(t, ed.UpdateEdgeField(e.ID, editor.EdgePatch{Label: &label}))
	_, err = ed.Drop(models.NodeTypeTask, editor.Point{X: 10, Y: 10}, &editor.Rect{Width: 100, Height: 100})
	require.NoError(t, err)

	require.NoError(t, ed.PointerDown(a.ID, editor.Point{X: 0, Y: 0}))
	ed.PointerMove(editor.Point{X: 300, Y: 300})
	assert.False(t, ed.PointerUp())

	require.NoError(t, ed.CommitField("title", "changed"))
	assert.False(t, ed.Undo())

	assert.Equal(t, nodesBefore, ed.Nodes())
	assert.Equal(t, edgesBefore, ed.Edges())
	assert.Equal(t, historyBefore, ed.History().Len())
	assert.Equal(t, editor.Selection{NodeID: a.ID}, ed.Selection(), "selection stays active in read-only mode")
}

func TestProperty_DragRecordsOneEntry(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeTask, 100, 100)
	before := ed.History().Len()

	require.NoError(t, ed.PointerDown(node.ID, editor.Point{X: 110, Y: 120}))

	for i := 1; i <= 25; i++ {
		ed.PointerMove(editor.Point{X: 110 + float64(i*4), Y: 120 + float64(i*2)})
	}

	assert.Equal(t, before, ed.History().Len(), "pointer moves must not record history")
	require.True(t, ed.PointerUp())
	assert.Equal(t, before+1, ed.History().Len())

	moved, _ := ed.Node(node.ID)
	assert.Equal(t, models.Position{X: 200, Y: 150}, moved.Position)

	require.True(t, ed.Undo())

	reverted, _ := ed.Node(node.ID)
	assert.Equal(t, models.Position{X: 100, Y: 100}, reverted.Position)
}

func TestProperty_ZoomIsPresentationOnly(t *testing.T) {
	t.Parallel()

	for _, zoom := range []float64{0.5, 0.75, 1.3, 2.0} {
		t.Run(fmt.Sprintf("zoom %.2f", zoom), func(t *testing.T) {
			t.Parallel()

			ed := newEditor(t)
			addNode(t, ed, models.NodeTypeStart, 12.5, 40)
			addNode(t, ed, models.NodeTypeEnd, 320, 40)
			before := ed.Nodes()

			ed.SetZoom(zoom)
			assert.InDelta(t, zoom, ed.Zoom(), 1e-9)

			ed.ResetZoom()
			assert.InDelta(t, 1.0, ed.Zoom(), 1e-9)
			assert.Equal(t, before, ed.Nodes())
		})
	}
}

func TestDrag_ScalesByZoom(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeTask, 100, 100)
	ed.SetZoom(2.0)

	// Node origin is drawn at (200, 200) on screen; grab it 10px inside.
	require.NoError(t, ed.PointerDown(node.ID, editor.Point{X: 210, Y: 210}))
	ed.PointerMove(editor.Point{X: 310, Y: 250})
	require.True(t, ed.PointerUp())

	moved, _ := ed.Node(node.ID)
	assert.Equal(t, models.Position{X: 150, Y: 120}, moved.Position)
}

func TestDrag_ReleaseWithoutMovement(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeTask, 100, 100)
	before := ed.History().Len()

	require.NoError(t, ed.PointerDown(node.ID, editor.Point{X: 105, Y: 105}))
	assert.False(t, ed.PointerUp())
	assert.Equal(t, before, ed.History().Len())

	assert.False(t, ed.PointerUp(), "pointer up while idle does nothing")
}

func TestDrag_AfterUndoTruncatesRedoTail(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeTask, 0, 0)
	addNode(t, ed, models.NodeTypeEnd, 300, 0)

	require.True(t, ed.Undo())
	assert.True(t, ed.History().CanRedo())

	require.NoError(t, ed.PointerDown(node.ID, editor.Point{}))
	ed.PointerMove(editor.Point{X: 40, Y: 40})
	require.True(t, ed.PointerUp())

	assert.False(t, ed.History().CanRedo())
	assert.Len(t, ed.Nodes(), 1)
}

func TestDrop(t *testing.T) {
	t.Parallel()

	canvas := &editor.Rect{Left: 100, Top: 50, Width: 800, Height: 600}

	tests := []struct {
		name   string
		zoom   float64
		canvas *editor.Rect
		client editor.Point
		want   *models.Position
	}{
		{name: "at zoom 1", zoom: 1, canvas: canvas, client: editor.Point{X: 300, Y: 250}, want: &models.Position{X: 200, Y: 200}},
		{name: "at zoom 0.5", zoom: 0.5, canvas: canvas, client: editor.Point{X: 300, Y: 250}, want: &models.Position{X: 400, Y: 400}},
		{name: "missing rect", zoom: 1, canvas: nil, client: editor.Point{X: 300, Y: 250}},
		{name: "unmeasured rect", zoom: 1, canvas: &editor.Rect{Left: 10, Top: 10}, client: editor.Point{X: 300, Y: 250}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ed := newEditor(t)
			ed.SetZoom(tt.zoom)
			before := ed.History().Len()

			node, err := ed.Drop(models.NodeTypeApproval, tt.client, tt.canvas)
			require.NoError(t, err)

			if tt.want == nil {
				assert.Nil(t, node)
				assert.Empty(t, ed.Nodes())
				assert.Equal(t, before, ed.History().Len())

				return
			}

			require.NotNil(t, node)
			assert.Equal(t, *tt.want, node.Position)
			assert.Equal(t, before+1, ed.History().Len())
		})
	}
}

func TestZoom_Clamps(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)

	for range 20 {
		ed.ZoomIn()
	}

	assert.InDelta(t, editor.MaxZoom, ed.Zoom(), 1e-9)

	for range 30 {
		ed.ZoomOut()
	}

	assert.InDelta(t, editor.MinZoom, ed.Zoom(), 1e-9)

	ed.ResetZoom()
	assert.InDelta(t, 1.1, ed.ZoomIn(), 1e-9)
	assert.InDelta(t, 1.65, ed.ZoomBy(1.5), 1e-9)
	assert.InDelta(t, editor.MaxZoom, ed.ZoomBy(10), 1e-9)
}

func TestAddNode_DefaultsPerType(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)

	approval := addNode(t, ed, models.NodeTypeApproval, 0, 0)
	assert.Equal(t, "Approval", approval.Title)
	assert.True(t, approval.Config.(*models.ApprovalConfig).ApprovalRequired)

	task := addNode(t, ed, models.NodeTypeTask, 0, 0)
	assert.IsType(t, &models.TaskConfig{}, task.Config)

	_, err := ed.AddNode("timer", 0, 0)
	assert.ErrorIs(t, err, editor.ErrUnknownNodeType)
	assert.Len(t, ed.Nodes(), 2)
}

func TestDeleteNode_ClearsSelection(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	b := addNode(t, ed, models.NodeTypeEnd, 200, 0)
	e := addEdge(t, ed, a.ID, b.ID)

	require.NoError(t, ed.SelectEdge(e.ID))
	require.NoError(t, ed.DeleteNode(b.ID))
	assert.True(t, ed.Selection().Empty(), "selected edge removed by cascade")

	require.NoError(t, ed.SelectNode(a.ID))
	require.NoError(t, ed.DeleteNode(a.ID))
	assert.True(t, ed.Selection().Empty())

	err := ed.DeleteNode(a.ID)
	require.Error(t, err)
	assert.True(t, editor.IsNotFound(err))

	var opErr *editor.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "DeleteNode", opErr.Op)
}

func TestDeleteEdge(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	b := addNode(t, ed, models.NodeTypeEnd, 200, 0)
	e := addEdge(t, ed, a.ID, b.ID)
	require.NoError(t, ed.SelectEdge(e.ID))

	require.NoError(t, ed.DeleteEdge(e.ID))
	assert.Empty(t, ed.Edges())
	assert.True(t, ed.Selection().Empty())
	assert.ErrorIs(t, ed.DeleteEdge(e.ID), editor.ErrEdgeNotFound)
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	a := addNode(t, ed, models.NodeTypeStart, 0, 0)
	before := ed.History().Len()

	_, err := ed.AddEdge(a.ID, "ghost", "")
	assert.ErrorIs(t, err, editor.ErrNodeNotFound)
	assert.Equal(t, before, ed.History().Len())
}

func TestUndo_ClearsSelectionOfVanishedEntity(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeTask, 0, 0)
	require.NoError(t, ed.SelectNode(node.ID))

	require.True(t, ed.Undo())
	assert.True(t, ed.Selection().Empty())

	require.True(t, ed.Redo())
	_, ok := ed.Node(node.ID)
	assert.True(t, ok)
}

func TestUpdates_WithoutChangeDoNotRecord(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeApproval, 0, 0)
	before := ed.History().Len()

	title := node.Title
	require.NoError(t, ed.UpdateNodeField(node.ID, editor.NodePatch{Title: &title}))
	require.NoError(t, ed.UpdateNodeConfig(node.ID, map[string]any{"approval_required": true}))
	assert.Equal(t, before, ed.History().Len())

	require.NoError(t, ed.UpdateNodeConfig(node.ID, map[string]any{"data_sources": []any{}}))
	require.NoError(t, ed.UpdateNodeConfig(node.ID, map[string]any{"parallel_branches": []any{}}))
	assert.Equal(t, before, ed.History().Len(), "clearing an empty list is not a change")

	err := ed.UpdateNodeConfig(node.ID, map[string]any{"message": "hi"})
	assert.ErrorIs(t, err, editor.ErrInvalidConfigPatch)
	assert.True(t, editor.IsInvalidInput(err))
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	ed := newEditor(t, editor.WithHistoryLimit(3))

	for i := range 5 {
		addNode(t, ed, models.NodeTypeTask, float64(i), 0)
	}

	assert.Equal(t, 3, ed.History().Len())
	require.True(t, ed.Undo())
	require.True(t, ed.Undo())
	assert.False(t, ed.Undo())
	assert.Len(t, ed.Nodes(), 3)
}

func TestEdgePolicies(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T, names ...string) (*editor.Editor, map[string]string) {
		t.Helper()

		policies, err := editor.PoliciesByName(names)
		require.NoError(t, err)

		ed := newEditor(t, editor.WithEdgePolicies(policies...))
		ids := map[string]string{
			"start": addNode(t, ed, models.NodeTypeStart, 0, 0).ID,
			"task":  addNode(t, ed, models.NodeTypeTask, 200, 0).ID,
			"end":   addNode(t, ed, models.NodeTypeEnd, 400, 0).ID,
		}
		addEdge(t, ed, ids["start"], ids["task"])
		addEdge(t, ed, ids["task"], ids["end"])

		return ed, ids
	}

	tests := []struct {
		name     string
		policy   string
		source   string
		target   string
		rejected bool
	}{
		{name: "self loop forbidden", policy: editor.PolicySelfLoops, source: "task", target: "task", rejected: true},
		{name: "self loop allowed elsewhere", policy: editor.PolicySelfLoops, source: "start", target: "end"},
		{name: "duplicate forbidden", policy: editor.PolicyDuplicates, source: "start", target: "task", rejected: true},
		{name: "parallel in reverse is no duplicate", policy: editor.PolicyDuplicates, source: "task", target: "start"},
		{name: "cycle forbidden", policy: editor.PolicyCycles, source: "end", target: "start", rejected: true},
		{name: "shortcut is acyclic", policy: editor.PolicyCycles, source: "start", target: "end"},
		{name: "out of end forbidden", policy: editor.PolicyFromEnd, source: "end", target: "task", rejected: true},
		{name: "into end allowed", policy: editor.PolicyFromEnd, source: "start", target: "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ed, ids := build(t, tt.policy)

			_, err := ed.AddEdge(ids[tt.source], ids[tt.target], "")
			if tt.rejected {
				assert.ErrorIs(t, err, editor.ErrEdgeRejected)
				assert.Len(t, ed.Edges(), 2)
			} else {
				assert.NoError(t, err)
				assert.Len(t, ed.Edges(), 3)
			}
		})
	}

	t.Run("no policy allows anything", func(t *testing.T) {
		t.Parallel()

		ed, ids := build(t)
		addEdge(t, ed, ids["end"], ids["start"])
		addEdge(t, ed, ids["end"], ids["start"])
		addEdge(t, ed, ids["task"], ids["task"])
		assert.Len(t, ed.Edges(), 5)
	})

	t.Run("unknown policy name", func(t *testing.T) {
		t.Parallel()

		_, err := editor.PoliciesByName([]string{"cycles", "acyclic-ish"})
		assert.ErrorIs(t, err, editor.ErrUnknownPolicy)
	})
}

func TestLoad_Policies(t *testing.T) {
	t.Parallel()

	malformed := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) {
		tpl.Edges = append(tpl.Edges, &models.WorkflowEdge{ID: "dangling", Source: "start", Target: "nowhere"})
		tpl.Nodes = append(tpl.Nodes, testutil.CreateTestNode(testutil.WithID("start")))
	})

	t.Run("sanitize drops dangling edges and duplicate nodes", func(t *testing.T) {
		t.Parallel()

		ed, err := editor.Load(malformed)
		require.NoError(t, err)

		assert.Len(t, ed.Nodes(), len(malformed.Nodes)-1)
		assert.Len(t, ed.Edges(), len(malformed.Edges)-1)
		assert.Equal(t, 1, ed.History().Len())

		for _, edge := range ed.Edges() {
			assert.NotEqual(t, "dangling", edge.ID)
		}
	})

	t.Run("strict rejects", func(t *testing.T) {
		t.Parallel()

		_, err := editor.Load(malformed, editor.WithLoadPolicy(editor.LoadStrict))
		require.Error(t, err)
		assert.True(t, errors.Is(err, editor.ErrDuplicateNodeID) || errors.Is(err, editor.ErrDanglingEdge))
	})

	t.Run("load copies the template", func(t *testing.T) {
		t.Parallel()

		tpl := testutil.CreateTestTemplate()
		ed, err := editor.Load(tpl)
		require.NoError(t, err)

		tpl.Nodes[0].Title = "mutated after load"
		node, _ := ed.Node(tpl.Nodes[0].ID)
		assert.NotEqual(t, "mutated after load", node.Title)
	})

	t.Run("nil config gets defaults", func(t *testing.T) {
		t.Parallel()

		tpl := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) {
			tpl.Nodes[1].Config = nil
		})

		ed, err := editor.Load(tpl, editor.WithLoadPolicy(editor.LoadStrict))
		require.NoError(t, err)

		node, _ := ed.Node(tpl.Nodes[1].ID)
		assert.NotNil(t, node.Config)
		assert.Equal(t, node.Type, node.Config.NodeType())
	})
}

func TestSave(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tpl := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) { tpl.Version = 4 })

	var saved []*models.WorkflowTemplate

	failNext := false
	ed, err := editor.Load(tpl,
		editor.WithClock(func() time.Time { return now }),
		editor.WithSession(models.SessionContext{UserID: "hr-42"}),
		editor.WithOnSave(func(_ context.Context, template *models.WorkflowTemplate) error {
			if failNext {
				return errors.New("host unavailable")
			}

			saved = append(saved, template)

			return nil
		}),
	)
	require.NoError(t, err)

	result, err := ed.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 5, result.Version)
	assert.Equal(t, 5, saved[0].Version)
	assert.Equal(t, now, saved[0].UpdatedAt)
	assert.Equal(t, "hr-42", saved[0].UpdatedBy)
	assert.Equal(t, tpl.ID, saved[0].ID)
	assert.Len(t, saved[0].Nodes, len(tpl.Nodes))

	failNext = true
	_, err = ed.Save(context.Background())
	require.EqualError(t, err, "host unavailable")
	assert.Equal(t, 5, ed.Template().Version, "failed save keeps the previous version")

	failNext = false
	result, err = ed.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, result.Version)
}

func TestSave_ReadOnlyDoesNothing(t *testing.T) {
	t.Parallel()

	called := false
	ed := newEditor(t,
		editor.WithReadOnly(true),
		editor.WithOnSave(func(context.Context, *models.WorkflowTemplate) error {
			called = true

			return nil
		}),
	)

	result, err := ed.Save(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.False(t, called)
}

func TestExport(t *testing.T) {
	t.Parallel()

	calls := 0
	ed := newEditor(t,
		editor.WithReadOnly(true),
		editor.WithOnExport(func(context.Context) error {
			calls++

			return nil
		}),
	)

	require.NoError(t, ed.Export(context.Background()))
	assert.Equal(t, 1, calls)

	require.NoError(t, editor.New().Export(context.Background()))
}

func TestState(t *testing.T) {
	t.Parallel()

	ed := newEditor(t)
	node := addNode(t, ed, models.NodeTypeStart, 0, 0)
	require.NoError(t, ed.PointerDown(node.ID, editor.Point{}))

	state := ed.State()
	assert.Equal(t, node.ID, state.Dragging)
	assert.True(t, state.CanUndo)
	assert.False(t, state.CanRedo)
	assert.Equal(t, 2, state.HistoryLen)
	assert.Equal(t, 1, state.HistoryIndex)
	assert.Len(t, state.Template.Nodes, 1)
}
