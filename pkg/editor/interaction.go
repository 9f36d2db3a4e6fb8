package editor

import (
	"math"

	"github.com/dukex/flowdesk/pkg/models"
)

// Zoom bounds and step.
const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	DefaultZoom = 1.0
	ZoomStep    = 0.1
)

// Point is a pointer position in viewport pixels, relative to the canvas origin
// for pointer events or to the page for drop events.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the canvas bounding box as measured by the view.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type dragState struct {
	nodeID string
	offset Point
	origin models.Position
}

func (d dragState) active() bool {
	return d.nodeID != ""
}

// Dragging returns the id of the node being dragged, if any.
func (e *Editor) Dragging() (string, bool) {
	return e.drag.nodeID, e.drag.active()
}

// SelectNode selects a node and clears any edge selection.
func (e *Editor) SelectNode(id string) error {
	if _, ok := e.graph.node(id); !ok {
		return opError("SelectNode", id, ErrNodeNotFound)
	}

	e.selection = Selection{NodeID: id}

	return nil
}

// SelectEdge selects an edge and clears any node selection.
func (e *Editor) SelectEdge(id string) error {
	if _, ok := e.graph.edge(id); !ok {
		return opError("SelectEdge", id, ErrEdgeNotFound)
	}

	e.selection = Selection{EdgeID: id}

	return nil
}

// ClickCanvas handles a click on empty canvas area.
func (e *Editor) ClickCanvas() {
	e.selection = Selection{}
}

// PointerDown selects the node under the pointer and, unless read-only,
// starts dragging it.
func (e *Editor) PointerDown(nodeID string, pointer Point) error {
	node, ok := e.graph.node(nodeID)
	if !ok {
		return opError("PointerDown", nodeID, ErrNodeNotFound)
	}

	e.selection = Selection{NodeID: nodeID}

	if e.opts.readOnly {
		return nil
	}

	e.drag = dragState{
		nodeID: nodeID,
		offset: Point{
			X: pointer.X - node.Position.X*e.zoom,
			Y: pointer.Y - node.Position.Y*e.zoom,
		},
		origin: node.Position,
	}

	return nil
}

// PointerMove moves the dragged node under the pointer. It never records history.
func (e *Editor) PointerMove(pointer Point) {
	if !e.drag.active() {
		return
	}

	x := (pointer.X - e.drag.offset.X) / e.zoom
	y := (pointer.Y - e.drag.offset.Y) / e.zoom

	if err := e.UpdateNodePosition(e.drag.nodeID, x, y); err != nil {
		e.drag = dragState{}
	}
}

// PointerUp ends a drag. One history entry is recorded if the node moved.
// It reports whether an entry was recorded.
func (e *Editor) PointerUp() bool {
	if !e.drag.active() {
		return false
	}

	drag := e.drag
	e.drag = dragState{}

	node, ok := e.graph.node(drag.nodeID)
	if !ok || node.Position == drag.origin {
		return false
	}

	e.record()

	return true
}

// Drop creates a node from a palette item dropped at client coordinates.
// Without a usable canvas rect the drop is ignored and nil, nil is returned.
func (e *Editor) Drop(nodeType models.NodeType, client Point, canvas *Rect) (*models.WorkflowNode, error) {
	if canvas == nil || canvas.Width <= 0 || canvas.Height <= 0 {
		return nil, nil
	}

	x := (client.X - canvas.Left) / e.zoom
	y := (client.Y - canvas.Top) / e.zoom

	return e.AddNode(nodeType, x, y)
}

// Zoom returns the current zoom factor.
func (e *Editor) Zoom() float64 {
	return e.zoom
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom]. It only
// changes presentation; stored positions stay in canvas space.
func (e *Editor) SetZoom(zoom float64) float64 {
	e.zoom = clampZoom(zoom)

	return e.zoom
}

func (e *Editor) ZoomIn() float64 { return e.SetZoom(e.zoom + ZoomStep) }

func (e *Editor) ZoomOut() float64 { return e.SetZoom(e.zoom - ZoomStep) }

// ZoomBy multiplies the zoom factor.
func (e *Editor) ZoomBy(factor float64) float64 { return e.SetZoom(e.zoom * factor) }

func (e *Editor) ResetZoom() float64 { return e.SetZoom(DefaultZoom) }

func clampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return DefaultZoom
	}

	zoom = math.Min(math.Max(zoom, MinZoom), MaxZoom)

	return math.Round(zoom*100) / 100
}
