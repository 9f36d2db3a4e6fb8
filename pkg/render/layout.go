// Package render turns an editor graph into a drawable scene and writes it
// out as SVG or PNG.
package render

import (
	"math"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/models"
)

const (
	NodeWidth  = 200.0
	NodeHeight = 80.0
	Margin     = 40.0

	// MaxDescriptionRunes is how much of a description fits in a node box.
	MaxDescriptionRunes = 60

	minCurve    = 40.0
	arrowLength = 10.0
	arrowWidth  = 5.0

	strokeWidth         = 2.0
	selectedStrokeWidth = 3.0
	strokeColor         = "#9ca3af"
	selectedColor       = "#2563eb"
)

// Point is a position in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeBox is a laid out node.
type NodeBox struct {
	ID          string             `json:"id"`
	Type        models.NodeType    `json:"type"`
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Icon        string             `json:"icon"`
	Color       string             `json:"color"`
	Status      *models.NodeStatus `json:"status,omitempty"`
	Selected    bool               `json:"selected"`
}

// Connector is a laid out edge: a cubic curve From → To with control points C1 and C2.
type Connector struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	From        Point    `json:"from"`
	C1          Point    `json:"c1"`
	C2          Point    `json:"c2"`
	To          Point    `json:"to"`
	Arrow       [3]Point `json:"arrow"`
	Label       string   `json:"label,omitempty"`
	LabelAt     Point    `json:"label_at"`
	StrokeWidth float64  `json:"stroke_width"`
	Color       string   `json:"color"`
	Selected    bool     `json:"selected"`
}

// Scene is everything a view needs to draw one frame. Bounds are in canvas
// space; Zoom scales them to output pixels.
type Scene struct {
	MinX       float64     `json:"min_x"`
	MinY       float64     `json:"min_y"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Zoom       float64     `json:"zoom"`
	Nodes      []NodeBox   `json:"nodes"`
	Connectors []Connector `json:"connectors"`
}

// PixelSize returns the output size of the scene at its zoom.
func (s Scene) PixelSize() (int, int) {
	return int(math.Ceil(s.Width * s.Zoom)), int(math.Ceil(s.Height * s.Zoom))
}

// Layout positions nodes at their stored coordinates and routes every edge
// whose endpoints exist. It never moves nodes.
func Layout(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge, selection editor.Selection, zoom float64) Scene {
	scene := Scene{
		Zoom:       normaliseZoom(zoom),
		Nodes:      make([]NodeBox, 0, len(nodes)),
		Connectors: make([]Connector, 0, len(edges)),
	}

	byID := make(map[string]*NodeBox, len(nodes))

	for _, node := range nodes {
		if node == nil {
			continue
		}

		entry := models.PaletteEntryFor(node.Type)
		scene.Nodes = append(scene.Nodes, NodeBox{
			ID:          node.ID,
			Type:        node.Type,
			X:           node.Position.X,
			Y:           node.Position.Y,
			Width:       NodeWidth,
			Height:      NodeHeight,
			Title:       node.Title,
			Description: Truncate(node.Description, MaxDescriptionRunes),
			Icon:        entry.Icon,
			Color:       entry.Color,
			Status:      node.Status,
			Selected:    node.ID == selection.NodeID,
		})
	}

	for i := range scene.Nodes {
		byID[scene.Nodes[i].ID] = &scene.Nodes[i]
	}

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		source, sourceOK := byID[edge.Source]
		target, targetOK := byID[edge.Target]

		if !sourceOK || !targetOK {
			continue
		}

		scene.Connectors = append(scene.Connectors, connect(edge, source, target, edge.ID == selection.EdgeID))
	}

	scene.MinX, scene.MinY, scene.Width, scene.Height = bounds(scene.Nodes)

	return scene
}

// ForState lays out an editor state snapshot.
func ForState(state editor.State) Scene {
	if state.Template == nil {
		return Layout(nil, nil, state.Selection, state.Zoom)
	}

	return Layout(state.Template.Nodes, state.Template.Edges, state.Selection, state.Zoom)
}

func connect(edge *models.WorkflowEdge, source, target *NodeBox, selected bool) Connector {
	from := Point{X: source.X + source.Width, Y: source.Y + source.Height/2}
	to := Point{X: target.X, Y: target.Y + target.Height/2}

	bend := math.Max(math.Abs(to.X-from.X)/2, minCurve)
	c1 := Point{X: from.X + bend, Y: from.Y}
	c2 := Point{X: to.X - bend, Y: to.Y}

	connector := Connector{
		ID:          edge.ID,
		Source:      edge.Source,
		Target:      edge.Target,
		From:        from,
		C1:          c1,
		C2:          c2,
		To:          to,
		Arrow:       arrowhead(c2, to),
		Label:       edge.Label,
		LabelAt:     cubicMidpoint(from, c1, c2, to),
		StrokeWidth: strokeWidth,
		Color:       strokeColor,
		Selected:    selected,
	}

	if selected {
		connector.StrokeWidth = selectedStrokeWidth
		connector.Color = selectedColor
	}

	return connector
}

// arrowhead returns the triangle tip, left, right pointing along from → tip.
func arrowhead(from, tip Point) [3]Point {
	dx, dy := tip.X-from.X, tip.Y-from.Y

	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy, length = 1, 0, 1
	}

	ux, uy := dx/length, dy/length
	baseX, baseY := tip.X-ux*arrowLength, tip.Y-uy*arrowLength

	return [3]Point{
		tip,
		{X: baseX - uy*arrowWidth, Y: baseY + ux*arrowWidth},
		{X: baseX + uy*arrowWidth, Y: baseY - ux*arrowWidth},
	}
}

// cubicMidpoint evaluates the curve at t = 0.5.
func cubicMidpoint(p0, p1, p2, p3 Point) Point {
	return Point{
		X: (p0.X + 3*p1.X + 3*p2.X + p3.X) / 8,
		Y: (p0.Y + 3*p1.Y + 3*p2.Y + p3.Y) / 8,
	}
}

func bounds(nodes []NodeBox) (minX, minY, width, height float64) {
	if len(nodes) == 0 {
		return 0, 0, 2 * Margin, 2 * Margin
	}

	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, node := range nodes {
		minX = math.Min(minX, node.X)
		minY = math.Min(minY, node.Y)
		maxX = math.Max(maxX, node.X+node.Width)
		maxY = math.Max(maxY, node.Y+node.Height)
	}

	minX -= Margin
	minY -= Margin

	return minX, minY, maxX + Margin - minX, maxY + Margin - minY
}

func normaliseZoom(zoom float64) float64 {
	if math.IsNaN(zoom) || zoom <= 0 {
		return editor.DefaultZoom
	}

	return math.Min(math.Max(zoom, editor.MinZoom), editor.MaxZoom)
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	if n <= 1 {
		return "…"
	}

	return string(runes[:n-1]) + "…"
}
