package render_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/render"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Connectors(t *testing.T) {
	t.Parallel()

	tpl := testutil.CreateTestTemplate()
	scene := render.Layout(tpl.Nodes, tpl.Edges, editor.Selection{EdgeID: "review-end"}, 1)

	require.Len(t, scene.Nodes, 3)
	require.Len(t, scene.Connectors, 2)

	first := scene.Connectors[0]
	assert.Equal(t, render.Point{X: 250, Y: 90}, first.From, "right centre of start")
	assert.Equal(t, render.Point{X: 300, Y: 90}, first.To, "left centre of review")
	assert.Equal(t, first.To, first.Arrow[0])
	assert.False(t, first.Selected)
	assert.InDelta(t, 2.0, first.StrokeWidth, 1e-9)

	second := scene.Connectors[1]
	assert.True(t, second.Selected)
	assert.InDelta(t, 3.0, second.StrokeWidth, 1e-9)
	assert.Equal(t, "approved", second.Label)
	assert.InDelta(t, 525, second.LabelAt.X, 1e-9)
	assert.InDelta(t, 90, second.LabelAt.Y, 1e-9)
}

func TestLayout_NodesStayPut(t *testing.T) {
	t.Parallel()

	tpl := testutil.CreateTestTemplate()
	scene := render.Layout(tpl.Nodes, tpl.Edges, editor.Selection{NodeID: "review"}, 2)

	for i, box := range scene.Nodes {
		assert.Equal(t, tpl.Nodes[i].Position.X, box.X)
		assert.Equal(t, tpl.Nodes[i].Position.Y, box.Y)
		assert.Equal(t, render.NodeWidth, box.Width)
		assert.Equal(t, box.ID == "review", box.Selected)
	}

	assert.InDelta(t, 10, scene.MinX, 1e-9)
	assert.InDelta(t, 10, scene.MinY, 1e-9)
	assert.InDelta(t, 780, scene.Width, 1e-9)
	assert.InDelta(t, 160, scene.Height, 1e-9)

	w, h := scene.PixelSize()
	assert.Equal(t, 1560, w)
	assert.Equal(t, 320, h)
}

func TestLayout_SkipsDanglingEdges(t *testing.T) {
	t.Parallel()

	nodes := []*models.WorkflowNode{testutil.CreateTestNode(testutil.WithID("a"))}
	edges := []*models.WorkflowEdge{testutil.CreateTestEdge("a", "missing")}

	scene := render.Layout(nodes, edges, editor.Selection{}, 1)
	assert.Len(t, scene.Nodes, 1)
	assert.Empty(t, scene.Connectors)
}

func TestLayout_ClampsZoom(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, editor.MaxZoom, render.Layout(nil, nil, editor.Selection{}, 9).Zoom, 1e-9)
	assert.InDelta(t, editor.MinZoom, render.Layout(nil, nil, editor.Selection{}, 0.1).Zoom, 1e-9)
	assert.InDelta(t, editor.DefaultZoom, render.Layout(nil, nil, editor.Selection{}, 0).Zoom, 1e-9)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "Sign the contract", n: 60, want: "Sign the contract"},
		{name: "exact", in: strings.Repeat("a", 60), n: 60, want: strings.Repeat("a", 60)},
		{name: "long", in: strings.Repeat("b", 61), n: 60, want: strings.Repeat("b", 59) + "…"},
		{name: "multibyte", in: "ääääää", n: 4, want: "äää…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, render.Truncate(tt.in, tt.n))
		})
	}
}

func TestSVG(t *testing.T) {
	t.Parallel()

	tpl := testutil.CreateTestTemplate(func(tpl *models.WorkflowTemplate) {
		tpl.Nodes[1].Title = "Review <HR> & sign"
	})

	var buf bytes.Buffer
	require.NoError(t, render.SVG(&buf, render.Layout(tpl.Nodes, tpl.Edges, editor.Selection{}, 0.5)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg "))
	assert.Contains(t, out, `transform="scale(0.5) translate(-10 -10)"`)
	assert.Contains(t, out, "Review &lt;HR&gt; &amp; sign")
	assert.Contains(t, out, `data-id="review-end"`)
	assert.Contains(t, out, ">approved</text>")
	assert.Equal(t, 3, strings.Count(out, `class="node"`))
}

func TestPNG(t *testing.T) {
	t.Parallel()

	tpl := testutil.CreateTestTemplate()
	scene := render.Layout(tpl.Nodes, tpl.Edges, editor.Selection{NodeID: "start"}, 1)

	var buf bytes.Buffer
	require.NoError(t, render.PNG(&buf, scene))

	img, err := png.Decode(&buf)
	require.NoError(t, err)

	w, h := scene.PixelSize()
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())
}
