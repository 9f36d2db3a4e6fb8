package render

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	ttfFont  *truetype.Font
	errFont  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		ttfFont, errFont = truetype.Parse(goregular.TTF)
	})

	return ttfFont, errFont
}

func face(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}

// PNG rasterises scene at its zoom and writes it as a PNG image.
func PNG(w io.Writer, scene Scene) error {
	width, height := scene.PixelSize()

	dc := gg.NewContext(width, height)
	dc.SetColor(hexColor("#f9fafb"))
	dc.Clear()

	dc.Scale(scene.Zoom, scene.Zoom)
	dc.Translate(-scene.MinX, -scene.MinY)

	small, err := face(11)
	if err != nil {
		return err
	}

	bold, err := face(13)
	if err != nil {
		return err
	}

	for _, c := range scene.Connectors {
		drawConnector(dc, c, small)
	}

	for _, n := range scene.Nodes {
		drawNode(dc, n, small, bold)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}

	return nil
}

func drawConnector(dc *gg.Context, c Connector, labelFace font.Face) {
	dc.SetColor(hexColor(c.Color))
	dc.SetLineWidth(c.StrokeWidth)
	dc.MoveTo(c.From.X, c.From.Y)
	dc.CubicTo(c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.To.X, c.To.Y)
	dc.Stroke()

	dc.MoveTo(c.Arrow[0].X, c.Arrow[0].Y)
	dc.LineTo(c.Arrow[1].X, c.Arrow[1].Y)
	dc.LineTo(c.Arrow[2].X, c.Arrow[2].Y)
	dc.ClosePath()
	dc.Fill()

	if c.Label != "" {
		dc.SetFontFace(labelFace)
		dc.SetColor(hexColor("#374151"))
		dc.DrawStringAnchored(c.Label, c.LabelAt.X, c.LabelAt.Y-4, 0.5, 0)
	}
}

func drawNode(dc *gg.Context, n NodeBox, small, bold font.Face) {
	stroke, width := n.Color, strokeWidth
	if n.Selected {
		stroke, width = selectedColor, selectedStrokeWidth
	}

	dc.DrawRoundedRectangle(n.X, n.Y, n.Width, n.Height, 8)
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(hexColor(stroke))
	dc.SetLineWidth(width)
	dc.Stroke()

	dc.DrawCircle(n.X+22, n.Y+24, 12)
	dc.SetColor(hexColor(n.Color))
	dc.Fill()

	dc.SetFontFace(bold)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(monogram(n.Title, string(n.Type)), n.X+22, n.Y+24, 0.5, 0.35)

	dc.SetColor(hexColor("#111827"))
	dc.DrawString(n.Title, n.X+42, n.Y+28)

	if n.Description != "" {
		dc.SetFontFace(small)
		dc.SetColor(hexColor("#6b7280"))
		dc.DrawString(n.Description, n.X+12, n.Y+58)
	}

	if n.Status != nil {
		fill, ok := statusColors[string(*n.Status)]
		if !ok {
			fill = strokeColor
		}

		dc.DrawCircle(n.X+n.Width-14, n.Y+14, 5)
		dc.SetColor(hexColor(fill))
		dc.Fill()
	}
}

// hexColor parses #rrggbb, falling back to grey.
func hexColor(hex string) color.Color {
	value, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(hex) != 7 {
		return color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	}

	return color.RGBA{R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xff}
}
