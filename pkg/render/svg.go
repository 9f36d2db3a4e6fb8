package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"unicode"
)

var statusColors = map[string]string{
	"pending":     "#9ca3af",
	"in_progress": "#f59e0b",
	"completed":   "#10b981",
	"rejected":    "#ef4444",
}

// svgWriter keeps the first write error so drawing code stays linear.
type svgWriter struct {
	w   io.Writer
	err error
}

func (s *svgWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}

	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// SVG writes scene as a standalone SVG document. The zoom is applied as a
// scale transform so the canvas coordinates in the document stay untouched.
func SVG(w io.Writer, scene Scene) error {
	out := &svgWriter{w: w}
	width, height := scene.PixelSize()

	out.printf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`+"\n",
		width, height, width, height)
	out.printf(`<rect width="100%%" height="100%%" fill="#f9fafb"/>` + "\n")
	out.printf(`<g transform="scale(%s) translate(%s %s)">`+"\n", num(scene.Zoom), num(-scene.MinX), num(-scene.MinY))

	for _, c := range scene.Connectors {
		writeConnector(out, c)
	}

	for _, n := range scene.Nodes {
		writeNode(out, n)
	}

	out.printf("</g>\n</svg>\n")

	return out.err
}

func writeConnector(out *svgWriter, c Connector) {
	out.printf(`<g class="edge" data-id="%s">`+"\n", attr(c.ID))
	out.printf(`<path d="M %s %s C %s %s, %s %s, %s %s" fill="none" stroke="%s" stroke-width="%s"/>`+"\n",
		num(c.From.X), num(c.From.Y), num(c.C1.X), num(c.C1.Y), num(c.C2.X), num(c.C2.Y), num(c.To.X), num(c.To.Y),
		c.Color, num(c.StrokeWidth))
	out.printf(`<polygon points="%s,%s %s,%s %s,%s" fill="%s"/>`+"\n",
		num(c.Arrow[0].X), num(c.Arrow[0].Y), num(c.Arrow[1].X), num(c.Arrow[1].Y), num(c.Arrow[2].X), num(c.Arrow[2].Y), c.Color)

	if c.Label != "" {
		out.printf(`<text x="%s" y="%s" text-anchor="middle" font-size="11" fill="#374151">%s</text>`+"\n",
			num(c.LabelAt.X), num(c.LabelAt.Y-4), html.EscapeString(c.Label))
	}

	out.printf("</g>\n")
}

func writeNode(out *svgWriter, n NodeBox) {
	stroke, width := n.Color, strokeWidth
	if n.Selected {
		stroke, width = selectedColor, selectedStrokeWidth
	}

	out.printf(`<g class="node" data-id="%s" data-type="%s" data-icon="%s">`+"\n", attr(n.ID), attr(string(n.Type)), attr(n.Icon))
	out.printf(`<rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="#ffffff" stroke="%s" stroke-width="%s"/>`+"\n",
		num(n.X), num(n.Y), num(n.Width), num(n.Height), stroke, num(width))
	out.printf(`<circle cx="%s" cy="%s" r="12" fill="%s"/>`+"\n", num(n.X+22), num(n.Y+24), n.Color)
	out.printf(`<text x="%s" y="%s" text-anchor="middle" font-size="12" fill="#ffffff">%s</text>`+"\n",
		num(n.X+22), num(n.Y+28), html.EscapeString(monogram(n.Title, string(n.Type))))
	out.printf(`<text x="%s" y="%s" font-size="13" font-weight="bold" fill="#111827">%s</text>`+"\n",
		num(n.X+42), num(n.Y+28), html.EscapeString(n.Title))

	if n.Description != "" {
		out.printf(`<text x="%s" y="%s" font-size="11" fill="#6b7280">%s</text>`+"\n",
			num(n.X+12), num(n.Y+58), html.EscapeString(n.Description))
	}

	if n.Status != nil {
		color, ok := statusColors[string(*n.Status)]
		if !ok {
			color = strokeColor
		}

		out.printf(`<circle cx="%s" cy="%s" r="5" fill="%s"/>`+"\n", num(n.X+n.Width-14), num(n.Y+14), color)
	}

	out.printf("</g>\n")
}

// monogram is the letter drawn inside the node's icon badge.
func monogram(title, fallback string) string {
	for _, s := range []string{title, fallback} {
		for _, r := range s {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return strings.ToUpper(string(r))
			}
		}
	}

	return "?"
}

func attr(s string) string {
	return html.EscapeString(s)
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")

	if s == "-0" {
		return "0"
	}

	return s
}
