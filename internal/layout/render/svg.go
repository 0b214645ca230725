package render

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"

	"floor-designer/internal/layout/grid"
	"floor-designer/internal/layout/models"
	"floor-designer/internal/layout/service"
)

// ============================================================
// Renderer
// ============================================================

const (
	strokeSelected = "#ff7f0e"
	strokeItem     = "#333"
	fillValid      = "#2ca02c"
	fillInvalid    = "#d62728"
)

type point struct {
	X float64
	Y float64
}

type Renderer struct {
	space *grid.Space
}

func NewRenderer(space *grid.Space) *Renderer {
	return &Renderer{space: space}
}

// Render собирает SVG-проекцию раскладки: объекты, превью слияния и черновик.
func (r *Renderer) Render(view service.View) string {
	width, height := r.space.CanvasSize()

	var elements []string
	elements = append(elements, r.renderGrid(width, height)...)
	elements = append(elements, r.renderItems(view)...)
	elements = append(elements, r.renderSession(view.Session)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String()
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderGrid(width, height float64) []string {
	step := r.space.CellSize()
	var out []string
	out = append(out, fmt.Sprintf(`<rect x="0" y="0" width="%s" height="%s" fill="#fafafa" stroke="#808080" />`,
		formatFloat(width), formatFloat(height)))
	for x := step; x < width; x += step {
		out = append(out, fmt.Sprintf(`<line x1="%s" y1="0" x2="%s" y2="%s" stroke="#ddd" />`,
			formatFloat(x), formatFloat(x), formatFloat(height)))
	}
	for y := step; y < height; y += step {
		out = append(out, fmt.Sprintf(`<line x1="0" y1="%s" x2="%s" y2="%s" stroke="#ddd" />`,
			formatFloat(y), formatFloat(width), formatFloat(y)))
	}
	return out
}

func (r *Renderer) renderItems(view service.View) []string {
	items := append([]models.PlacedItem(nil), view.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	// переносимый объект рисуется в позиции черновика
	hidden := ""
	if view.Session.Mode == service.ModeDragging && view.Session.Draft != nil {
		hidden = view.Session.Draft.ID
	}

	var out []string
	for _, item := range items {
		if item.ID == hidden {
			continue
		}
		stroke := strokeItem
		if item.ID == view.Selected {
			stroke = strokeSelected
		}
		fill := item.Color
		if fill == "" {
			fill = "#ccc"
		}
		out = append(out, r.itemPath(item, fill, stroke, kindClass(item.Kind), ""))
	}
	return out
}

func (r *Renderer) renderSession(s service.SessionView) []string {
	var out []string
	switch s.Mode {
	case service.ModePlacing, service.ModeDragging:
		if s.Draft == nil {
			return nil
		}
		fill := fillInvalid
		if s.Valid {
			fill = fillValid
		}
		out = append(out, r.itemPath(*s.Draft, fill, strokeItem, "draft", ` fill-opacity="0.6"`))
	case service.ModeExpanding:
		for _, p := range s.Previews {
			out = append(out, r.itemPath(p, fillValid, strokeItem, "preview", ` fill-opacity="0.4" stroke-dasharray="4 2"`))
		}
	}
	return out
}

func (r *Renderer) itemPath(item models.PlacedItem, fill, stroke, class, extra string) string {
	px, py := r.space.GridToPixel(item.Position)
	cell := r.space.CellSize()
	w := float64(item.Size.Width) * cell
	h := float64(item.Size.Depth) * cell
	points := rectanglePoints(px+w/2, py+h/2, w, h, float64(item.Rotation))

	var path strings.Builder
	path.WriteString(`<path id="`)
	path.WriteString(html.EscapeString(item.ID))
	path.WriteString(`" class="`)
	path.WriteString(class)
	path.WriteString(`" d="M `)
	path.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		path.WriteString(" L ")
		path.WriteString(formatPoint(p))
	}
	path.WriteString(fmt.Sprintf(` Z" fill="%s" stroke="%s"%s />`, html.EscapeString(fill), stroke, extra))
	return path.String()
}

func kindClass(kind models.Kind) string {
	switch kind.(type) {
	case models.Merged:
		return "item merged"
	case models.Associated:
		return "item associated"
	}
	return "item"
}

// ============================================================
// Geometry helpers
// ============================================================

func rectanglePoints(cx, cy, width, height, rotationDeg float64) []point {
	halfW := width / 2
	halfH := height / 2

	points := []point{
		{X: cx - halfW, Y: cy - halfH},
		{X: cx + halfW, Y: cy - halfH},
		{X: cx + halfW, Y: cy + halfH},
		{X: cx - halfW, Y: cy + halfH},
	}

	if rotationDeg == 0 {
		return points
	}

	rad := rotationDeg * math.Pi / 180
	sin := math.Sin(rad)
	cos := math.Cos(rad)

	for i, p := range points {
		dx := p.X - cx
		dy := p.Y - cy
		points[i] = point{
			X: math.Round((cx+dx*cos-dy*sin)*1000) / 1000,
			Y: math.Round((cy+dx*sin+dy*cos)*1000) / 1000,
		}
	}

	return points
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
