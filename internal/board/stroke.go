package board

import (
	"errors"
	"fmt"
	"math"

	"github.com/vbonduro/pinboard/internal/domain"
)

// ErrTooFewPoints is returned for strokes with fewer than two points. Such a
// path is a click, not a drawing, and is never persisted.
var ErrTooFewPoints = errors.New("stroke needs at least 2 points")

var DefaultStrokeColor = domain.RGB{R: 0xea, G: 0xea, B: 0xea}

const DefaultStrokeWidth = 3.0

// Stroke is a freehand path. Its points are kept relative to the item
// position, which is the top-left of their bounding box, so moving a stroke
// changes geometry only.
type Stroke struct {
	geometry
	points []domain.Point
	width  float64
	color  domain.RGB
}

// NewStroke builds a stroke from canvas-space points.
func NewStroke(points []domain.Point, width float64, color domain.RGB) (*Stroke, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	if width <= 0 || math.IsNaN(width) {
		return nil, fmt.Errorf("invalid stroke width %v", width)
	}

	bounds := domain.Bounds(points)
	origin := domain.Point{X: bounds.X, Y: bounds.Y}
	local := make([]domain.Point, len(points))
	for i, p := range points {
		local[i] = p.Sub(origin)
	}

	return &Stroke{
		geometry: geometry{pos: origin, w: bounds.W, h: bounds.H},
		points:   local,
		width:    width,
		color:    color,
	}, nil
}

func (s *Stroke) Kind() domain.Kind { return domain.KindStroke }

func (s *Stroke) Width() float64    { return s.width }
func (s *Stroke) Color() domain.RGB { return s.color }

// Points returns the path in canvas coordinates.
func (s *Stroke) Points() []domain.Point {
	out := make([]domain.Point, len(s.points))
	for i, p := range s.points {
		out[i] = p.Add(s.pos)
	}
	return out
}

// SetSize scales the path to the clamped target size. An axis with no
// extent (a perfectly straight stroke) keeps its points as they are.
func (s *Stroke) SetSize(w, h float64) {
	w, h = ClampSize(w, h)
	sx, sy := 1.0, 1.0
	if s.w > 0 {
		sx = w / s.w
	}
	if s.h > 0 {
		sy = h / s.h
	}
	for i := range s.points {
		s.points[i].X *= sx
		s.points[i].Y *= sy
	}
	s.w, s.h = w, h
}

// HitTest never reports a resize handle; strokes are moved, not resized.
func (s *Stroke) HitTest(p domain.Point) HitZone {
	if s.hitBox().Contains(p) {
		return HitBody
	}
	return HitNone
}

// Touches reports whether r overlaps the stroke's inked area, approximated
// by its bounding box grown by half the pen width.
func (s *Stroke) Touches(r domain.Rect) bool {
	return s.hitBox().Intersects(r)
}

func (s *Stroke) hitBox() domain.Rect {
	pad := s.width / 2
	return domain.Rect{X: s.pos.X - pad, Y: s.pos.Y - pad, W: s.w + s.width, H: s.h + s.width}
}

func (s *Stroke) Payload() domain.Payload {
	pts := make([][]float64, len(s.points))
	for i, p := range s.points {
		pts[i] = []float64{p.X, p.Y}
	}
	return domain.Payload{
		"points": pts,
		"width":  s.width,
		"color":  s.color.Hex(),
	}
}

func (s *Stroke) Render(surface Surface) {
	surface.Polyline(s.Points(), s.width, s.color)
	if s.selected {
		surface.StrokeRect(s.BoundingBox(), 0, 1, cardBorderSelected)
	}
}

func strokeFromRecord(rec *domain.Record) (*Stroke, error) {
	pts, err := payloadPoints(rec.Payload, "points")
	if err != nil {
		return nil, fmt.Errorf("stroke %d: %w", rec.ID, err)
	}
	width, ok := payloadNumber(rec.Payload, "width")
	if !ok {
		width = DefaultStrokeWidth
	}
	color := DefaultStrokeColor
	if hex, ok := rec.Payload["color"].(string); ok {
		c, err := domain.ParseRGB(hex)
		if err != nil {
			return nil, fmt.Errorf("stroke %d: %w", rec.ID, err)
		}
		color = c
	}

	// Stored points are relative to the row position.
	origin := domain.Point{X: rec.X, Y: rec.Y}
	for i := range pts {
		pts[i] = pts[i].Add(origin)
	}
	return NewStroke(pts, width, color)
}
