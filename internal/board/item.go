// Package board is the toolkit-free item model of the canvas: cards, images,
// text notes and freehand strokes sharing one geometry record, hit testing
// and resize policy. Items know how to draw themselves onto a Surface but
// never touch storage; the session does that.
package board

import (
	"image"
	"math"

	"github.com/vbonduro/pinboard/internal/domain"
)

const (
	// HandleSize is the side of the square resize handle anchored at an
	// item's bottom-right corner.
	HandleSize = 14.0

	MinWidth  = 80.0
	MinHeight = 60.0
)

type HitZone int

const (
	HitNone HitZone = iota
	HitBody
	HitResize
	HitProgress
)

func (z HitZone) String() string {
	switch z {
	case HitBody:
		return "body"
	case HitResize:
		return "resize-handle"
	case HitProgress:
		return "progress"
	default:
		return "none"
	}
}

// Item is the capability set every board item exposes.
type Item interface {
	ID() int64
	SetID(id int64)
	Kind() domain.Kind

	Position() domain.Point
	SetPosition(x, y float64)
	Size() (w, h float64)
	// SetSize applies the minimum size policy: values below MinWidth or
	// MinHeight are clamped, never rejected.
	SetSize(w, h float64)
	Z() int
	SetZ(z int)
	BoundingBox() domain.Rect

	HitTest(p domain.Point) HitZone
	Render(s Surface)
	Payload() domain.Payload

	Selected() bool
	SetSelected(selected bool)
}

// TextStyle controls how Surface.Text lays out a string inside its box.
type TextStyle struct {
	Size   float64
	Bold   bool
	Color  domain.RGB
	Wrap   bool
	Markup bool
}

// Surface is the drawing target items render onto. Coordinates are canvas
// coordinates; the surface owns any view transform.
type Surface interface {
	FillRect(r domain.Rect, radius float64, fill domain.RGB)
	StrokeRect(r domain.Rect, radius, width float64, c domain.RGB)
	Polyline(pts []domain.Point, width float64, c domain.RGB)
	Text(s string, box domain.Rect, style TextStyle)
	Image(img image.Image, box domain.Rect)
}

// ClampSize applies the minimum size policy.
func ClampSize(w, h float64) (float64, float64) {
	return math.Max(MinWidth, w), math.Max(MinHeight, h)
}

var (
	handleFill   = domain.RGB{R: 0x2a, G: 0x2a, B: 0x2a}
	handleBorder = domain.RGB{R: 0x6a, G: 0x6a, B: 0x6a}
)

// geometry is the ownership and placement record shared by every item kind.
type geometry struct {
	id       int64
	pos      domain.Point
	w, h     float64
	z        int
	selected bool
}

func (g *geometry) ID() int64          { return g.id }
func (g *geometry) SetID(id int64)     { g.id = id }
func (g *geometry) Z() int             { return g.z }
func (g *geometry) SetZ(z int)         { g.z = z }
func (g *geometry) Selected() bool     { return g.selected }
func (g *geometry) SetSelected(s bool) { g.selected = s }

func (g *geometry) Position() domain.Point { return g.pos }

func (g *geometry) SetPosition(x, y float64) {
	g.pos = domain.Point{X: x, Y: y}
}

func (g *geometry) Size() (float64, float64) { return g.w, g.h }

func (g *geometry) SetSize(w, h float64) {
	g.w, g.h = ClampSize(w, h)
}

// restoreSize puts a stored size back as is. The minimum size policy is for
// resizes; a stored size below it came from the kind's own default sizing.
// Non-positive values keep the current size.
func (g *geometry) restoreSize(w, h float64) {
	if w > 0 {
		g.w = w
	}
	if h > 0 {
		g.h = h
	}
}

func (g *geometry) BoundingBox() domain.Rect {
	return domain.Rect{X: g.pos.X, Y: g.pos.Y, W: g.w, H: g.h}
}

// handleRect is the resize handle in canvas coordinates.
func (g *geometry) handleRect() domain.Rect {
	return domain.Rect{
		X: g.pos.X + g.w - HandleSize,
		Y: g.pos.Y + g.h - HandleSize,
		W: HandleSize,
		H: HandleSize,
	}
}

func (g *geometry) HitTest(p domain.Point) HitZone {
	if g.handleRect().Contains(p) {
		return HitResize
	}
	if g.BoundingBox().Contains(p) {
		return HitBody
	}
	return HitNone
}

func (g *geometry) renderHandle(s Surface) {
	h := g.handleRect()
	s.FillRect(h, 0, handleFill)
	s.StrokeRect(h, 0, 1, handleBorder)
}
