// Package gesture interprets pointer input as board operations. The mode is
// set explicitly by the host; it is never inferred from the input.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
)

type Mode int

const (
	ModeSelect Mode = iota
	ModeDraw
	ModeText
	ModeErase
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeDraw:
		return "draw"
	case ModeText:
		return "text"
	case ModeErase:
		return "erase"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeSelect, ModeDraw, ModeText, ModeErase} {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeSelect, fmt.Errorf("unknown mode %q", s)
}

type Modifiers uint8

const (
	// ModAdd extends the selection instead of replacing it.
	ModAdd Modifiers = 1 << iota
	// ModZoom turns scrolling into zooming.
	ModZoom
)

const (
	// EraseRadius is the half-side of the square checked around the pointer.
	EraseRadius = 8.0

	ZoomFactor = 1.15
	MinScale   = 0.1
	MaxScale   = 10.0
)

// Board is the subset of session.Session the controller drives.
type Board interface {
	ItemAt(p domain.Point) board.Item
	StrokeAt(r domain.Rect) *board.Stroke
	Select(item board.Item, additive bool)
	ClearSelection()
	Selected() []board.Item
	SelectIn(r domain.Rect, additive bool)

	Move(ctx context.Context, item board.Item, x, y float64) error
	Resize(ctx context.Context, item board.Item, w, h float64) error
	SetProgress(ctx context.Context, card *board.Card, v int) error
	Delete(ctx context.Context, item board.Item) error

	CreateText(ctx context.Context, p domain.Point, color domain.RGB) (*board.Text, error)
	CreateStroke(ctx context.Context, points []domain.Point, width float64, color domain.RGB) (*board.Stroke, error)
	Preview(points []domain.Point)

	Focused() *board.Text
	Blur(ctx context.Context) error
}

type phase int

func (p phase) String() string {
	return [...]string{"idle", "resizing", "moving", "scrubbing", "banding", "drawing", "erasing"}[p]
}

const (
	idle phase = iota
	resizing
	moving
	scrubbing
	banding
	drawing
	erasing
)

// Pen holds the stroke and text styling applied to newly created items.
type Pen struct {
	Width     float64
	Color     domain.RGB
	TextColor domain.RGB
}

type grab struct {
	item  board.Item
	start domain.Point
}

// Controller is a pointer state machine. It is not safe for concurrent use.
type Controller struct {
	board  Board
	logger *slog.Logger
	mode   Mode
	pen    Pen
	scale  float64

	phase        phase
	target       board.Item
	startPointer domain.Point
	startW       float64
	startH       float64
	grabbed      []grab
	additive     bool
	band         domain.Rect
	points       []domain.Point
}

func New(b Board, pen Pen, logger *slog.Logger) *Controller {
	return &Controller{
		board:  b,
		logger: logger,
		pen:    pen,
		scale:  1,
	}
}

func (c *Controller) Mode() Mode     { return c.mode }
func (c *Controller) Pen() Pen       { return c.pen }
func (c *Controller) SetPen(p Pen)   { c.pen = p }
func (c *Controller) Scale() float64 { return c.scale }

// SetMode switches the interaction mode, abandoning any gesture in flight.
func (c *Controller) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	c.Reset()
	c.mode = m
	c.logger.Debug("gesture mode changed", "mode", m)
}

// Reset drops in-flight gesture state without writing anything.
func (c *Controller) Reset() {
	if c.phase == drawing {
		c.board.Preview(nil)
	}
	c.phase = idle
	c.target = nil
	c.grabbed = nil
	c.points = nil
	c.band = domain.Rect{}
}

// Band returns the rubber-band rectangle while a band selection is active.
func (c *Controller) Band() (domain.Rect, bool) {
	return c.band.Normalize(), c.phase == banding
}

func (c *Controller) PointerDown(ctx context.Context, p domain.Point, mods Modifiers) error {
	if c.phase != idle {
		// A down without an up in between: the previous gesture is lost.
		c.Reset()
	}
	if err := c.blurUnless(ctx, p); err != nil {
		c.logger.Error("failed to commit focused text", "error", err)
	}

	switch c.mode {
	case ModeDraw:
		c.phase = drawing
		c.points = []domain.Point{p}
		c.board.Preview(slices.Clone(c.points))
		return nil
	case ModeText:
		_, err := c.board.CreateText(ctx, p, c.pen.TextColor)
		return err
	case ModeErase:
		c.phase = erasing
		return c.erase(ctx, p)
	default:
		return c.selectDown(ctx, p, mods)
	}
}

// blurUnless commits the focused note unless p lands on it.
func (c *Controller) blurUnless(ctx context.Context, p domain.Point) error {
	focused := c.board.Focused()
	if focused == nil {
		return nil
	}
	if c.mode == ModeSelect && focused.HitTest(p) != board.HitNone {
		return nil
	}
	return c.board.Blur(ctx)
}

func (c *Controller) selectDown(ctx context.Context, p domain.Point, mods Modifiers) error {
	c.additive = mods&ModAdd != 0
	item := c.board.ItemAt(p)
	if item == nil {
		if !c.additive {
			c.board.ClearSelection()
		}
		c.phase = banding
		c.band = domain.Rect{X: p.X, Y: p.Y}
		return nil
	}

	if !item.Selected() {
		c.board.Select(item, c.additive)
	}
	c.target = item
	c.startPointer = p

	switch item.HitTest(p) {
	case board.HitResize:
		c.phase = resizing
		c.startW, c.startH = item.Size()
		return nil
	case board.HitProgress:
		card := item.(*board.Card)
		c.phase = scrubbing
		return c.board.SetProgress(ctx, card, card.ProgressAt(p.X))
	default:
		c.phase = moving
		for _, it := range c.board.Selected() {
			c.grabbed = append(c.grabbed, grab{item: it, start: it.Position()})
		}
		return nil
	}
}

// PointerMove advances the current gesture. Write-through failures in the
// middle of a gesture are logged and do not stop it; the write on release
// is the one that counts.
func (c *Controller) PointerMove(ctx context.Context, p domain.Point) error {
	switch c.phase {
	case resizing:
		c.logIntermediate(c.resizeTo(ctx, p))
	case moving:
		c.logIntermediate(c.moveTo(ctx, p))
	case scrubbing:
		card := c.target.(*board.Card)
		if v := card.ProgressAt(p.X); v != card.Progress() {
			c.logIntermediate(c.board.SetProgress(ctx, card, v))
		}
	case banding:
		c.band.W = p.X - c.band.X
		c.band.H = p.Y - c.band.Y
	case drawing:
		if last := c.points[len(c.points)-1]; last != p {
			c.points = append(c.points, p)
			c.board.Preview(slices.Clone(c.points))
		}
	case erasing:
		c.logIntermediate(c.erase(ctx, p))
	}
	return nil
}

func (c *Controller) PointerUp(ctx context.Context, p domain.Point) error {
	defer c.Reset()

	switch c.phase {
	case resizing:
		return c.resizeTo(ctx, p)
	case moving:
		return c.moveTo(ctx, p)
	case scrubbing:
		card := c.target.(*board.Card)
		return c.board.SetProgress(ctx, card, card.ProgressAt(p.X))
	case banding:
		c.band.W = p.X - c.band.X
		c.band.H = p.Y - c.band.Y
		c.board.SelectIn(c.band, c.additive)
	case drawing:
		return c.finishStroke(ctx, p)
	}
	return nil
}

func (c *Controller) resizeTo(ctx context.Context, p domain.Point) error {
	d := p.Sub(c.startPointer)
	w := math.Max(board.MinWidth, c.startW+d.X)
	h := math.Max(board.MinHeight, c.startH+d.Y)
	return c.board.Resize(ctx, c.target, w, h)
}

func (c *Controller) moveTo(ctx context.Context, p domain.Point) error {
	d := p.Sub(c.startPointer)
	var errs []error
	for _, g := range c.grabbed {
		pos := g.start.Add(d)
		if err := c.board.Move(ctx, g.item, pos.X, pos.Y); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) finishStroke(ctx context.Context, p domain.Point) error {
	if last := c.points[len(c.points)-1]; last != p {
		c.points = append(c.points, p)
	}
	c.board.Preview(nil)
	c.phase = idle

	if len(c.points) < 2 {
		c.logger.Debug("discarding stroke", "points", len(c.points))
		return nil
	}
	_, err := c.board.CreateStroke(ctx, c.points, c.pen.Width, c.pen.Color)
	return err
}

// erase deletes at most one persisted stroke near p.
func (c *Controller) erase(ctx context.Context, p domain.Point) error {
	area := domain.Rect{X: p.X - EraseRadius, Y: p.Y - EraseRadius, W: 2 * EraseRadius, H: 2 * EraseRadius}
	stroke := c.board.StrokeAt(area)
	if stroke == nil {
		return nil
	}
	return c.board.Delete(ctx, stroke)
}

func (c *Controller) logIntermediate(err error) {
	if err != nil {
		c.logger.Warn("write-through failed mid-gesture", "phase", c.phase, "error", err)
	}
}

// Scroll handles a wheel step. With ModZoom the view scale is multiplied or
// divided by ZoomFactor; otherwise the event is left to the host for panning
// and Scroll returns false. The scale is a view setting and is never stored.
func (c *Controller) Scroll(delta float64, mods Modifiers) bool {
	if mods&ModZoom == 0 || delta == 0 {
		return false
	}
	if delta > 0 {
		c.scale *= ZoomFactor
	} else {
		c.scale /= ZoomFactor
	}
	c.scale = math.Max(MinScale, math.Min(MaxScale, c.scale))
	return true
}
