package board

import (
	"fmt"
	"math"
	"strings"

	"github.com/vbonduro/pinboard/internal/domain"
)

const (
	CardWidth  = 260.0
	CardHeight = 170.0

	progressMargin = 12.0
	progressHeight = 14.0
)

var (
	cardBackground     = domain.RGB{R: 0x1a, G: 0x1a, B: 0x1a}
	cardBorder         = domain.RGB{R: 0x3a, G: 0x3a, B: 0x3a}
	cardBorderSelected = domain.RGB{R: 0x6a, G: 0x6a, B: 0x6a}
	cardTitle          = domain.RGB{R: 0xea, G: 0xea, B: 0xea}
	cardDescription    = domain.RGB{R: 0xcf, G: 0xcf, B: 0xcf}
	cardLabel          = domain.RGB{R: 0xbd, G: 0xbd, B: 0xbd}
	progressTrack      = domain.RGB{R: 0x10, G: 0x10, B: 0x10}
	progressTrackEdge  = domain.RGB{R: 0x2f, G: 0x2f, B: 0x2f}
	progressFill       = domain.RGB{R: 0x4a, G: 0x90, B: 0xe2}
)

// Card is a kanban card: a title, a free-form description and a clickable
// progress bar along its bottom edge.
type Card struct {
	geometry
	Title       string
	Description string
	progress    int
}

func NewCard(title, description string) *Card {
	return &Card{
		geometry:    geometry{w: CardWidth, h: CardHeight},
		Title:       title,
		Description: description,
	}
}

func (c *Card) Kind() domain.Kind { return domain.KindCard }

func (c *Card) Progress() int { return c.progress }

// SetProgress stores v clamped to [0, 100] and reports whether it changed.
func (c *Card) SetProgress(v int) bool {
	v = max(0, min(100, v))
	if v == c.progress {
		return false
	}
	c.progress = v
	return true
}

// ProgressBar is the interactive bar region in canvas coordinates.
func (c *Card) ProgressBar() domain.Rect {
	return domain.Rect{
		X: c.pos.X + progressMargin,
		Y: c.pos.Y + c.h - progressMargin - progressHeight,
		W: c.w - 2*progressMargin,
		H: progressHeight,
	}
}

// ProgressAt maps a canvas x coordinate onto the bar, clamped to [0, 100].
func (c *Card) ProgressAt(x float64) int {
	bar := c.ProgressBar()
	v := (x - bar.X) / math.Max(1, bar.W)
	v = math.Max(0, math.Min(1, v))
	return int(math.Round(v * 100))
}

// HitTest checks the progress bar before the generic handle and body zones.
func (c *Card) HitTest(p domain.Point) HitZone {
	if c.ProgressBar().Contains(p) {
		return HitProgress
	}
	return c.geometry.HitTest(p)
}

func (c *Card) Payload() domain.Payload {
	return domain.Payload{
		"title":       c.Title,
		"description": c.Description,
		"progress":    c.progress,
	}
}

func (c *Card) Render(s Surface) {
	rect := c.BoundingBox()

	border := cardBorder
	if c.selected {
		border = cardBorderSelected
	}
	s.FillRect(rect, 10, cardBackground)
	s.StrokeRect(rect, 10, 2, border)

	s.Text(c.Title, domain.Rect{X: rect.X + 12, Y: rect.Y + 10, W: c.w - 24, H: 22},
		TextStyle{Size: 10, Bold: true, Color: cardTitle})
	s.Text(c.Description, domain.Rect{X: rect.X + 12, Y: rect.Y + 36, W: c.w - 24, H: c.h - 80},
		TextStyle{Size: 9, Color: cardDescription, Wrap: true})
	s.Text(fmt.Sprintf("Progress: %d%%", c.progress), domain.Rect{X: rect.X + 12, Y: rect.Bottom() - 44, W: c.w - 24, H: 16},
		TextStyle{Size: 9, Color: cardLabel})

	bar := c.ProgressBar()
	s.FillRect(bar, 6, progressTrack)
	s.StrokeRect(bar, 6, 1, progressTrackEdge)
	if c.progress > 0 {
		fill := bar
		fill.W = bar.W * float64(c.progress) / 100
		s.FillRect(fill, 6, progressFill)
	}

	c.renderHandle(s)
}

func cardFromRecord(rec *domain.Record) (*Card, error) {
	title, _ := rec.Payload["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("card %d has no title", rec.ID)
	}
	description, _ := rec.Payload["description"].(string)

	c := NewCard(title, description)
	if v, ok := payloadNumber(rec.Payload, "progress"); ok {
		c.SetProgress(int(math.Round(math.Max(0, math.Min(100, v)))))
	}
	return c, nil
}
