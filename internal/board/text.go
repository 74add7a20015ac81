package board

import (
	"fmt"

	"github.com/vbonduro/pinboard/internal/domain"
)

const (
	TextWidth  = 220.0
	TextHeight = 80.0
)

var (
	DefaultTextColor = domain.RGB{R: 0xea, G: 0xea, B: 0xea}

	textEditBorder = domain.RGB{R: 0x4a, G: 0x90, B: 0xe2}
)

// Text is a free-standing note holding Markdown markup. Edits happen while
// the note is focused; EndEdit tells the caller whether anything needs to be
// written back.
type Text struct {
	geometry
	markup  string
	color   domain.RGB
	editing bool

	editMarkup string
	editColor  domain.RGB
}

func NewText(color domain.RGB) *Text {
	return &Text{
		geometry: geometry{w: TextWidth, h: TextHeight},
		color:    color,
	}
}

func (t *Text) Kind() domain.Kind { return domain.KindText }

func (t *Text) Markup() string        { return t.markup }
func (t *Text) Color() domain.RGB     { return t.color }
func (t *Text) Editing() bool         { return t.editing }
func (t *Text) SetMarkup(m string)    { t.markup = m }
func (t *Text) SetColor(c domain.RGB) { t.color = c }

// BeginEdit focuses the note and snapshots its content.
func (t *Text) BeginEdit() {
	if t.editing {
		return
	}
	t.editing = true
	t.editMarkup = t.markup
	t.editColor = t.color
}

// EndEdit leaves the focused state and reports whether content or color
// changed since BeginEdit.
func (t *Text) EndEdit() bool {
	if !t.editing {
		return false
	}
	t.editing = false
	return t.markup != t.editMarkup || t.color != t.editColor
}

func (t *Text) Payload() domain.Payload {
	return domain.Payload{
		"markup": t.markup,
		"color":  t.color.Hex(),
	}
}

func (t *Text) Render(s Surface) {
	rect := t.BoundingBox()
	if t.editing {
		s.StrokeRect(rect, 0, 1, textEditBorder)
	} else if t.selected {
		s.StrokeRect(rect, 0, 1, cardBorderSelected)
	}
	s.Text(t.markup, rect, TextStyle{Size: 11, Color: t.color, Wrap: true, Markup: true})
	t.renderHandle(s)
}

func textFromRecord(rec *domain.Record) (*Text, error) {
	markup, ok := rec.Payload["markup"].(string)
	if !ok {
		return nil, fmt.Errorf("text %d has no markup", rec.ID)
	}
	color := DefaultTextColor
	if hex, ok := rec.Payload["color"].(string); ok {
		c, err := domain.ParseRGB(hex)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", rec.ID, err)
		}
		color = c
	}
	t := NewText(color)
	t.markup = markup
	return t, nil
}
