package session

import (
	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
)

// Select marks item as selected. Without additive, every other item is
// deselected first.
func (s *Session) Select(item board.Item, additive bool) {
	if !additive {
		s.ClearSelection()
	}
	if !item.Selected() {
		item.SetSelected(true)
		s.emit(Delta{Op: OpUpdated, Item: item})
	}
}

func (s *Session) ClearSelection() {
	for _, it := range s.items {
		if it.Selected() {
			it.SetSelected(false)
			s.emit(Delta{Op: OpUpdated, Item: it})
		}
	}
}

// Selected returns the selected items in paint order.
func (s *Session) Selected() []board.Item {
	var out []board.Item
	for _, it := range s.items {
		if it.Selected() {
			out = append(out, it)
		}
	}
	return out
}

// SelectIn selects every item whose bounding box intersects r.
func (s *Session) SelectIn(r domain.Rect, additive bool) {
	if !additive {
		s.ClearSelection()
	}
	r = r.Normalize()
	for _, it := range s.items {
		if it.BoundingBox().Intersects(r) && !it.Selected() {
			it.SetSelected(true)
			s.emit(Delta{Op: OpUpdated, Item: it})
		}
	}
}

// ItemAt returns the topmost item under p, or nil.
func (s *Session) ItemAt(p domain.Point) board.Item {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].HitTest(p) != board.HitNone {
			return s.items[i]
		}
	}
	return nil
}

// StrokeAt returns the topmost persisted stroke touching r, or nil.
func (s *Session) StrokeAt(r domain.Rect) *board.Stroke {
	for i := len(s.items) - 1; i >= 0; i-- {
		stroke, ok := s.items[i].(*board.Stroke)
		if ok && stroke.ID() != 0 && stroke.Touches(r) {
			return stroke
		}
	}
	return nil
}

// Lookup returns the live item with the given id, or nil.
func (s *Session) Lookup(id int64) board.Item {
	for _, it := range s.items {
		if it.ID() == id {
			return it
		}
	}
	return nil
}
