// Package session owns the live board: the ordered item collection, the
// selection and the focused text note. Every mutation is applied to the
// in-memory item and then written through to the store in the same call.
//
// A Session is not safe for concurrent use. The host drives it from a single
// goroutine, which is what keeps a move and a resize of the same item from
// interleaving their writes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/imagesource"
)

// ErrValidation marks user input that was rejected before anything was
// written.
var ErrValidation = errors.New("validation failed")

var (
	cardOrigin  = domain.Point{X: 40, Y: 40}
	imageOrigin = domain.Point{X: 80, Y: 80}
)

// itemRepository is the subset of store.ItemStore that Session requires.
type itemRepository interface {
	Insert(ctx context.Context, kind domain.Kind, x, y, w, h float64, payload domain.Payload, z int) (int64, error)
	UpdateGeometry(ctx context.Context, id int64, x, y, w, h float64) error
	UpdatePayload(ctx context.Context, id int64, payload domain.Payload) error
	UpdateZ(ctx context.Context, id int64, z int) error
	Delete(ctx context.Context, id int64) error
	LoadAll(ctx context.Context) ([]*domain.Record, error)
}

type Op int

const (
	OpAdded Op = iota
	OpUpdated
	OpRemoved
	OpCleared
	// OpPreview carries an unpersisted in-progress stroke path.
	OpPreview
)

func (o Op) String() string {
	switch o {
	case OpAdded:
		return "added"
	case OpUpdated:
		return "updated"
	case OpRemoved:
		return "removed"
	case OpCleared:
		return "cleared"
	case OpPreview:
		return "preview"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Delta is one change the rendering layer has to apply.
type Delta struct {
	Op      Op
	Item    board.Item
	Preview []domain.Point
}

type Listener func(Delta)

type Session struct {
	store    itemRepository
	images   imagesource.Source
	logger   *slog.Logger
	items    []board.Item
	focused  *board.Text
	listener Listener
}

func New(store itemRepository, images imagesource.Source, logger *slog.Logger) *Session {
	return &Session{
		store:  store,
		images: images,
		logger: logger,
	}
}

// OnChange registers the delta listener, replacing any previous one.
func (s *Session) OnChange(l Listener) {
	s.listener = l
}

func (s *Session) emit(d Delta) {
	if s.listener != nil {
		s.listener(d)
	}
}

// Items returns the live items in paint order, bottom first.
func (s *Session) Items() []board.Item {
	out := make([]board.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Load discards the current scene and rebuilds it from storage. Rows that
// cannot be turned back into items are skipped; only a failure to read the
// table fails the load.
func (s *Session) Load(ctx context.Context) error {
	s.items = nil
	s.focused = nil
	s.emit(Delta{Op: OpCleared})

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load board: %w", err)
	}

	skipped := 0
	for _, rec := range records {
		item, err := board.FromRecord(ctx, rec, s.images)
		if err != nil {
			skipped++
			s.logger.Warn("skipping board item", "id", rec.ID, "kind", rec.Kind, "error", err)
			continue
		}
		s.items = append(s.items, item)
		s.emit(Delta{Op: OpAdded, Item: item})
	}

	s.logger.Info("board loaded", "items", len(s.items), "skipped", skipped)
	return nil
}

func (s *Session) CreateCard(ctx context.Context, title, description string) (*board.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: card title is required", ErrValidation)
	}

	card := board.NewCard(title, strings.TrimSpace(description))
	card.SetPosition(cardOrigin.X, cardOrigin.Y)
	if err := s.add(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// CreateImage decodes the file before anything is written, so an unreadable
// image never produces a row.
func (s *Session) CreateImage(ctx context.Context, path string) (*board.Image, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: image path is required", ErrValidation)
	}
	bitmap, err := s.images.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	img := board.NewImage(path, bitmap)
	img.SetPosition(imageOrigin.X, imageOrigin.Y)
	if err := s.add(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// CreateText places an empty note at p, persists a placeholder row and
// focuses the note for typing.
func (s *Session) CreateText(ctx context.Context, p domain.Point, color domain.RGB) (*board.Text, error) {
	if err := s.Blur(ctx); err != nil {
		s.logger.Error("failed to commit focused text", "error", err)
	}

	t := board.NewText(color)
	t.SetPosition(p.X, p.Y)
	if err := s.add(ctx, t); err != nil {
		return nil, err
	}
	s.Focus(t)
	return t, nil
}

// CreateStroke persists a finished freehand path. Paths with fewer than two
// points are rejected with board.ErrTooFewPoints and leave no row.
func (s *Session) CreateStroke(ctx context.Context, points []domain.Point, width float64, color domain.RGB) (*board.Stroke, error) {
	stroke, err := board.NewStroke(points, width, color)
	if err != nil {
		return nil, err
	}
	if err := s.add(ctx, stroke); err != nil {
		return nil, err
	}
	return stroke, nil
}

// add inserts the row first and only then shows the item, so a visible item
// always has an id.
func (s *Session) add(ctx context.Context, item board.Item) error {
	pos := item.Position()
	w, h := item.Size()
	id, err := s.store.Insert(ctx, item.Kind(), pos.X, pos.Y, w, h, item.Payload(), item.Z())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", item.Kind(), err)
	}
	item.SetID(id)
	s.insertOrdered(item)

	s.logger.Debug("board item created", "id", id, "kind", item.Kind())
	s.emit(Delta{Op: OpAdded, Item: item})
	return nil
}

// insertOrdered keeps s.items sorted by (z, id), the order LoadAll returns.
func (s *Session) insertOrdered(item board.Item) {
	i := len(s.items)
	for i > 0 && s.items[i-1].Z() > item.Z() {
		i--
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
}

func (s *Session) indexOf(item board.Item) int {
	for i, it := range s.items {
		if it == item {
			return i
		}
	}
	return -1
}

// Move places item at (x, y) and writes the geometry through.
func (s *Session) Move(ctx context.Context, item board.Item, x, y float64) error {
	item.SetPosition(x, y)
	return s.writeGeometry(ctx, item)
}

// Resize applies the size policy and writes the geometry through.
func (s *Session) Resize(ctx context.Context, item board.Item, w, h float64) error {
	item.SetSize(w, h)
	return s.writeGeometry(ctx, item)
}

func (s *Session) writeGeometry(ctx context.Context, item board.Item) error {
	s.emit(Delta{Op: OpUpdated, Item: item})
	if item.ID() == 0 {
		return nil
	}
	pos := item.Position()
	w, h := item.Size()
	if err := s.store.UpdateGeometry(ctx, item.ID(), pos.X, pos.Y, w, h); err != nil {
		return fmt.Errorf("failed to save geometry of item %d: %w", item.ID(), err)
	}
	return nil
}

// SetProgress clamps v into the card and writes the payload through.
func (s *Session) SetProgress(ctx context.Context, card *board.Card, v int) error {
	card.SetProgress(v)
	return s.writePayload(ctx, card)
}

func (s *Session) writePayload(ctx context.Context, item board.Item) error {
	s.emit(Delta{Op: OpUpdated, Item: item})
	if item.ID() == 0 {
		return nil
	}
	if err := s.store.UpdatePayload(ctx, item.ID(), item.Payload()); err != nil {
		return fmt.Errorf("failed to save payload of item %d: %w", item.ID(), err)
	}
	return nil
}

// Focus puts t into editing mode. Any previously focused note keeps its
// content uncommitted; call Blur first to save it.
func (s *Session) Focus(t *board.Text) {
	s.focused = t
	t.BeginEdit()
	s.emit(Delta{Op: OpUpdated, Item: t})
}

func (s *Session) Focused() *board.Text {
	return s.focused
}

// Blur leaves the focused note and writes its content and color through if
// either changed while it was focused.
func (s *Session) Blur(ctx context.Context) error {
	t := s.focused
	if t == nil {
		return nil
	}
	s.focused = nil
	if !t.EndEdit() {
		s.emit(Delta{Op: OpUpdated, Item: t})
		return nil
	}
	return s.writePayload(ctx, t)
}

// BringToFront moves item above every other item and persists its new z.
func (s *Session) BringToFront(ctx context.Context, item board.Item) error {
	i := s.indexOf(item)
	if i < 0 {
		return fmt.Errorf("item %d is not on the board", item.ID())
	}
	top := 0
	for _, it := range s.items {
		if it != item {
			top = max(top, it.Z())
		}
	}
	item.SetZ(top + 1)
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.items = append(s.items, item)
	s.emit(Delta{Op: OpUpdated, Item: item})

	if item.ID() == 0 {
		return nil
	}
	if err := s.store.UpdateZ(ctx, item.ID(), item.Z()); err != nil {
		return fmt.Errorf("failed to save z of item %d: %w", item.ID(), err)
	}
	return nil
}

// Delete removes item from storage, then from the scene. On a storage error
// the item stays visible.
func (s *Session) Delete(ctx context.Context, item board.Item) error {
	if item.ID() != 0 {
		if err := s.store.Delete(ctx, item.ID()); err != nil {
			return fmt.Errorf("failed to delete item %d: %w", item.ID(), err)
		}
	}
	if i := s.indexOf(item); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	if s.focused != nil && board.Item(s.focused) == item {
		s.focused = nil
	}
	s.logger.Debug("board item deleted", "id", item.ID(), "kind", item.Kind())
	s.emit(Delta{Op: OpRemoved, Item: item})
	return nil
}

// DeleteSelected deletes every selected item, stopping at the first failure.
func (s *Session) DeleteSelected(ctx context.Context) error {
	for _, item := range s.Selected() {
		if err := s.Delete(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Preview reports an in-progress stroke path. A nil path clears the preview.
func (s *Session) Preview(points []domain.Point) {
	s.emit(Delta{Op: OpPreview, Preview: points})
}
