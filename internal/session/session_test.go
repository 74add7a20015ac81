package session

import (
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/db"
	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/imagesource/local"
	"github.com/vbonduro/pinboard/internal/store"
)

// failingStore wraps a real store and fails the selected operations.
type failingStore struct {
	*store.ItemStore
	failInsert   bool
	failGeometry bool
	failDelete   bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Insert(ctx context.Context, kind domain.Kind, x, y, w, h float64, payload domain.Payload, z int) (int64, error) {
	if f.failInsert {
		return 0, errDiskFull
	}
	return f.ItemStore.Insert(ctx, kind, x, y, w, h, payload, z)
}

func (f *failingStore) UpdateGeometry(ctx context.Context, id int64, x, y, w, h float64) error {
	if f.failGeometry {
		return errDiskFull
	}
	return f.ItemStore.UpdateGeometry(ctx, id, x, y, w, h)
}

func (f *failingStore) Delete(ctx context.Context, id int64) error {
	if f.failDelete {
		return errDiskFull
	}
	return f.ItemStore.Delete(ctx, id)
}

type fixture struct {
	session *Session
	items   *store.ItemStore
	failing *failingStore
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	items := store.NewItemStore(d)
	failing := &failingStore{ItemStore: items}
	dir := t.TempDir()
	return &fixture{
		session: New(failing, local.NewLocalImageSource(dir), slog.Default()),
		items:   items,
		failing: failing,
		dir:     dir,
	}
}

// reopen builds a fresh session over the same storage, as an app restart would.
func (f *fixture) reopen(t *testing.T) *Session {
	t.Helper()
	s := New(f.items, local.NewLocalImageSource(f.dir), slog.Default())
	require.NoError(t, s.Load(context.Background()))
	return s
}

func (f *fixture) writePNG(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, out.Close())
	return path
}

func (f *fixture) rowCount(t *testing.T) int {
	t.Helper()
	records, err := f.items.LoadAll(context.Background())
	require.NoError(t, err)
	return len(records)
}

func TestCreateCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "Ship v1", "")
	require.NoError(t, err)
	assert.NotZero(t, card.ID())

	records, err := f.items.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.KindCard, records[0].Kind)
	assert.Equal(t, 0.0, records[0].Payload["progress"])
	assert.Equal(t, 40.0, records[0].X)
	assert.Equal(t, board.CardWidth, records[0].W)
	assert.Len(t, f.session.Items(), 1)
}

func TestCreateCard_EmptyTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.CreateCard(context.Background(), "   ", "desc")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.rowCount(t))
	assert.Empty(t, f.session.Items())
}

func TestCreateCard_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.failing.failInsert = true

	_, err := f.session.CreateCard(context.Background(), "title", "")
	assert.ErrorIs(t, err, errDiskFull)
	assert.Empty(t, f.session.Items(), "item must not appear without a row")
}

func TestCreateImage(t *testing.T) {
	f := newFixture(t)
	path := f.writePNG(t, "photo.png", 600, 300)

	img, err := f.session.CreateImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.Point{X: 80, Y: 80}, img.Position())
	w, h := img.Size()
	assert.InDelta(t, 420, w, 1e-9)
	assert.InDelta(t, 210, h, 1e-9)
	assert.Equal(t, 1, f.rowCount(t))
}

func TestCreateImage_Undecodable(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0600))

	_, err := f.session.CreateImage(context.Background(), path)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.rowCount(t))
}

func TestCreateTextFocuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txt, err := f.session.CreateText(ctx, domain.Point{X: 300, Y: 120}, board.DefaultTextColor)
	require.NoError(t, err)
	assert.Same(t, txt, f.session.Focused())
	assert.True(t, txt.Editing())

	rec, err := f.items.GetByID(ctx, txt.ID())
	require.NoError(t, err)
	assert.Equal(t, "", rec.Payload["markup"])
	assert.Equal(t, 300.0, rec.X)
}

func TestBlurWritesTextThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txt, err := f.session.CreateText(ctx, domain.Point{}, board.DefaultTextColor)
	require.NoError(t, err)
	txt.SetMarkup("**done**")
	txt.SetColor(domain.RGB{R: 0xff})

	require.NoError(t, f.session.Blur(ctx))
	assert.Nil(t, f.session.Focused())

	rec, err := f.items.GetByID(ctx, txt.ID())
	require.NoError(t, err)
	assert.Equal(t, "**done**", rec.Payload["markup"])
	assert.Equal(t, "#ff0000", rec.Payload["color"])
}

func TestCreateStroke_TooFewPoints(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.CreateStroke(context.Background(), []domain.Point{{X: 1, Y: 1}}, 3, board.DefaultStrokeColor)
	assert.ErrorIs(t, err, board.ErrTooFewPoints)
	assert.Equal(t, 0, f.rowCount(t))
	assert.Empty(t, f.session.Items())
}

func TestMoveAndResizeWriteThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)

	require.NoError(t, f.session.Move(ctx, card, 120, 75))
	require.NoError(t, f.session.Resize(ctx, card, 10, 500))

	rec, err := f.items.GetByID(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, 120.0, rec.X)
	assert.Equal(t, 75.0, rec.Y)
	assert.Equal(t, board.MinWidth, rec.W)
	assert.Equal(t, 500.0, rec.H)
}

func TestMoveTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)

	require.NoError(t, f.session.Move(ctx, card, 10, 10))
	first, err := f.items.LoadAll(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.Move(ctx, card, 10, 10))
	second, err := f.items.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].X, second[0].X)
	assert.Equal(t, first[0].Y, second[0].Y)
	assert.Equal(t, first[0].W, second[0].W)
	assert.Equal(t, first[0].Payload, second[0].Payload)
}

func TestMove_StorageFailureKeepsMemory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)

	f.failing.failGeometry = true
	err = f.session.Move(ctx, card, 500, 500)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, domain.Point{X: 500, Y: 500}, card.Position())

	rec, err := f.items.GetByID(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, 40.0, rec.X, "storage keeps its last good value")
}

func TestSetProgressClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)

	require.NoError(t, f.session.SetProgress(ctx, card, 250))

	rec, err := f.items.GetByID(ctx, card.ID())
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.Payload["progress"])
}

func TestDeleteSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.session.CreateCard(ctx, "a", "")
	require.NoError(t, err)
	b, err := f.session.CreateCard(ctx, "b", "")
	require.NoError(t, err)
	c, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)

	f.session.Select(a, false)
	f.session.Select(c, true)
	require.NoError(t, f.session.DeleteSelected(ctx))

	assert.Equal(t, []board.Item{b}, f.session.Items())
	assert.Equal(t, 1, f.rowCount(t))
}

func TestDelete_StorageFailureKeepsItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "a", "")
	require.NoError(t, err)

	f.failing.failDelete = true
	assert.ErrorIs(t, f.session.Delete(ctx, card), errDiskFull)
	assert.Len(t, f.session.Items(), 1)
}

func TestLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "Ship v1", "release notes")
	require.NoError(t, err)
	require.NoError(t, f.session.SetProgress(ctx, card, 42))
	require.NoError(t, f.session.Move(ctx, card, 15.5, 22.25))

	keep, err := f.session.CreateImage(ctx, f.writePNG(t, "keep.png", 200, 200))
	require.NoError(t, err)
	require.NoError(t, f.session.Resize(ctx, keep, 333, 222))

	banner, err := f.session.CreateImage(ctx, f.writePNG(t, "banner.png", 1000, 100))
	require.NoError(t, err)
	_, bannerH := banner.Size()
	require.Less(t, bannerH, board.MinHeight)

	gonePath := f.writePNG(t, "gone.png", 200, 200)
	_, err = f.session.CreateImage(ctx, gonePath)
	require.NoError(t, err)

	txt, err := f.session.CreateText(ctx, domain.Point{X: 5, Y: 6}, domain.RGB{G: 0x80})
	require.NoError(t, err)
	txt.SetMarkup("- one\n- two")
	require.NoError(t, f.session.Blur(ctx))

	stroke, err := f.session.CreateStroke(ctx, []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, 4, domain.RGB{R: 9, G: 9, B: 9})
	require.NoError(t, err)
	require.NoError(t, f.session.Move(ctx, stroke, 100, 100))

	require.NoError(t, os.Remove(gonePath))

	reloaded := f.reopen(t)
	got := reloaded.Items()
	require.Len(t, got, 5, "the image with a missing file is skipped")

	want := []board.Item{card, keep, banner, txt, stroke}
	for i, w := range want {
		g := got[i]
		assert.Equal(t, w.ID(), g.ID())
		assert.Equal(t, w.Kind(), g.Kind())
		assert.InDelta(t, w.Position().X, g.Position().X, 1e-9)
		assert.InDelta(t, w.Position().Y, g.Position().Y, 1e-9)
		ww, wh := w.Size()
		gw, gh := g.Size()
		assert.InDelta(t, ww, gw, 1e-9)
		assert.InDelta(t, wh, gh, 1e-9)
	}

	assert.Equal(t, 42, got[0].(*board.Card).Progress())
	assert.Equal(t, "release notes", got[0].(*board.Card).Description)
	assert.Equal(t, "- one\n- two", got[3].(*board.Text).Markup())
	assert.Equal(t, domain.RGB{G: 0x80}, got[3].(*board.Text).Color())
	assert.Equal(t, []domain.Point{{X: 100, Y: 100}, {X: 110, Y: 100}, {X: 110, Y: 110}}, got[4].(*board.Stroke).Points())
	assert.Equal(t, 4.0, got[4].(*board.Stroke).Width())
}

func TestLoadSkipsBadRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.items.Insert(ctx, "sticker", 0, 0, 10, 10, domain.Payload{}, 0)
	require.NoError(t, err)
	_, err = f.items.Insert(ctx, domain.KindCard, 0, 0, 260, 170, domain.Payload{"title": ""}, 0)
	require.NoError(t, err)
	good, err := f.items.Insert(ctx, domain.KindCard, 0, 0, 260, 170, domain.Payload{"title": "ok"}, 0)
	require.NoError(t, err)

	reloaded := f.reopen(t)
	items := reloaded.Items()
	require.Len(t, items, 1)
	assert.Equal(t, good, items[0].ID())
}

func TestLoadReplacesScene(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.CreateCard(ctx, "a", "")
	require.NoError(t, err)

	var ops []Op
	f.session.OnChange(func(d Delta) { ops = append(ops, d.Op) })

	require.NoError(t, f.session.Load(ctx))
	assert.Len(t, f.session.Items(), 1)
	assert.Equal(t, []Op{OpCleared, OpAdded}, ops)
}

func TestBringToFront(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.session.CreateCard(ctx, "a", "")
	require.NoError(t, err)
	b, err := f.session.CreateCard(ctx, "b", "")
	require.NoError(t, err)

	require.NoError(t, f.session.BringToFront(ctx, a))
	assert.Equal(t, []board.Item{b, a}, f.session.Items())

	// A card created afterwards at z=0 slots in below the raised one.
	c, err := f.session.CreateCard(ctx, "c", "")
	require.NoError(t, err)
	assert.Equal(t, []board.Item{b, c, a}, f.session.Items())

	reloaded := f.reopen(t).Items()
	require.Len(t, reloaded, 3)
	assert.Equal(t, []int64{b.ID(), c.ID(), a.ID()}, []int64{reloaded[0].ID(), reloaded[1].ID(), reloaded[2].ID()})
}

func TestItemAtReturnsTopmost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.session.CreateCard(ctx, "below", "")
	require.NoError(t, err)
	top, err := f.session.CreateCard(ctx, "above", "")
	require.NoError(t, err)

	assert.Same(t, top, f.session.ItemAt(domain.Point{X: 100, Y: 100}))
	assert.Nil(t, f.session.ItemAt(domain.Point{X: 1000, Y: 1000}))
}

func TestSelectIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "a", "")
	require.NoError(t, err)
	far, err := f.session.CreateStroke(ctx, []domain.Point{{X: 900, Y: 900}, {X: 950, Y: 950}}, 2, board.DefaultStrokeColor)
	require.NoError(t, err)

	// Band dragged from bottom-right to top-left.
	f.session.SelectIn(domain.Rect{X: 100, Y: 100, W: -90, H: -90}, false)
	assert.True(t, card.Selected())
	assert.False(t, far.Selected())
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := f.session.CreateCard(ctx, "find me", "")
	require.NoError(t, err)

	assert.Same(t, card, f.session.Lookup(card.ID()))
	assert.Nil(t, f.session.Lookup(card.ID()+100))
}

func TestDeltasReachListener(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ops []Op
	f.session.OnChange(func(d Delta) { ops = append(ops, d.Op) })

	card, err := f.session.CreateCard(ctx, "watched", "")
	require.NoError(t, err)
	require.NoError(t, f.session.Move(ctx, card, 10, 10))
	require.NoError(t, f.session.Delete(ctx, card))
	f.session.Preview(nil)

	assert.Equal(t, []Op{OpAdded, OpUpdated, OpRemoved, OpPreview}, ops)
}
