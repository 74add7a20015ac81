package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pinboard/internal/db"
	"github.com/vbonduro/pinboard/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return d
}

func TestItemStoreInsert(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindCard, 40, 40, 260, 170, domain.Payload{
		"title":       "Ship v1",
		"description": "",
		"progress":    0,
	}, 0)
	require.NoError(t, err)
	assert.NotZero(t, id)

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.KindCard, rec.Kind)
	assert.Equal(t, 40.0, rec.X)
	assert.Equal(t, 260.0, rec.W)
	assert.Equal(t, 0, rec.Z)
	assert.Equal(t, "Ship v1", rec.Payload["title"])
	// JSON numbers decode as float64.
	assert.Equal(t, 0.0, rec.Payload["progress"])
	assert.False(t, rec.Corrupt)
}

func TestItemStoreInsertNilPayload(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindText, 0, 0, 220, 80, nil, 0)
	require.NoError(t, err)

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, rec.Payload)
	assert.Empty(t, rec.Payload)
}

func TestItemStoreGetByID_NotFound(t *testing.T) {
	items := NewItemStore(openTestDB(t))

	rec, err := items.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestItemStoreLoadAll_OrderedByZThenID(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	top, err := items.Insert(ctx, domain.KindCard, 0, 0, 100, 100, domain.Payload{"title": "top"}, 5)
	require.NoError(t, err)
	first, err := items.Insert(ctx, domain.KindCard, 0, 0, 100, 100, domain.Payload{"title": "first"}, 0)
	require.NoError(t, err)
	second, err := items.Insert(ctx, domain.KindCard, 0, 0, 100, 100, domain.Payload{"title": "second"}, 0)
	require.NoError(t, err)

	records, err := items.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, first, records[0].ID)
	assert.Equal(t, second, records[1].ID)
	assert.Equal(t, top, records[2].ID)
}

func TestItemStoreLoadAll_Empty(t *testing.T) {
	items := NewItemStore(openTestDB(t))

	records, err := items.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestItemStoreLoadAll_CorruptPayload(t *testing.T) {
	d := openTestDB(t)
	items := NewItemStore(d)
	ctx := context.Background()

	_, err := d.Exec(`INSERT INTO board_items (kind, payload) VALUES ('card', 'not json')`)
	require.NoError(t, err)

	records, err := items.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Corrupt)
	assert.Nil(t, records[0].Payload)
}

func TestItemStoreUpdateGeometry(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindImage, 80, 80, 300, 200, domain.Payload{"path": "a.png"}, 0)
	require.NoError(t, err)

	require.NoError(t, items.UpdateGeometry(ctx, id, 10.5, 20.25, 120, 90))

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10.5, rec.X)
	assert.Equal(t, 20.25, rec.Y)
	assert.Equal(t, 120.0, rec.W)
	assert.Equal(t, 90.0, rec.H)
	assert.Equal(t, "a.png", rec.Payload["path"])
}

func TestItemStoreUpdateGeometry_SameValuesTwice(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindCard, 0, 0, 260, 170, domain.Payload{"title": "x"}, 0)
	require.NoError(t, err)

	require.NoError(t, items.UpdateGeometry(ctx, id, 5, 5, 260, 170))
	require.NoError(t, items.UpdateGeometry(ctx, id, 5, 5, 260, 170))

	records, err := items.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5.0, records[0].X)
	assert.Equal(t, 5.0, records[0].Y)
}

func TestItemStoreUpdateGeometry_NotFound(t *testing.T) {
	items := NewItemStore(openTestDB(t))

	err := items.UpdateGeometry(context.Background(), 42, 0, 0, 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemStoreUpdatePayload(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindText, 0, 0, 220, 80, domain.Payload{"markup": "", "color": "#ffffff"}, 0)
	require.NoError(t, err)

	require.NoError(t, items.UpdatePayload(ctx, id, domain.Payload{"markup": "**hi**", "color": "#ff0000"}))

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "**hi**", rec.Payload["markup"])
	assert.Equal(t, "#ff0000", rec.Payload["color"])
}

func TestItemStoreUpdateZ(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindCard, 0, 0, 260, 170, domain.Payload{"title": "x"}, 0)
	require.NoError(t, err)

	require.NoError(t, items.UpdateZ(ctx, id, 3))

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Z)
}

func TestItemStoreDelete(t *testing.T) {
	items := NewItemStore(openTestDB(t))
	ctx := context.Background()

	id, err := items.Insert(ctx, domain.KindStroke, 0, 0, 10, 10, domain.Payload{"points": [][]float64{{0, 0}, {10, 10}}}, 0)
	require.NoError(t, err)

	require.NoError(t, items.Delete(ctx, id))

	rec, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.ErrorIs(t, items.Delete(ctx, id), ErrNotFound)
}
