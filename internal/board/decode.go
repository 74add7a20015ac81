package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/imagesource"
)

// ErrUnknownKind is returned by FromRecord for rows of a kind this build
// does not know how to draw.
var ErrUnknownKind = errors.New("unknown board item kind")

// FromRecord rebuilds a live item from a stored row. Any error means the row
// should be skipped, not that loading failed.
func FromRecord(ctx context.Context, rec *domain.Record, images imagesource.Source) (Item, error) {
	if rec.Corrupt || rec.Payload == nil {
		return nil, fmt.Errorf("item %d has a malformed payload", rec.ID)
	}

	var item Item
	switch rec.Kind {
	case domain.KindCard:
		c, err := cardFromRecord(rec)
		if err != nil {
			return nil, err
		}
		c.restoreSize(rec.W, rec.H)
		item = c
	case domain.KindImage:
		img, err := imageFromRecord(rec, func(path string) (image.Image, error) {
			return images.Open(ctx, path)
		})
		if err != nil {
			return nil, err
		}
		img.restoreSize(rec.W, rec.H)
		item = img
	case domain.KindText:
		t, err := textFromRecord(rec)
		if err != nil {
			return nil, err
		}
		t.restoreSize(rec.W, rec.H)
		item = t
	case domain.KindStroke:
		s, err := strokeFromRecord(rec)
		if err != nil {
			return nil, err
		}
		// A resized straight stroke keeps a stored size larger than its
		// point extent.
		s.w, s.h = math.Max(s.w, rec.W), math.Max(s.h, rec.H)
		return withIdentity(s, rec), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, rec.Kind)
	}

	item.SetPosition(rec.X, rec.Y)
	return withIdentity(item, rec), nil
}

func withIdentity(item Item, rec *domain.Record) Item {
	item.SetID(rec.ID)
	item.SetZ(rec.Z)
	return item
}

func payloadNumber(p domain.Payload, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// payloadPoints accepts both the in-memory form ([][]float64) and what JSON
// decoding produces ([]any of []any).
func payloadPoints(p domain.Payload, key string) ([]domain.Point, error) {
	switch raw := p[key].(type) {
	case [][]float64:
		pts := make([]domain.Point, 0, len(raw))
		for _, pair := range raw {
			if len(pair) != 2 {
				return nil, fmt.Errorf("point has %d coordinates", len(pair))
			}
			pts = append(pts, domain.Point{X: pair[0], Y: pair[1]})
		}
		return pts, nil
	case []any:
		pts := make([]domain.Point, 0, len(raw))
		for _, entry := range raw {
			pair, ok := entry.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("malformed point %v", entry)
			}
			x, xok := pair[0].(float64)
			y, yok := pair[1].(float64)
			if !xok || !yok {
				return nil, fmt.Errorf("malformed point %v", entry)
			}
			pts = append(pts, domain.Point{X: x, Y: y})
		}
		return pts, nil
	}
	return nil, fmt.Errorf("missing %q", key)
}
