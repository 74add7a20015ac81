package board

import (
	"fmt"
	"image"
	"math"

	"github.com/vbonduro/pinboard/internal/domain"
)

const (
	imageMinSide = 120.0
	imageMaxSide = 420.0
)

var imageBorderSelected = domain.RGB{R: 0xaa, G: 0xaa, B: 0xaa}

// Image shows a bitmap loaded from an external file. Only the path is
// persisted; the decoded bitmap lives in memory.
type Image struct {
	geometry
	Path   string
	bitmap image.Image
}

// NewImage sizes the item from the bitmap: each side is raised to at least
// 120 units, then both are scaled down together so neither exceeds 420.
func NewImage(path string, bitmap image.Image) *Image {
	b := bitmap.Bounds()
	w := math.Max(imageMinSide, float64(b.Dx()))
	h := math.Max(imageMinSide, float64(b.Dy()))
	scale := math.Min(1, imageMaxSide/math.Max(w, h))

	return &Image{
		geometry: geometry{w: w * scale, h: h * scale},
		Path:     path,
		bitmap:   bitmap,
	}
}

func (i *Image) Kind() domain.Kind { return domain.KindImage }

func (i *Image) Bitmap() image.Image { return i.bitmap }

func (i *Image) Payload() domain.Payload {
	return domain.Payload{"path": i.Path}
}

func (i *Image) Render(s Surface) {
	rect := i.BoundingBox()
	s.Image(i.bitmap, rect)
	if i.selected {
		s.StrokeRect(rect, 0, 2, imageBorderSelected)
	}
	i.renderHandle(s)
}

func imageFromRecord(rec *domain.Record, load func(path string) (image.Image, error)) (*Image, error) {
	path, _ := rec.Payload["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("image %d has no path", rec.ID)
	}
	bitmap, err := load(path)
	if err != nil {
		return nil, err
	}
	return NewImage(path, bitmap), nil
}
