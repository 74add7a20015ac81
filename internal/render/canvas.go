package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gg"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
)

// Background is the canvas color behind every item.
var Background = domain.RGB{R: 0x11, G: 0x11, B: 0x11}

var bandColor = domain.RGB{R: 0x4a, G: 0x90, B: 0xe2}

// Options describes one frame of the canvas.
type Options struct {
	Width  int
	Height int
	Scale  float64
	Offset domain.Point

	// Preview is an in-progress stroke drawn above the items.
	Preview      []domain.Point
	PreviewColor domain.RGB
	PenWidth     float64

	// Band, when non-empty, is the rubber-band selection outline.
	Band domain.Rect
}

// Canvas paints frames of the board. It reuses its fonts across frames.
type Canvas struct {
	fonts  *Fonts
	logger *slog.Logger
}

// NewCanvas loads the fonts and routes gg's own diagnostics to logger.
func NewCanvas(logger *slog.Logger) (*Canvas, error) {
	fonts, err := LoadFonts()
	if err != nil {
		return nil, err
	}
	gg.SetLogger(logger)
	return &Canvas{fonts: fonts, logger: logger}, nil
}

// Paint draws items bottom first onto a fresh context. The caller closes
// the returned context.
func (c *Canvas) Paint(items []board.Item, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.ClearWithColor(gg.RGB(float64(Background.R)/255, float64(Background.G)/255, float64(Background.B)/255))

	s := NewGGSurface(dc, c.fonts, opts.Scale, opts.Offset)
	for _, it := range items {
		it.Render(s)
	}
	if len(opts.Preview) > 0 {
		width := opts.PenWidth
		if width <= 0 {
			width = board.DefaultStrokeWidth
		}
		s.Polyline(opts.Preview, width, opts.PreviewColor)
	}
	if band := opts.Band.Normalize(); band.W > 0 && band.H > 0 {
		s.StrokeRect(band, 0, 1, bandColor)
	}

	c.logger.Debug("canvas painted", "items", len(items), "width", opts.Width, "height", opts.Height, "scale", s.scale)
	return dc, nil
}

// WritePNG paints a frame and encodes it as PNG to w.
func (c *Canvas) WritePNG(w io.Writer, items []board.Item, opts Options) (err error) {
	dc, err := c.Paint(items, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dc.Close())
	}()

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG paints a frame into the file at path, replacing it.
func (c *Canvas) SavePNG(path string, items []board.Item, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := c.WritePNG(f, items, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
