// Package render paints board items with the gg software rasterizer.
package render

import (
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
)

// pointsToPixels converts TextStyle sizes, given in points, to pixels.
const pointsToPixels = 4.0 / 3.0

// Fonts holds the parsed font sources used for text. Faces are derived per
// size and cached.
type Fonts struct {
	regular *text.FontSource
	bold    *text.FontSource
	faces   map[faceKey]text.Face
}

type faceKey struct {
	size float64
	bold bool
}

func LoadFonts() (*Fonts, error) {
	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold, faces: make(map[faceKey]text.Face)}, nil
}

func (f *Fonts) face(size float64, bold bool) text.Face {
	key := faceKey{size: size, bold: bold}
	if face, ok := f.faces[key]; ok {
		return face
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	face := src.Face(size)
	f.faces[key] = face
	return face
}

// GGSurface implements board.Surface on a gg context. Canvas coordinates
// are mapped to pixels by the view scale and offset; gg's text drawing
// ignores the context transform, so the mapping is applied here.
type GGSurface struct {
	dc     *gg.Context
	fonts  *Fonts
	scale  float64
	offset domain.Point
}

var _ board.Surface = (*GGSurface)(nil)

func NewGGSurface(dc *gg.Context, fonts *Fonts, scale float64, offset domain.Point) *GGSurface {
	if scale <= 0 {
		scale = 1
	}
	return &GGSurface{dc: dc, fonts: fonts, scale: scale, offset: offset}
}

func (s *GGSurface) point(p domain.Point) (float64, float64) {
	return (p.X - s.offset.X) * s.scale, (p.Y - s.offset.Y) * s.scale
}

func (s *GGSurface) rect(r domain.Rect) (x, y, w, h float64) {
	x, y = s.point(domain.Point{X: r.X, Y: r.Y})
	return x, y, r.W * s.scale, r.H * s.scale
}

func (s *GGSurface) setColor(c domain.RGB) {
	s.dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

func (s *GGSurface) shape(r domain.Rect, radius float64) {
	x, y, w, h := s.rect(r)
	if radius > 0 {
		s.dc.DrawRoundedRectangle(x, y, w, h, radius*s.scale)
		return
	}
	s.dc.DrawRectangle(x, y, w, h)
}

func (s *GGSurface) FillRect(r domain.Rect, radius float64, fill domain.RGB) {
	s.shape(r, radius)
	s.setColor(fill)
	_ = s.dc.Fill()
}

func (s *GGSurface) StrokeRect(r domain.Rect, radius, width float64, c domain.RGB) {
	s.shape(r, radius)
	s.setColor(c)
	s.dc.SetLineWidth(width * s.scale)
	_ = s.dc.Stroke()
}

func (s *GGSurface) Polyline(pts []domain.Point, width float64, c domain.RGB) {
	if len(pts) == 0 {
		return
	}
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	s.dc.SetLineWidth(width * s.scale)
	s.setColor(c)

	s.dc.MoveTo(s.point(pts[0]))
	if len(pts) == 1 {
		// A single-point preview still shows a dot.
		s.dc.LineTo(s.point(pts[0]))
	}
	for _, p := range pts[1:] {
		s.dc.LineTo(s.point(p))
	}
	_ = s.dc.Stroke()
}

func (s *GGSurface) Image(img image.Image, box domain.Rect) {
	if img == nil || img.Bounds().Empty() {
		return
	}
	x, y, w, h := s.rect(box)
	s.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:         x,
		Y:         y,
		DstWidth:  w,
		DstHeight: h,
	})
}

// Text draws str inside box. Lines that would start below the box are not
// drawn.
func (s *GGSurface) Text(str string, box domain.Rect, style board.TextStyle) {
	var lines []Line
	if style.Markup {
		lines = Flatten(str)
	} else {
		for _, l := range strings.Split(str, "\n") {
			lines = append(lines, Line{Text: l, Bold: style.Bold})
		}
	}
	if len(lines) == 0 {
		return
	}

	size := style.Size * pointsToPixels * s.scale
	x, y, w, h := s.rect(box)
	bottom := y + h
	s.setColor(style.Color)

	for _, line := range lines {
		face := s.fonts.face(size, line.Bold || style.Bold)
		s.dc.SetFont(face)
		m := face.Metrics()

		wrapped := []string{line.Text}
		if style.Wrap {
			wrapped = wrap(line.Text, w, s.dc.MeasureString)
		}
		for _, l := range wrapped {
			if y >= bottom {
				return
			}
			s.dc.DrawString(l, x, y+m.Ascent)
			y += m.LineHeight()
		}
	}
}

// wrap breaks text at spaces so that each line measures at most width.
// A single word wider than width gets a line of its own.
func wrap(s string, width float64, measure func(string) (float64, float64)) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w, _ := measure(candidate); w <= width {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
