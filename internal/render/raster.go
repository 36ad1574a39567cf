package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/ayusman/arsticker/internal/gesture"
)

// circleKappa places cubic control points for a quarter circle.
const circleKappa = 0.5522847498

// RasterSurface is a pure Go Surface backed by an RGBA image.
type RasterSurface struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRasterSurface creates a black surface of the given size.
func NewRasterSurface(width, height int) *RasterSurface {
	s := &RasterSurface{z: &vector.Rasterizer{}}
	s.Resize(width, height)
	return s
}

// Image exposes the backing image.
func (s *RasterSurface) Image() *image.RGBA { return s.img }

func (s *RasterSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *RasterSurface) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if s.img != nil {
		if w, h := s.Size(); w == width && h == height {
			return
		}
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	s.Clear()
}

func (s *RasterSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
}

func (s *RasterSurface) DrawVideo(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		s.Clear()
		return nil
	}
	img, err := frame.ToImage()
	if err != nil {
		return fmt.Errorf("render: convert frame: %w", err)
	}
	s.DrawBackground(img)
	return nil
}

// DrawBackground draws img mirrored horizontally and stretched to fill the
// surface.
func (s *RasterSurface) DrawBackground(img image.Image) {
	sb := img.Bounds()
	if sb.Empty() {
		s.Clear()
		return
	}
	w, h := s.Size()
	sx := float64(w) / float64(sb.Dx())
	sy := float64(h) / float64(sb.Dy())
	m := f64.Aff3{
		-sx, 0, float64(w) + sx*float64(sb.Min.X),
		0, sy, -sy * float64(sb.Min.Y),
	}
	draw.NearestNeighbor.Transform(s.img, m, img, sb, draw.Src, nil)
}

func (s *RasterSurface) DrawImage(img *image.NRGBA, m Matrix) {
	draw.BiLinear.Transform(s.img, m.Aff3(), img, img.Bounds(), draw.Over, nil)
}

func (s *RasterSurface) Line(a, b gesture.Point, c color.NRGBA, width float64) {
	length := a.Dist(b)
	if length == 0 || width <= 0 {
		return
	}
	// unit normal scaled to half the width
	nx := -(b.Y - a.Y) / length * width / 2
	ny := (b.X - a.X) / length * width / 2

	pts := []gesture.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
	s.fill(bounds(pts...), c, func(z *vector.Rasterizer, o gesture.Point) {
		z.MoveTo(f32(pts[0].X-o.X), f32(pts[0].Y-o.Y))
		for _, p := range pts[1:] {
			z.LineTo(f32(p.X-o.X), f32(p.Y-o.Y))
		}
		z.ClosePath()
	})
}

func (s *RasterSurface) FillCircle(center gesture.Point, radius float64, c color.NRGBA) {
	if radius <= 0 {
		return
	}
	s.fill(circleBounds(center, radius), c, func(z *vector.Rasterizer, o gesture.Point) {
		circlePath(z, center.Sub(o), radius, false)
	})
}

func (s *RasterSurface) StrokeCircle(center gesture.Point, radius float64, c color.NRGBA, width float64) {
	if radius <= 0 || width <= 0 {
		return
	}
	outer, inner := radius+width/2, math.Max(radius-width/2, 0)
	s.fill(circleBounds(center, outer), c, func(z *vector.Rasterizer, o gesture.Point) {
		circlePath(z, center.Sub(o), outer, false)
		if inner > 0 {
			circlePath(z, center.Sub(o), inner, true)
		}
	})
}

func (s *RasterSurface) EncodeJPEG(quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("render: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *RasterSurface) Close() error { return nil }

// fill rasterizes path over the part of r inside the surface. The path is
// given the clipped origin so it can draw in rasterizer coordinates.
func (s *RasterSurface) fill(r image.Rectangle, c color.NRGBA, path func(z *vector.Rasterizer, origin gesture.Point)) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}
	s.z.Reset(r.Dx(), r.Dy())
	s.z.DrawOp = draw.Over
	path(s.z, gesture.Point{X: float64(r.Min.X), Y: float64(r.Min.Y)})
	s.z.Draw(s.img, r, image.NewUniform(c), image.Point{})
}

func circlePath(z *vector.Rasterizer, c gesture.Point, r float64, reverse bool) {
	k := r * circleKappa
	dir := 1.0
	if reverse {
		dir = -1
	}
	z.MoveTo(f32(c.X+r), f32(c.Y))
	z.CubeTo(f32(c.X+r), f32(c.Y+dir*k), f32(c.X+k), f32(c.Y+dir*r), f32(c.X), f32(c.Y+dir*r))
	z.CubeTo(f32(c.X-k), f32(c.Y+dir*r), f32(c.X-r), f32(c.Y+dir*k), f32(c.X-r), f32(c.Y))
	z.CubeTo(f32(c.X-r), f32(c.Y-dir*k), f32(c.X-k), f32(c.Y-dir*r), f32(c.X), f32(c.Y-dir*r))
	z.CubeTo(f32(c.X+k), f32(c.Y-dir*r), f32(c.X+r), f32(c.Y-dir*k), f32(c.X+r), f32(c.Y))
	z.ClosePath()
}

func bounds(pts ...gesture.Point) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func circleBounds(c gesture.Point, r float64) image.Rectangle {
	return bounds(gesture.Point{X: c.X - r, Y: c.Y - r}, gesture.Point{X: c.X + r, Y: c.Y + r})
}

func f32(v float64) float32 { return float32(v) }
