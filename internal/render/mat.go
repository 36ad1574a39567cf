package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/arsticker/internal/gesture"
)

// MatSurface is a Surface backed by an OpenCV BGR matrix.
type MatSurface struct {
	mat gocv.Mat
}

// NewMatSurface creates a black surface of the given size.
func NewMatSurface(width, height int) *MatSurface {
	s := &MatSurface{mat: gocv.NewMat()}
	s.Resize(width, height)
	return s
}

// Mat exposes the backing matrix.
func (s *MatSurface) Mat() *gocv.Mat { return &s.mat }

func (s *MatSurface) Size() (int, int) {
	return s.mat.Cols(), s.mat.Rows()
}

func (s *MatSurface) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if w, h := s.Size(); w == width && h == height {
		return
	}
	s.mat.Close()
	s.mat = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	s.Clear()
}

func (s *MatSurface) Clear() {
	s.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

func (s *MatSurface) DrawVideo(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		s.Clear()
		return nil
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("render: unsupported frame type %v", frame.Type())
	}

	w, h := s.Size()
	src := *frame
	if frame.Cols() != w || frame.Rows() != h {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(*frame, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
		src = resized
	}
	gocv.Flip(src, &s.mat, 1)
	return nil
}

func (s *MatSurface) DrawImage(img *image.NRGBA, m Matrix) {
	src, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return
	}
	defer src.Close()

	affine := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer affine.Close()
	for i, v := range []float64{m.A, m.B, m.C, m.D, m.E, m.F} {
		affine.SetDoubleAt(i/3, i%3, v)
	}

	w, h := s.Size()
	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffineWithParams(src, &warped, affine, image.Pt(w, h), gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	channels := gocv.Split(warped)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 4 {
		return
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(channels[3], &mask, 127, 255, gocv.ThresholdBinary)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(warped, &bgr, gocv.ColorBGRAToBGR)
	bgr.CopyToWithMask(&s.mat, mask)
}

func (s *MatSurface) Line(a, b gesture.Point, c color.NRGBA, width float64) {
	s.blend(c, func(dst *gocv.Mat, col color.RGBA) {
		gocv.Line(dst, pt(a), pt(b), col, max(1, int(math.Round(width))))
	})
}

func (s *MatSurface) FillCircle(center gesture.Point, radius float64, c color.NRGBA) {
	s.blend(c, func(dst *gocv.Mat, col color.RGBA) {
		gocv.Circle(dst, pt(center), int(math.Round(radius)), col, -1)
	})
}

func (s *MatSurface) StrokeCircle(center gesture.Point, radius float64, c color.NRGBA, width float64) {
	s.blend(c, func(dst *gocv.Mat, col color.RGBA) {
		gocv.Circle(dst, pt(center), int(math.Round(radius)), col, max(1, int(math.Round(width))))
	})
}

func (s *MatSurface) EncodeJPEG(quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, s.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("render: encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (s *MatSurface) Close() error {
	return s.mat.Close()
}

// blend draws opaque colours directly and translucent ones through an
// overlay mixed back with AddWeighted.
func (s *MatSurface) blend(c color.NRGBA, draw func(dst *gocv.Mat, col color.RGBA)) {
	col := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	if c.A == 255 {
		draw(&s.mat, col)
		return
	}
	overlay := s.mat.Clone()
	defer overlay.Close()
	draw(&overlay, col)
	alpha := float64(c.A) / 255
	gocv.AddWeighted(overlay, alpha, s.mat, 1-alpha, 0, &s.mat)
}

func pt(p gesture.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
