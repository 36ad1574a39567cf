package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/arsticker/internal/gesture"
)

// Backend names a Surface implementation.
type Backend string

const (
	BackendRaster Backend = "raster"
	BackendOpenCV Backend = "opencv"
)

// DefaultJPEGQuality is used when encoding the composited output.
const DefaultJPEGQuality = 80

// Surface is a drawing target the size of the video.
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	Clear()
	// DrawVideo draws frame mirrored horizontally, filling the surface.
	// A nil or empty frame clears it instead.
	DrawVideo(frame *gocv.Mat) error
	// DrawImage composites img through m, which maps image pixels to
	// surface pixels.
	DrawImage(img *image.NRGBA, m Matrix)
	Line(a, b gesture.Point, c color.NRGBA, width float64)
	FillCircle(center gesture.Point, radius float64, c color.NRGBA)
	StrokeCircle(center gesture.Point, radius float64, c color.NRGBA, width float64)
	EncodeJPEG(quality int) ([]byte, error)
	Close() error
}

// NewSurface creates a surface for backend.
func NewSurface(backend Backend, width, height int) (Surface, error) {
	switch backend {
	case BackendRaster, "":
		return NewRasterSurface(width, height), nil
	case BackendOpenCV:
		return NewMatSurface(width, height), nil
	}
	return nil, fmt.Errorf("render: unknown backend %q", backend)
}
