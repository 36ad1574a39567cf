// Package sticker loads, generates and holds the sticker images overlaid on
// the video.
package sticker

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("sticker: image has no pixels")

// Asset is a decoded sticker bitmap.
type Asset struct {
	Source string
	Image  *image.NRGBA
	// Aspect is height divided by width.
	Aspect float64
}

// NewAsset normalizes img to NRGBA anchored at the origin and records its
// aspect ratio.
func NewAsset(source string, img image.Image) (*Asset, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	n := toNRGBA(img)
	return &Asset{
		Source: source,
		Image:  n,
		Aspect: float64(b.Dy()) / float64(b.Dx()),
	}, nil
}

// Width returns the bitmap width in pixels.
func (a *Asset) Width() int { return a.Image.Bounds().Dx() }

// Height returns the bitmap height in pixels.
func (a *Asset) Height() int { return a.Image.Bounds().Dy() }

// toNRGBA converts any image to an NRGBA whose bounds start at (0, 0).
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
