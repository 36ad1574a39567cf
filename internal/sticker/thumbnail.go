package sticker

import (
	"bytes"
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// ThumbnailSize is the default bounding box of catalog thumbnails.
const ThumbnailSize = 128

// EncodeWebP encodes img as lossless WebP.
func EncodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("sticker: encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail fits img inside a size x size box, keeping its aspect ratio,
// and returns it as WebP.
func Thumbnail(img *image.NRGBA, size int) ([]byte, error) {
	return EncodeWebP(Downscale(img, size))
}

// Downscale shrinks img to fit inside a size x size box. Resampling is done
// on premultiplied pixels so transparent edges do not darken. Images that
// already fit are returned unchanged.
func Downscale(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size <= 0 || (w <= size && h <= size) {
		return img
	}

	tw, th := size, size
	if w >= h {
		th = max(1, h*size/w)
	} else {
		tw = max(1, w*size/h)
	}

	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	draw.Draw(out, out.Bounds(), dst, image.Point{}, draw.Src)
	return out
}
