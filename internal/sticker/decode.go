package sticker

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of a sticker. It is checked against the
// image header before any pixel buffer is allocated.
const MaxPixels = 4096 * 4096

// ErrTooManyPixels is returned for images whose header declares more than
// MaxPixels pixels.
var ErrTooManyPixels = errors.New("sticker: image dimensions too large")

type codec struct {
	name   string
	match  func(raw []byte) bool
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

func prefix(magic string) func([]byte) bool {
	return func(raw []byte) bool { return bytes.HasPrefix(raw, []byte(magic)) }
}

// codecs is tried in order. The tga package registers itself with
// image.RegisterFormat under an empty magic string, which would shadow every
// other format in image.Decode, so formats are sniffed here instead and TGA,
// having no signature, comes last.
var codecs = []codec{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode, png.DecodeConfig},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode, jpeg.DecodeConfig},
	{"gif", func(raw []byte) bool {
		return bytes.HasPrefix(raw, []byte("GIF87a")) || bytes.HasPrefix(raw, []byte("GIF89a"))
	}, gif.Decode, gif.DecodeConfig},
	{"webp", func(raw []byte) bool {
		return len(raw) >= 12 && string(raw[:4]) == "RIFF" && string(raw[8:12]) == "WEBP"
	}, webp.Decode, webp.DecodeConfig},
	{"bmp", prefix("BM"), bmp.Decode, bmp.DecodeConfig},
	{"tga", func([]byte) bool { return true }, tga.Decode, tga.DecodeConfig},
}

// Decode decodes a PNG, JPEG, GIF, WebP, BMP or TGA image. The header is
// read first and images over MaxPixels are rejected undecoded.
func Decode(raw []byte) (image.Image, error) {
	img, _, err := DecodeFormat(raw)
	return img, err
}

// DecodeFormat is Decode that also reports the detected format name.
func DecodeFormat(raw []byte) (image.Image, string, error) {
	for _, c := range codecs {
		if !c.match(raw) {
			continue
		}
		cfg, err := c.config(bytes.NewReader(raw))
		if err != nil {
			return nil, c.name, fmt.Errorf("%s header: %w", c.name, err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, c.name, ErrEmptyImage
		}
		if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
			return nil, c.name, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
		}
		img, err := c.decode(bytes.NewReader(raw))
		if err != nil {
			return nil, c.name, fmt.Errorf("%s: %w", c.name, err)
		}
		return img, c.name, nil
	}
	return nil, "", image.ErrFormat
}
