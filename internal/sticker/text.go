package sticker

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Text sticker canvas and typography.
const (
	TextWidth    = 500
	TextHeight   = 300
	TextFontSize = 60
	TextStroke   = 10
	minFontSize  = 12
)

// ErrEmptyText is returned when a text sticker has nothing to draw.
var ErrEmptyText = errors.New("sticker: empty text")

var boldFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// RenderText draws text as an uppercase white caption with a black outline
// on a transparent canvas. The result is mirrored horizontally because the
// compositor mirrors stickers again when drawing them.
func RenderText(text string) (*image.NRGBA, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyText
	}

	f, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("sticker: parse font: %w", err)
	}

	face, advance, err := fitFace(f, text)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	img := image.NewNRGBA(image.Rect(0, 0, TextWidth, TextHeight))
	m := face.Metrics()
	x := (fixed.I(TextWidth) - advance) / 2
	y := (fixed.I(TextHeight) + m.Ascent - m.Descent) / 2

	outline := image.NewUniform(color.NRGBA{A: 255})
	r := TextStroke / 2
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			d := font.Drawer{Dst: img, Src: outline, Face: face, Dot: fixed.Point26_6{X: x + fixed.I(dx), Y: y + fixed.I(dy)}}
			d.DrawString(text)
		}
	}

	fill := font.Drawer{Dst: img, Src: image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}), Face: face, Dot: fixed.Point26_6{X: x, Y: y}}
	fill.DrawString(text)

	mirrorInPlace(img)
	return img, nil
}

// fitFace shrinks the font until text fits inside the canvas margins.
func fitFace(f *opentype.Font, text string) (font.Face, fixed.Int26_6, error) {
	maxWidth := fixed.I(TextWidth - 2*(TextStroke+10))
	for size := float64(TextFontSize); ; size -= 4 {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, 0, fmt.Errorf("sticker: font face: %w", err)
		}
		advance := font.MeasureString(face, text)
		if advance <= maxWidth || size-4 < minFontSize {
			return face, advance, nil
		}
		face.Close()
	}
}

func mirrorInPlace(img *image.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for l, r := b.Min.X, b.Max.X-1; l < r; l, r = l+1, r-1 {
			li, ri := img.PixOffset(l, y), img.PixOffset(r, y)
			for c := 0; c < 4; c++ {
				img.Pix[li+c], img.Pix[ri+c] = img.Pix[ri+c], img.Pix[li+c]
			}
		}
	}
}
