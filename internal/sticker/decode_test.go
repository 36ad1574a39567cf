package sticker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

func TestDecodeFormats(t *testing.T) {
	src := solid(24, 12, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	webp := func(w io.Writer, m image.Image) error {
		raw, err := EncodeWebP(m)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	}

	tests := []struct {
		format string
		mime   string
		ext    string
		encode func(io.Writer, image.Image) error
	}{
		{"png", "image/png", ".png", png.Encode},
		{"jpeg", "image/jpeg", ".jpg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{"gif", "image/gif", ".gif", func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) }},
		{"webp", "image/webp", ".webp", webp},
		{"bmp", "image/bmp", ".bmp", bmp.Encode},
		{"tga", "image/x-tga", ".tga", tga.Encode},
	}

	loader := NewSourceLoader()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, src); err != nil {
				t.Fatalf("encode: %v", err)
			}

			_, name, err := DecodeFormat(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeFormat: %v", err)
			}
			if name != tt.format {
				t.Errorf("format = %q, want %q", name, tt.format)
			}

			a, err := loader.Load(ctx, DataURI(tt.mime, buf.Bytes()))
			if err != nil {
				t.Fatalf("Load data URI: %v", err)
			}
			if a.Width() != 24 || a.Height() != 12 {
				t.Errorf("size = %dx%d, want 24x12", a.Width(), a.Height())
			}

			path := filepath.Join(t.TempDir(), "sticker"+tt.ext)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := loader.Load(ctx, path); err != nil {
				t.Errorf("Load file: %v", err)
			}
		})
	}
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG.
func withPNGSize(t *testing.T, raw []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc after 13 data bytes
	if string(out[12:16]) != "IHDR" {
		t.Fatal("IHDR is not the first chunk")
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodePixelBudget(t *testing.T) {
	raw := encodePNG(t, solid(4, 2, color.NRGBA{A: 255}))

	t.Run("header over budget is rejected", func(t *testing.T) {
		huge := withPNGSize(t, raw, 60000, 60000)
		if _, err := Decode(huge); !errors.Is(err, ErrTooManyPixels) {
			t.Fatalf("expected ErrTooManyPixels, got %v", err)
		}

		_, err := NewSourceLoader().Load(context.Background(), DataURI("image/png", huge))
		if !errors.Is(err, ErrTooManyPixels) {
			t.Errorf("Load: expected ErrTooManyPixels, got %v", err)
		}
	})

	t.Run("one row past the limit", func(t *testing.T) {
		if _, err := Decode(withPNGSize(t, raw, 4096, 4097)); !errors.Is(err, ErrTooManyPixels) {
			t.Errorf("expected ErrTooManyPixels, got %v", err)
		}
	})

	t.Run("unrecognised bytes", func(t *testing.T) {
		if _, err := Decode([]byte("hello")); err == nil {
			t.Error("expected error")
		}
	})
}
