package sticker

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultMaxBytes caps the encoded size of a sticker image.
const DefaultMaxBytes = 32 << 20

// Loader resolves a sticker source into a decoded asset.
type Loader interface {
	Load(ctx context.Context, source string) (*Asset, error)
}

// SourceLoader loads stickers from file paths, file:// and http(s):// URLs
// and data: URIs. PNG, JPEG, GIF, WebP, BMP and TGA are understood.
type SourceLoader struct {
	Client   *http.Client
	MaxBytes int64
}

// NewSourceLoader returns a SourceLoader with a bounded HTTP client.
func NewSourceLoader() *SourceLoader {
	return &SourceLoader{
		Client:   &http.Client{Timeout: 30 * time.Second},
		MaxBytes: DefaultMaxBytes,
	}
}

// Load fetches and decodes source.
func (l *SourceLoader) Load(ctx context.Context, source string) (*Asset, error) {
	raw, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	img, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("sticker: decode %s: %w", Describe(source), err)
	}
	return NewAsset(source, img)
}

func (l *SourceLoader) fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, fmt.Errorf("sticker: empty source")
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.fetchHTTP(ctx, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("sticker: parse %s: %w", source, err)
		}
		return l.readFile(u.Path)
	default:
		return l.readFile(source)
	}
}

func (l *SourceLoader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sticker: open %s: %w", path, err)
	}
	defer f.Close()
	return l.readLimited(f, path)
}

func (l *SourceLoader) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("sticker: build request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sticker: fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sticker: fetch %s: status %d", source, resp.StatusCode)
	}
	return l.readLimited(resp.Body, source)
}

func (l *SourceLoader) readLimited(r io.Reader, name string) ([]byte, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("sticker: read %s: %w", Describe(name), err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("sticker: %s exceeds %d bytes", Describe(name), limit)
	}
	return raw, nil
}

// decodeDataURI returns the payload of an RFC 2397 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("sticker: malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("sticker: data URI: %w", err)
		}
		return raw, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("sticker: data URI: %w", err)
	}
	return []byte(s), nil
}

// DataURI encodes raw bytes of the given media type as a base64 data URI.
func DataURI(mediaType string, raw []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// Describe returns source in a form fit for logs and status output. Data URIs
// are summarised.
func Describe(source string) string {
	if strings.HasPrefix(source, "data:") {
		return "data URI"
	}
	return source
}
