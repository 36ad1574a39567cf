package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/arsticker/internal/app"
	"github.com/ayusman/arsticker/internal/placement"
)

// stubEngine serves a fixed snapshot and whatever frame was last published.
type stubEngine struct {
	mu       sync.Mutex
	snapshot app.Snapshot
	jpeg     []byte
	seq      uint64
}

func (e *stubEngine) Snapshot() app.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

func (e *stubEngine) Controls() app.Controls {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.Controls
}

func (e *stubEngine) SetSticker(source string) {}
func (e *stubEngine) ClearSticker()            {}

func (e *stubEngine) SetSnap(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot.Controls.Snap = enabled
}

func (e *stubEngine) SetAdjustment(adj placement.Adjustment) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot.Controls.ScaleMultiplier = adj.ScaleMultiplier
	e.snapshot.Controls.RotationDegrees = adj.RotationDegrees
	return nil
}

func (e *stubEngine) LatestJPEG() ([]byte, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jpeg, e.seq
}

func (e *stubEngine) publish(b []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jpeg = b
	e.seq++
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["ready"]; exists {
			t.Error("no engine, so no 'ready' field expected")
		}
	})

	t.Run("reports engine readiness", func(t *testing.T) {
		e := &stubEngine{snapshot: app.Snapshot{Ready: true}}
		s := New(Config{Engine: e})
		defer s.Shutdown(context.Background())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["ready"] != true {
			t.Errorf("expected ready true, got %v", response["ready"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_State(t *testing.T) {
	e := &stubEngine{snapshot: app.Snapshot{
		Placement:  placement.State{X: 0.25, Y: 0.75, Scale: 0.3, Mode: placement.ModeManual},
		HasSticker: true,
		Width:      640,
		Height:     480,
	}}
	s := New(Config{Engine: e})
	defer s.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var got app.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Placement.X != 0.25 || got.Placement.Y != 0.75 || !got.HasSticker || got.Width != 640 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_CatalogNeedsStore(t *testing.T) {
	s := New(Config{Engine: &stubEngine{}})
	defer s.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stickers", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestStreamHandler(t *testing.T) {
	e := &stubEngine{}
	e.publish([]byte("\xff\xd8first\xff\xd9"))

	ts := httptest.NewServer(NewStreamHandler(e, 50))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("unexpected Content-Type %s", ct)
	}

	r := bufio.NewReader(resp.Body)
	readPart := func() string {
		t.Helper()
		var lines []string
		for len(lines) < 4 {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if lines[0] != "--frame" || lines[1] != "Content-Type: image/jpeg" {
			t.Fatalf("unexpected part header %q", lines[:2])
		}
		body, _ := r.ReadString('\n')
		return strings.TrimRight(body, "\r\n")
	}

	if got := readPart(); got != "\xff\xd8first\xff\xd9" {
		t.Errorf("first part = %q", got)
	}

	e.publish([]byte("\xff\xd8second\xff\xd9"))
	if got := readPart(); got != "\xff\xd8second\xff\xd9" {
		t.Errorf("second part = %q, frames must not repeat", got)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStreamHandler(&stubEngine{}, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestPlacementHandler_Broadcast(t *testing.T) {
	e := &stubEngine{snapshot: app.Snapshot{
		Placement: placement.State{X: 0.4, Y: 0.6, Scale: 0.3, Mode: placement.ModeChest},
		Writer:    placement.WriterChest,
	}}
	h := NewPlacementHandler(e, 50, nil)
	defer h.Close()

	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error = %v", err)
	}

	var msg struct {
		Type  string       `json:"type"`
		State app.Snapshot `json:"state"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if msg.Type != "placement" {
		t.Errorf("expected type placement, got %s", msg.Type)
	}
	if msg.State.Placement.Mode != placement.ModeChest || msg.State.Placement.X != 0.4 {
		t.Errorf("unexpected state %+v", msg.State.Placement)
	}
}

func TestPlacementHandler_CloseDisconnects(t *testing.T) {
	h := NewPlacementHandler(&stubEngine{}, 50, nil)
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for h.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.Close()
	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
		if s.config.StreamFPS != DefaultStreamFPS {
			t.Errorf("expected default stream rate %d, got %v", DefaultStreamFPS, s.config.StreamFPS)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})

	t.Run("shutdown before listen", func(t *testing.T) {
		s := New(Config{Engine: &stubEngine{}})
		if err := s.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
}
