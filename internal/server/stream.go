package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamFPS is the stream and broadcast rate when none is configured.
const DefaultStreamFPS = 15

// StreamHandler serves the composited frames as MJPEG.
type StreamHandler struct {
	engine   Engine
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler that checks for a new frame fps
// times a second.
func NewStreamHandler(e Engine, fps float64) *StreamHandler {
	if fps <= 0 {
		fps = DefaultStreamFPS
	}
	return &StreamHandler{engine: e, interval: time.Duration(float64(time.Second) / fps)}
}

// ServeHTTP streams frames to the client until it goes away. A frame is only
// written when the pump has published a new one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		if buf, seq := h.engine.LatestJPEG(); seq != sent && len(buf) > 0 {
			if err := writePart(w, buf); err != nil {
				return
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, buf []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(buf)); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
