// Package server provides the HTTP server for the sticker engine: the JSON
// API, the composited MJPEG stream and the placement WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/server/api"
	"github.com/ayusman/arsticker/internal/sticker"
	"github.com/ayusman/arsticker/internal/store"
)

// Engine is the frame pump as the server sees it.
type Engine interface {
	api.Engine
	LatestJPEG() ([]byte, uint64)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Engine    Engine
	Loader    sticker.Loader
	// StreamFPS caps the MJPEG stream and the placement broadcast.
	StreamFPS float64
	Log       logrus.FieldLogger
}

// Server represents the HTTP server for the sticker engine.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	log       logrus.FieldLogger
	placement *PlacementHandler

	mu      sync.Mutex
	httpSrv *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if config.StreamFPS <= 0 {
		config.StreamFPS = DefaultStreamFPS
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if e := s.config.Engine; e != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.Handle("/api/controls", api.NewControlsHandler(e, s.config.Store, s.log.WithField("handler", "controls")))
		s.mux.Handle("/api/sticker", api.NewActiveHandler(e, s.config.Store, s.log.WithField("handler", "sticker")))
		s.mux.Handle("/api/stream", NewStreamHandler(e, s.config.StreamFPS))

		s.placement = NewPlacementHandler(e, s.config.StreamFPS, s.log.WithField("handler", "placement"))
		s.mux.Handle("/api/placement", s.placement)

		// The catalog needs somewhere to keep stickers.
		if s.config.Store != nil {
			stickers := api.NewStickerHandler(s.config.Store, e, s.config.Loader, s.log.WithField("handler", "stickers"))
			s.mux.Handle("/api/stickers", stickers)
			s.mux.Handle("/api/stickers/", stickers)
		}
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Engine != nil {
		response["ready"] = s.config.Engine.Snapshot().Ready
	}

	writeJSON(w, http.StatusOK, response)
}

// handleState handles GET /api/state and returns the latest snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Engine.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns nil
// after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the placement broadcast and gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.placement != nil {
		s.placement.Close()
	}
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
