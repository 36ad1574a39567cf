package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/app"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// placementMessage is what each client receives per tick.
type placementMessage struct {
	Type  string       `json:"type"`
	State app.Snapshot `json:"state"`
}

// PlacementHandler broadcasts engine snapshots to WebSocket clients.
type PlacementHandler struct {
	engine   Engine
	interval time.Duration
	log      logrus.FieldLogger
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

// NewPlacementHandler creates a PlacementHandler and starts its broadcast
// loop. Close stops it.
func NewPlacementHandler(e Engine, fps float64, log logrus.FieldLogger) *PlacementHandler {
	if fps <= 0 {
		fps = DefaultStreamFPS
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	h := &PlacementHandler{
		engine:   e,
		interval: time.Duration(float64(time.Second) / fps),
		log:      log,
		clients:  make(map[*websocket.Conn]bool),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PlacementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Debug("placement client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *PlacementHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects every client.
func (h *PlacementHandler) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

// broadcast sends the latest snapshot to all connected clients.
func (h *PlacementHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		n := len(h.clients)
		h.mu.RUnlock()
		if n == 0 {
			continue
		}

		msg, err := jsoniter.Marshal(placementMessage{Type: "placement", State: h.engine.Snapshot()})
		if err != nil {
			h.log.WithError(err).Warn("failed to encode placement")
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
			}
		}
		h.mu.RUnlock()
	}
}
