package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/sticker"
	"github.com/ayusman/arsticker/internal/store"
)

// ActiveHandler serves PUT and DELETE /api/sticker, which set or clear the
// sticker on screen directly from a source.
type ActiveHandler struct {
	engine Engine
	store  *store.Store
	log    logrus.FieldLogger
}

// NewActiveHandler creates an ActiveHandler. The store is optional.
func NewActiveHandler(e Engine, s *store.Store, log logrus.FieldLogger) *ActiveHandler {
	return &ActiveHandler{engine: e, store: s, log: silentLogger(log)}
}

type setStickerRequest struct {
	Source string `json:"source" validate:"required"`
}

type activeResponse struct {
	Source  string `json:"source,omitempty"`
	Loading bool   `json:"loading"`
}

func (h *ActiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s := h.engine.Snapshot()
		writeJSON(w, http.StatusOK, activeResponse{Source: s.Sticker, Loading: s.StickerLoading})
	case http.MethodPut:
		var req setStickerRequest
		if msg, ok := decode(w, r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		h.engine.SetSticker(req.Source)
		h.log.WithField("source", sticker.Describe(req.Source)).Info("sticker set")
		// not a catalog sticker, so nothing to restore on start
		savePreferences(h.store, h.engine, h.log, func(p *store.Preferences) { p.ActiveSticker = "" })
		writeJSON(w, http.StatusAccepted, activeResponse{Source: sticker.Describe(req.Source), Loading: true})
	case http.MethodDelete:
		h.engine.ClearSticker()
		h.log.Info("sticker cleared")
		savePreferences(h.store, h.engine, h.log, func(p *store.Preferences) { p.ActiveSticker = "" })
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
