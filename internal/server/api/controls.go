package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/store"
)

// ControlsHandler serves GET and PUT /api/controls.
type ControlsHandler struct {
	engine Engine
	store  *store.Store
	log    logrus.FieldLogger
}

// NewControlsHandler creates a ControlsHandler. The store is optional; without
// one changes are not remembered across restarts.
func NewControlsHandler(e Engine, s *store.Store, log logrus.FieldLogger) *ControlsHandler {
	return &ControlsHandler{engine: e, store: s, log: silentLogger(log)}
}

type controlsRequest struct {
	Snap            *bool    `json:"snap"`
	ScaleMultiplier *float64 `json:"scale_multiplier" validate:"omitempty,gt=0,lte=10"`
	RotationDegrees *float64 `json:"rotation_degrees" validate:"omitempty,gte=-360,lte=360"`
}

func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.engine.Controls())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies the fields present in the request and leaves the rest.
func (h *ControlsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req controlsRequest
	if msg, ok := decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c := h.engine.Controls()
	if req.ScaleMultiplier != nil {
		c.ScaleMultiplier = *req.ScaleMultiplier
	}
	if req.RotationDegrees != nil {
		c.RotationDegrees = *req.RotationDegrees
	}
	if err := h.engine.SetAdjustment(c.Adjustment()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Snap != nil {
		c.Snap = *req.Snap
		h.engine.SetSnap(c.Snap)
	}

	h.log.WithFields(logrus.Fields{
		"snap":     c.Snap,
		"scale":    c.ScaleMultiplier,
		"rotation": c.RotationDegrees,
	}).Info("controls updated")

	savePreferences(h.store, h.engine, h.log, func(p *store.Preferences) {
		p.Snap = c.Snap
		p.ScaleMultiplier = c.ScaleMultiplier
		p.RotationDegrees = c.RotationDegrees
	})

	writeJSON(w, http.StatusOK, c)
}
