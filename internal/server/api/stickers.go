package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/sticker"
	"github.com/ayusman/arsticker/internal/store"
)

// StickerHandler handles HTTP requests for the sticker catalog.
type StickerHandler struct {
	store  *store.Store
	engine Engine
	loader sticker.Loader
	log    logrus.FieldLogger
}

// NewStickerHandler creates a StickerHandler. Sources are loaded through
// loader when added so broken ones are rejected up front.
func NewStickerHandler(s *store.Store, e Engine, loader sticker.Loader, log logrus.FieldLogger) *StickerHandler {
	if loader == nil {
		loader = sticker.NewSourceLoader()
	}
	return &StickerHandler{store: s, engine: e, loader: loader, log: silentLogger(log)}
}

// ServeHTTP routes requests. Expected paths:
//
//	/api/stickers
//	/api/stickers/text
//	/api/stickers/{id}
//	/api/stickers/{id}/thumbnail
//	/api/stickers/{id}/activate
func (h *StickerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/stickers")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "text" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.createText(w, r)
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "thumbnail":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.thumbnail(w, r, id)
	case "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createStickerRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Source string `json:"source" validate:"required"`
}

type createTextRequest struct {
	Text string `json:"text" validate:"required,max=40"`
	Name string `json:"name" validate:"max=100"`
}

type stickerResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Thumbnail  string `json:"thumbnail"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at,omitempty"`
}

type listStickersResponse struct {
	Stickers []stickerResponse `json:"stickers"`
}

// toResponse converts a store.Sticker to a stickerResponse.
func toResponse(st *store.Sticker) stickerResponse {
	resp := stickerResponse{
		ID:        st.ID,
		Name:      st.Name,
		Kind:      string(st.Kind),
		Width:     st.Width,
		Height:    st.Height,
		Thumbnail: "/api/stickers/" + st.ID + "/thumbnail",
		CreatedAt: st.CreatedAt.Format(time.RFC3339),
	}
	if st.LastUsedAt != nil {
		resp.LastUsedAt = st.LastUsedAt.Format(time.RFC3339)
	}
	return resp
}

// list handles GET /api/stickers and returns the catalog.
func (h *StickerHandler) list(w http.ResponseWriter, r *http.Request) {
	stickers, err := h.store.Stickers().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stickers")
		return
	}

	response := listStickersResponse{
		Stickers: make([]stickerResponse, 0, len(stickers)),
	}
	for _, st := range stickers {
		response.Stickers = append(response.Stickers, toResponse(st))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/stickers/{id}.
func (h *StickerHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	st, err := h.store.Stickers().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get sticker")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(st))
}

// create handles POST /api/stickers. The source is loaded once to check it
// decodes and to build the thumbnail.
func (h *StickerHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createStickerRequest
	if msg, ok := decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	asset, err := h.loader.Load(r.Context(), req.Source)
	if err != nil {
		h.log.WithError(err).WithField("source", sticker.Describe(req.Source)).Info("rejected sticker source")
		writeError(w, http.StatusUnprocessableEntity, "Could not load sticker image")
		return
	}

	st := &store.Sticker{
		Name:   req.Name,
		Kind:   store.StickerKindImage,
		Source: req.Source,
	}
	h.save(w, st, asset)
}

// createText handles POST /api/stickers/text.
func (h *StickerHandler) createText(w http.ResponseWriter, r *http.Request) {
	var req createTextRequest
	if msg, ok := decode(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	img, err := sticker.RenderText(req.Text)
	if err != nil {
		if errors.Is(err, sticker.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, "Text is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to render text")
		return
	}
	raw, err := sticker.EncodeWebP(img)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode sticker")
		return
	}
	asset, err := sticker.NewAsset("", img)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render text")
		return
	}

	name := req.Name
	if name == "" {
		name = strings.ToUpper(strings.TrimSpace(req.Text))
	}
	st := &store.Sticker{
		Name:   name,
		Kind:   store.StickerKindText,
		Source: sticker.DataURI("image/webp", raw),
	}
	h.save(w, st, asset)
}

func (h *StickerHandler) save(w http.ResponseWriter, st *store.Sticker, asset *sticker.Asset) {
	st.Width, st.Height = asset.Width(), asset.Height()

	thumb, err := sticker.Thumbnail(asset.Image, sticker.ThumbnailSize)
	if err != nil {
		h.log.WithError(err).Warn("failed to build thumbnail")
	} else {
		st.Thumbnail = thumb
	}

	if err := h.store.Stickers().Create(st); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save sticker")
		return
	}

	h.log.WithFields(logrus.Fields{"id": st.ID, "name": st.Name, "kind": st.Kind}).Info("sticker added")
	writeJSON(w, http.StatusCreated, toResponse(st))
}

// thumbnail handles GET /api/stickers/{id}/thumbnail.
func (h *StickerHandler) thumbnail(w http.ResponseWriter, r *http.Request, id string) {
	thumb, err := h.store.Stickers().Thumbnail(id)
	if err != nil {
		h.storeError(w, err, "Failed to get thumbnail")
		return
	}
	if len(thumb) == 0 {
		writeError(w, http.StatusNotFound, "Sticker has no thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(thumb)
}

// activate handles POST /api/stickers/{id}/activate and puts the sticker on
// screen. Loading finishes asynchronously.
func (h *StickerHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	st, err := h.store.Stickers().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get sticker")
		return
	}

	h.engine.SetSticker(st.Source)
	if err := h.store.Stickers().Touch(id); err != nil {
		h.log.WithError(err).WithField("id", id).Warn("failed to record sticker use")
	} else {
		now := time.Now()
		st.LastUsedAt = &now
	}
	savePreferences(h.store, h.engine, h.log, func(p *store.Preferences) { p.ActiveSticker = id })

	h.log.WithFields(logrus.Fields{"id": id, "name": st.Name}).Info("sticker activated")
	writeJSON(w, http.StatusAccepted, toResponse(st))
}

// delete handles DELETE /api/stickers/{id}. Deleting the sticker on screen
// also clears it.
func (h *StickerHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Stickers().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete sticker")
		return
	}

	if p, err := preferences(h.store, h.engine); err == nil && p.ActiveSticker == id {
		h.engine.ClearSticker()
		savePreferences(h.store, h.engine, h.log, func(p *store.Preferences) { p.ActiveSticker = "" })
	}

	h.log.WithField("id", id).Info("sticker deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *StickerHandler) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sticker not found")
		return
	}
	h.log.WithError(err).Error(message)
	writeError(w, http.StatusInternalServerError, message)
}
