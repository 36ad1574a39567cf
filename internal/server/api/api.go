// Package api provides the HTTP API handlers for controlling the sticker
// engine and managing the sticker catalog.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/app"
	"github.com/ayusman/arsticker/internal/placement"
	"github.com/ayusman/arsticker/internal/store"
)

// maxBodyBytes bounds JSON request bodies. Image stickers sent as data URIs
// are the largest payloads.
const maxBodyBytes = 40 << 20

// Engine is the part of the frame pump the API drives.
type Engine interface {
	Snapshot() app.Snapshot
	Controls() app.Controls
	SetSticker(source string)
	ClearSticker()
	SetSnap(enabled bool)
	SetAdjustment(adj placement.Adjustment) error
}

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		jsoniter.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode reads a JSON body into dst and validates it. The returned message is
// fit for the client.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "Request body too large", false
	}
	if err := jsoniter.Unmarshal(body, dst); err != nil {
		return "Invalid JSON", false
	}
	if err := validate.Struct(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

func silentLogger(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// preferences reads the stored preferences with the engine's current
// controls as defaults.
func preferences(s *store.Store, e Engine) (store.Preferences, error) {
	c := e.Controls()
	return s.Settings().LoadPreferences(store.Preferences{
		Snap:            c.Snap,
		ScaleMultiplier: c.ScaleMultiplier,
		RotationDegrees: c.RotationDegrees,
	})
}

// savePreferences applies update to the stored preferences. Failures are
// logged, not reported; the engine has already changed.
func savePreferences(s *store.Store, e Engine, log logrus.FieldLogger, update func(*store.Preferences)) {
	if s == nil {
		return
	}
	p, err := preferences(s, e)
	if err != nil {
		log.WithError(err).Warn("failed to read preferences")
	}
	update(&p)
	if err := s.Settings().SavePreferences(p); err != nil {
		log.WithError(err).Warn("failed to save preferences")
	}
}
