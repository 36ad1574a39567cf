// Package placement owns the authoritative sticker transform and the
// grab, drag, release and snap transitions that change it.
package placement

import (
	"math"

	"github.com/ayusman/arsticker/internal/anchor"
	"github.com/ayusman/arsticker/internal/gesture"
)

// Mode selects which source writes the sticker transform.
type Mode string

const (
	ModeChest  Mode = "chest"
	ModeFace   Mode = "face"
	ModeManual Mode = "manual"
)

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeChest, ModeFace, ModeManual:
		return true
	}
	return false
}

// State is the sticker transform. X and Y are canvas fractions, Scale is in
// units of anchor.ReferenceWidth and Rotation is in radians.
type State struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Mode     Mode    `json:"mode"`
}

// Initial is the state of a freshly loaded sticker.
func Initial() State {
	return State{X: 0.5, Y: 0.5, Scale: 1, Rotation: 0, Mode: ModeManual}
}

// Pixel returns the sticker centre on a width x height canvas.
func (s State) Pixel(width, height int) gesture.Point {
	return gesture.Point{X: s.X * float64(width), Y: s.Y * float64(height)}
}

func (s State) withTransform(t anchor.Transform) State {
	s.X, s.Y, s.Scale, s.Rotation = t.X, t.Y, t.Scale, t.Rotation
	return s
}

// GestureState carries the gesture flags that persist between frames.
type GestureState struct {
	Pinching   bool          `json:"pinching"`
	Cursor     gesture.Point `json:"cursor"`
	HasCursor  bool          `json:"has_cursor"`
	Dragging   bool          `json:"dragging"`
	DragOffset gesture.Point `json:"drag_offset"`
}

// Adjustment is applied on top of the baseline transform at draw time only.
type Adjustment struct {
	ScaleMultiplier float64 `json:"scale_multiplier"`
	RotationDegrees float64 `json:"rotation_degrees"`
}

// NoAdjustment leaves the baseline transform untouched.
func NoAdjustment() Adjustment {
	return Adjustment{ScaleMultiplier: 1}
}

// Multiplier returns the scale multiplier, treating unset or invalid values
// as 1.
func (a Adjustment) Multiplier() float64 {
	if a.ScaleMultiplier <= 0 || math.IsNaN(a.ScaleMultiplier) || math.IsInf(a.ScaleMultiplier, 0) {
		return 1
	}
	return a.ScaleMultiplier
}

// Radians returns the rotation offset in radians.
func (a Adjustment) Radians() float64 {
	if math.IsNaN(a.RotationDegrees) || math.IsInf(a.RotationDegrees, 0) {
		return 0
	}
	return a.RotationDegrees * math.Pi / 180
}

// RenderedWidth returns the on-screen sticker width in pixels for a canvas
// canvasWidth pixels wide.
func RenderedWidth(s State, adj Adjustment, canvasWidth int) float64 {
	return s.Scale * adj.Multiplier() * anchor.ReferenceWidth * float64(canvasWidth)
}
