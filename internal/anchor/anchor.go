// Package anchor derives sticker transforms from body and face landmarks.
//
// Every resolver works in mirrored pixel space: the displayed image is the
// camera image flipped horizontally, so a landmark at normalized x is drawn
// at (1-x) * width. Resolvers are pure; the same landmarks always produce
// the same transform.
package anchor

import (
	"math"

	"github.com/ayusman/arsticker/internal/detector"
)

// ReferenceWidth is the on-screen sticker width, as a fraction of the canvas
// width, that corresponds to a scale of 1.
const ReferenceWidth = 0.3

const (
	// ShoulderWidthFactor converts shoulder span to sticker width.
	ShoulderWidthFactor = 2.5
	// EarWidthFactor converts ear span to sticker width.
	EarWidthFactor = 3.0
	// EyeWidthFactor converts eye span to sticker width when ears are missing.
	EyeWidthFactor = 3.5
)

// Transform places a sticker on the canvas. X and Y are fractions of the
// canvas size, Scale is in units of ReferenceWidth and Rotation is in
// radians.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// Valid reports whether every component is finite and the scale is
// positive.
func (t Transform) Valid() bool {
	for _, v := range []float64{t.X, t.Y, t.Scale, t.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return t.Scale > 0
}

// Chest resolves the chest anchor from pose landmarks: the shoulder
// midpoint, the shoulder line angle and a width proportional to the
// shoulder span.
func Chest(pose detector.Landmarks, width, height int) (Transform, bool) {
	if width <= 0 || height <= 0 {
		return Transform{}, false
	}
	left, ok := pose.At(detector.PoseLeftShoulder)
	if !ok {
		return Transform{}, false
	}
	right, ok := pose.At(detector.PoseRightShoulder)
	if !ok {
		return Transform{}, false
	}

	w, h := float64(width), float64(height)
	lx, ly := mirror(left, w, h)
	rx, ry := mirror(right, w, h)

	span := math.Hypot(rx-lx, ry-ly)
	t := Transform{
		X:        (lx + rx) / 2 / w,
		Y:        (ly + ry) / 2 / h,
		Scale:    span * ShoulderWidthFactor / w / ReferenceWidth,
		Rotation: NormalizeAngle(math.Atan2(ry-ly, rx-lx)),
	}
	return t, t.Valid()
}

// Face resolves the face anchor from face mesh landmarks: the nose bridge
// position, the eye line angle and a width from the ear span, falling back
// to the eye span.
func Face(face detector.Landmarks, width, height int) (Transform, bool) {
	if width <= 0 || height <= 0 {
		return Transform{}, false
	}
	nose, ok := face.At(detector.FaceNoseBridge)
	if !ok {
		return Transform{}, false
	}
	rightEye, ok := face.At(detector.FaceRightEye)
	if !ok {
		return Transform{}, false
	}
	leftEye, ok := face.At(detector.FaceLeftEye)
	if !ok {
		return Transform{}, false
	}

	w, h := float64(width), float64(height)
	nx, ny := mirror(nose, w, h)
	rex, rey := mirror(rightEye, w, h)
	lex, ley := mirror(leftEye, w, h)

	// The eye line points right-to-left after mirroring, so the raw angle
	// is upside down.
	angle := NormalizeAngle(math.Atan2(ley-rey, lex-rex) + math.Pi)

	span := math.Abs(lex-rex) * EyeWidthFactor
	rightEar, rok := face.At(detector.FaceRightEar)
	leftEar, lok := face.At(detector.FaceLeftEar)
	if rok && lok {
		rx, _ := mirror(rightEar, w, h)
		lx, _ := mirror(leftEar, w, h)
		span = math.Abs(lx-rx) * EarWidthFactor
	}

	t := Transform{
		X:        nx / w,
		Y:        ny / h,
		Scale:    span / w / ReferenceWidth,
		Rotation: angle,
	}
	return t, t.Valid()
}

// NormalizeAngle wraps a into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Remainder(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func mirror(l detector.Landmark, w, h float64) (float64, float64) {
	return (1 - l.X) * w, l.Y * h
}
