// Package gesture turns hand landmarks into the pinch and cursor signal that
// drives grabbing and dragging the sticker.
package gesture

import (
	"math"

	"github.com/ayusman/arsticker/internal/detector"
)

// DefaultThreshold is the normalized thumb-to-index distance below which a
// hand counts as pinching.
const DefaultThreshold = 0.08

// Hand identifies which hand produced a reading.
type Hand string

const (
	HandNone  Hand = ""
	HandLeft  Hand = "left"
	HandRight Hand = "right"
)

// Point is a position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Reading is the gesture signal for one frame.
type Reading struct {
	Pinching  bool    `json:"pinching"`
	Cursor    Point   `json:"cursor"`
	HasCursor bool    `json:"has_cursor"`
	Hand      Hand    `json:"hand,omitempty"`
	Distance  float64 `json:"distance"`
}

// Detector classifies pinches. It holds no per-frame state; edge detection
// belongs to the placement state machine.
type Detector struct {
	Threshold float64
}

// NewDetector returns a Detector using threshold, or DefaultThreshold when
// threshold is not positive.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{Threshold: threshold}
}

// Detect evaluates both hands of frame on a width x height canvas. A
// pinching hand wins over a hovering one and the right hand wins ties.
func (d *Detector) Detect(frame *detector.LandmarkFrame, width, height int) Reading {
	if frame == nil {
		return Reading{}
	}

	right, rightOK := d.evaluate(frame.RightHand, width, height)
	left, leftOK := d.evaluate(frame.LeftHand, width, height)
	right.Hand, left.Hand = HandRight, HandLeft

	switch {
	case rightOK && right.Pinching:
		return right
	case leftOK && left.Pinching:
		return left
	case rightOK:
		return right
	case leftOK:
		return left
	}
	return Reading{}
}

func (d *Detector) evaluate(hand detector.Landmarks, width, height int) (Reading, bool) {
	thumb, ok := hand.At(detector.ThumbTip)
	if !ok {
		return Reading{}, false
	}
	index, ok := hand.At(detector.IndexTip)
	if !ok {
		return Reading{}, false
	}

	dist := detector.Distance(thumb, index)
	midX := (thumb.X + index.X) / 2
	midY := (thumb.Y + index.Y) / 2

	return Reading{
		Pinching:  dist < d.Threshold,
		Cursor:    Point{X: (1 - midX) * float64(width), Y: midY * float64(height)},
		HasCursor: true,
		Distance:  dist,
	}, true
}
