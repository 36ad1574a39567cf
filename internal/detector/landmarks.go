// Package detector provides landmark detection interfaces and types for the
// body, hand and face models that drive sticker placement.
package detector

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist            = 0
	ThumbCMC         = 1
	ThumbMCP         = 2
	ThumbIP          = 3
	ThumbTip         = 4
	IndexMCP         = 5
	IndexPIP         = 6
	IndexDIP         = 7
	IndexTip         = 8
	MiddleMCP        = 9
	MiddlePIP        = 10
	MiddleDIP        = 11
	MiddleTip        = 12
	RingMCP          = 13
	RingPIP          = 14
	RingDIP          = 15
	RingTip          = 16
	PinkyMCP         = 17
	PinkyPIP         = 18
	PinkyDIP         = 19
	PinkyTip         = 20
	NumHandLandmarks = 21
)

// Pose landmark indices used by the chest anchor and the skeleton overlay.
const (
	PoseNose          = 0
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	PoseLeftElbow     = 13
	PoseRightElbow    = 14
	PoseLeftWrist     = 15
	PoseRightWrist    = 16
	NumPoseLandmarks  = 33
)

// Face mesh indices used by the face anchor.
const (
	FaceNoseBridge   = 168
	FaceRightEye     = 33
	FaceLeftEye      = 263
	FaceRightEar     = 234
	FaceLeftEar      = 454
	NumFaceLandmarks = 468
)

// Landmark is a single detected point. X and Y are normalized to [0,1]
// relative to the frame width and height; Z is model-relative depth.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Finite reports whether both image-plane coordinates are usable numbers.
func (l Landmark) Finite() bool {
	return !math.IsNaN(l.X) && !math.IsInf(l.X, 0) && !math.IsNaN(l.Y) && !math.IsInf(l.Y, 0)
}

// Landmarks is one detected landmark sequence (a pose, a hand or a face).
// A nil sequence means the part was not detected.
type Landmarks []Landmark

// At returns the landmark at index i if it is present and finite.
func (ls Landmarks) At(i int) (Landmark, bool) {
	if i < 0 || i >= len(ls) {
		return Landmark{}, false
	}
	if !ls[i].Finite() {
		return Landmark{}, false
	}
	return ls[i], true
}

// LandmarkFrame is the result of one detection call.
type LandmarkFrame struct {
	Timestamp time.Duration `json:"timestamp"`
	Pose      Landmarks     `json:"pose,omitempty"`
	LeftHand  Landmarks     `json:"left_hand,omitempty"`
	RightHand Landmarks     `json:"right_hand,omitempty"`
	Face      Landmarks     `json:"face,omitempty"`
}

// Empty reports whether nothing at all was detected.
func (f *LandmarkFrame) Empty() bool {
	return f == nil || (len(f.Pose) == 0 && len(f.LeftHand) == 0 && len(f.RightHand) == 0 && len(f.Face) == 0)
}

// Distance returns the Euclidean distance between two landmarks in the
// normalized image plane.
func Distance(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// UpperBodyConnections are the pose segments drawn by the skeleton overlay.
var UpperBodyConnections = [][2]int{
	{PoseLeftShoulder, PoseRightShoulder},
	{PoseLeftShoulder, PoseLeftElbow},
	{PoseLeftElbow, PoseLeftWrist},
	{PoseRightShoulder, PoseRightElbow},
	{PoseRightElbow, PoseRightWrist},
}

// HandConnections are the hand segments drawn by the skeleton overlay.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}
