package render

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/arsticker/internal/detector"
	"github.com/ayusman/arsticker/internal/gesture"
	"github.com/ayusman/arsticker/internal/placement"
	"github.com/ayusman/arsticker/internal/sticker"
)

// Overlay styling.
var (
	BoneColor      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	JointColor     = color.NRGBA{R: 255, A: 255}
	PinchFill      = color.NRGBA{G: 255, B: 255, A: 204}
	PinchRing      = color.NRGBA{G: 255, B: 255, A: 255}
	HoverFill      = color.NRGBA{R: 255, G: 255, B: 255, A: 128}
	HoverRing      = color.NRGBA{R: 255, G: 255, B: 255, A: 204}
	DebugMarkColor = color.NRGBA{R: 255, A: 255}
)

const (
	BoneWidth         = 2
	JointRadius       = 3
	PinchCursorRadius = 15
	HoverCursorRadius = 10
	CursorRingWidth   = 2
	DebugMarkRadius   = 8
)

// upperBodyJoints are the pose points dotted by the skeleton overlay.
var upperBodyJoints = []int{
	detector.PoseLeftShoulder, detector.PoseRightShoulder,
	detector.PoseLeftElbow, detector.PoseRightElbow,
	detector.PoseLeftWrist, detector.PoseRightWrist,
}

// Scene is everything drawn for one frame.
type Scene struct {
	Frame      *gocv.Mat
	Landmarks  *detector.LandmarkFrame
	Sticker    *sticker.Asset
	State      placement.State
	Adjustment placement.Adjustment
	Cursor     gesture.Reading
}

// Options toggles optional layers.
type Options struct {
	Skeleton bool
	// DebugMarks dots the nose, shoulders and index fingertips while no
	// sticker is active.
	DebugMarks bool
}

// Compositor draws scenes onto a Surface in a fixed layer order: video,
// sticker, skeleton, cursor. The skeleton goes above the sticker so hands
// stay visible while dragging.
type Compositor struct {
	surface Surface
	opts    Options
}

// NewCompositor creates a compositor drawing onto surface.
func NewCompositor(surface Surface, opts Options) *Compositor {
	return &Compositor{surface: surface, opts: opts}
}

// Surface returns the drawing target.
func (c *Compositor) Surface() Surface { return c.surface }

// Compose draws sc.
func (c *Compositor) Compose(sc Scene) error {
	if err := c.surface.DrawVideo(sc.Frame); err != nil {
		return err
	}

	w, h := c.surface.Size()
	if sc.Sticker != nil {
		c.drawSticker(sc, w, h)
	}

	if sc.Landmarks != nil {
		if c.opts.Skeleton {
			c.drawSkeleton(sc.Landmarks, w, h)
		}
		if c.opts.DebugMarks && sc.Sticker == nil {
			c.drawDebugMarks(sc.Landmarks, w, h)
		}
	}

	if sc.Cursor.HasCursor {
		c.drawCursor(sc.Cursor)
	}
	return nil
}

// drawSticker skips singular transforms and stickers lying wholly off the
// canvas.
func (c *Compositor) drawSticker(sc Scene, w, h int) {
	m := StickerMatrix(sc.State, sc.Adjustment, sc.Sticker, w, h)
	if _, ok := m.Invert(); !ok {
		return
	}
	if !StickerBounds(m, sc.Sticker).Overlaps(image.Rect(0, 0, w, h)) {
		return
	}
	c.surface.DrawImage(sc.Sticker.Image, m)
}

// StickerBounds returns the surface-space bounding box of a sticker drawn
// with m.
func StickerBounds(m Matrix, a *sticker.Asset) image.Rectangle {
	iw, ih := float64(a.Width()), float64(a.Height())
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{{0, 0}, {iw, 0}, {0, ih}, {iw, ih}} {
		x, y := m.TransformPoint(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// StickerSize returns the on-screen sticker width and height. The height
// always follows the asset's aspect ratio.
func StickerSize(s placement.State, adj placement.Adjustment, aspect float64, canvasWidth int) (float64, float64) {
	width := placement.RenderedWidth(s, adj, canvasWidth)
	return width, width * aspect
}

// StickerMatrix maps sticker pixels to surface pixels: centred on its own
// origin, scaled to size, mirrored so it reads correctly over the mirrored
// video, rotated, then moved to the sticker position.
func StickerMatrix(s placement.State, adj placement.Adjustment, a *sticker.Asset, width, height int) Matrix {
	iw, ih := float64(a.Width()), float64(a.Height())
	sw, sh := StickerSize(s, adj, a.Aspect, width)
	pos := s.Pixel(width, height)

	return Translate(pos.X, pos.Y).
		Multiply(Rotate(s.Rotation + adj.Radians())).
		Multiply(Scale(-1, 1)).
		Multiply(Scale(sw/iw, sh/ih)).
		Multiply(Translate(-iw/2, -ih/2))
}

func (c *Compositor) drawSkeleton(f *detector.LandmarkFrame, w, h int) {
	c.drawBones(f.Pose, detector.UpperBodyConnections, upperBodyJoints, w, h)
	for _, hand := range []detector.Landmarks{f.LeftHand, f.RightHand} {
		if len(hand) == 0 {
			continue
		}
		c.drawBones(hand, detector.HandConnections, nil, w, h)
	}
}

// drawBones draws connections and joint dots. A nil joints list dots every
// landmark.
func (c *Compositor) drawBones(ls detector.Landmarks, bones [][2]int, joints []int, w, h int) {
	if len(ls) == 0 {
		return
	}
	for _, b := range bones {
		p, ok1 := ls.At(b[0])
		q, ok2 := ls.At(b[1])
		if ok1 && ok2 {
			c.surface.Line(mirrored(p, w, h), mirrored(q, w, h), BoneColor, BoneWidth)
		}
	}
	if joints == nil {
		for i := range ls {
			if p, ok := ls.At(i); ok {
				c.surface.FillCircle(mirrored(p, w, h), JointRadius, JointColor)
			}
		}
		return
	}
	for _, i := range joints {
		if p, ok := ls.At(i); ok {
			c.surface.FillCircle(mirrored(p, w, h), JointRadius, JointColor)
		}
	}
}

func (c *Compositor) drawDebugMarks(f *detector.LandmarkFrame, w, h int) {
	marks := []struct {
		ls detector.Landmarks
		i  int
	}{
		{f.Pose, detector.PoseNose},
		{f.Pose, detector.PoseLeftShoulder},
		{f.Pose, detector.PoseRightShoulder},
		{f.LeftHand, detector.IndexTip},
		{f.RightHand, detector.IndexTip},
	}
	for _, m := range marks {
		if p, ok := m.ls.At(m.i); ok {
			c.surface.FillCircle(mirrored(p, w, h), DebugMarkRadius, DebugMarkColor)
		}
	}
}

func (c *Compositor) drawCursor(r gesture.Reading) {
	if r.Pinching {
		c.surface.FillCircle(r.Cursor, PinchCursorRadius, PinchFill)
		c.surface.StrokeCircle(r.Cursor, PinchCursorRadius, PinchRing, CursorRingWidth)
		return
	}
	c.surface.FillCircle(r.Cursor, HoverCursorRadius, HoverFill)
	c.surface.StrokeCircle(r.Cursor, HoverCursorRadius, HoverRing, CursorRingWidth)
}

func mirrored(l detector.Landmark, w, h int) gesture.Point {
	return gesture.Point{X: (1 - l.X) * float64(w), Y: l.Y * float64(h)}
}
