package placement

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/arsticker/internal/anchor"
	"github.com/ayusman/arsticker/internal/gesture"
)

// Writer names the single source that wrote the state during an update.
type Writer string

const (
	WriterNone  Writer = "none"
	WriterChest Writer = "chest"
	WriterFace  Writer = "face"
	WriterDrag  Writer = "drag"
)

// Config holds the placement policy parameters.
type Config struct {
	// HitRadiusFactor is the grab radius as a fraction of the rendered
	// sticker width.
	HitRadiusFactor float64
	// CaptureRadius is the snap distance as a fraction of the canvas
	// diagonal.
	CaptureRadius float64
	Smoothing     SmoothingConfig
}

// DefaultConfig returns the default placement policy.
func DefaultConfig() Config {
	return Config{
		HitRadiusFactor: 0.5,
		CaptureRadius:   0.25,
		Smoothing:       DefaultSmoothing(),
	}
}

// Input is everything the machine sees for one frame.
type Input struct {
	Width, Height int
	Gesture       gesture.Reading
	Chest         anchor.Transform
	ChestOK       bool
	Face          anchor.Transform
	FaceOK        bool
	Adjustment    Adjustment
	// HasSticker gates grabbing; there is nothing to grab without one.
	HasSticker bool
}

// Machine is the placement state machine. It is not safe for concurrent use;
// a single frame loop owns it.
type Machine struct {
	cfg     Config
	state   State
	gesture GestureState
	snap    bool
	smooth  *smoother
	log     logrus.FieldLogger
}

// NewMachine creates a machine in the initial manual state. The snap flag is
// recorded without the re-attach that SetSnap performs.
func NewMachine(cfg Config, snap bool, log logrus.FieldLogger) *Machine {
	def := DefaultConfig()
	if cfg.HitRadiusFactor <= 0 {
		cfg.HitRadiusFactor = def.HitRadiusFactor
	}
	if cfg.CaptureRadius <= 0 {
		cfg.CaptureRadius = def.CaptureRadius
	}
	if cfg.Smoothing.Dt <= 0 {
		enabled := cfg.Smoothing.Enabled
		cfg.Smoothing = def.Smoothing
		cfg.Smoothing.Enabled = enabled
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	m := &Machine{
		cfg:    cfg,
		state:  Initial(),
		smooth: newSmoother(cfg.Smoothing),
		snap:   snap,
		log:    log,
	}
	return m
}

// State returns the current transform.
func (m *Machine) State() State { return m.state }

// Gesture returns the persisted gesture flags.
func (m *Machine) Gesture() GestureState { return m.gesture }

// Snap reports whether snap-to-body is enabled.
func (m *Machine) Snap() bool { return m.snap }

// SetSnap enables or disables snap-to-body. Enabling it while idle in manual
// mode re-attaches the sticker to the chest; the position is left alone
// until the next update. Disabling it never detaches an anchored sticker.
func (m *Machine) SetSnap(enabled bool) {
	m.snap = enabled
	if enabled && m.state.Mode == ModeManual && !m.gesture.Dragging {
		m.enter(ModeChest)
	}
}

// Reset returns to the initial state for a newly loaded sticker and cancels
// any drag. The pinch flag is kept so a pinch already in progress cannot
// grab the new sticker without a fresh edge.
func (m *Machine) Reset() {
	m.state = Initial()
	m.CancelDrag()
	m.smooth.tracker = nil
}

// CancelDrag drops a drag in progress, leaving the sticker where it is.
func (m *Machine) CancelDrag() {
	m.gesture.Dragging = false
	m.gesture.DragOffset = gesture.Point{}
}

// Update advances the machine by one frame and reports which source wrote
// the state. At most one source writes per frame.
func (m *Machine) Update(in Input) Writer {
	if in.Width <= 0 || in.Height <= 0 {
		return WriterNone
	}

	g := &m.gesture
	if !in.Gesture.HasCursor {
		// No hand this frame: pinch edges are not evaluated and a drag
		// holds where it is.
		g.HasCursor = false
		if g.Dragging {
			return WriterNone
		}
		return m.follow(in)
	}

	wasPinching := g.Pinching
	g.Pinching = in.Gesture.Pinching
	g.Cursor = in.Gesture.Cursor
	g.HasCursor = true

	switch {
	case g.Pinching && !wasPinching && !g.Dragging:
		if m.grab(in) {
			return WriterDrag
		}
	case !g.Pinching && wasPinching && g.Dragging:
		return m.release(in)
	}

	if g.Dragging {
		return m.drag(in)
	}
	return m.follow(in)
}

// HitRadius returns the grab radius in pixels for the current state.
func (m *Machine) HitRadius(adj Adjustment, canvasWidth int) float64 {
	return m.cfg.HitRadiusFactor * RenderedWidth(m.state, adj, canvasWidth)
}

func (m *Machine) grab(in Input) bool {
	if !in.HasSticker {
		return false
	}
	center := m.state.Pixel(in.Width, in.Height)
	if m.gesture.Cursor.Dist(center) > m.HitRadius(in.Adjustment, in.Width) {
		return false
	}

	m.gesture.Dragging = true
	m.gesture.DragOffset = m.gesture.Cursor.Sub(center)
	if m.state.Mode != ModeManual {
		m.log.WithField("from", m.state.Mode).Debug("sticker grabbed, detaching from anchor")
	}
	m.state.Mode = ModeManual
	return true
}

func (m *Machine) drag(in Input) Writer {
	pos := m.gesture.Cursor.Sub(m.gesture.DragOffset)
	x, y := pos.X/float64(in.Width), pos.Y/float64(in.Height)
	if !finite(x) || !finite(y) {
		return WriterNone
	}
	m.state.X, m.state.Y = x, y
	return WriterDrag
}

func (m *Machine) release(in Input) Writer {
	m.gesture.Dragging = false
	m.gesture.DragOffset = gesture.Point{}
	if !m.snap {
		return WriterNone
	}

	w, h := float64(in.Width), float64(in.Height)
	capture := m.cfg.CaptureRadius * math.Hypot(w, h)
	pos := m.state.Pixel(in.Width, in.Height)

	best := ModeManual
	bestDist := math.Inf(1)
	var target anchor.Transform

	candidates := []struct {
		mode Mode
		t    anchor.Transform
		ok   bool
	}{
		{ModeChest, in.Chest, in.ChestOK},
		{ModeFace, in.Face, in.FaceOK},
	}
	for _, c := range candidates {
		if !c.ok || !c.t.Valid() {
			continue
		}
		d := pos.Dist(gesture.Point{X: c.t.X * w, Y: c.t.Y * h})
		if d <= capture && d < bestDist {
			best, bestDist, target = c.mode, d, c.t
		}
	}

	if best == ModeManual {
		return WriterNone
	}

	m.log.WithFields(logrus.Fields{"mode": best, "distance": bestDist}).Debug("sticker snapped to anchor")
	m.enter(best)
	m.state = m.state.withTransform(target)
	m.smooth.reset(target.X, target.Y)
	return writerFor(best)
}

// follow recomputes the transform from the active anchor, holding the last
// value when the anchor is unavailable.
func (m *Machine) follow(in Input) Writer {
	var (
		t  anchor.Transform
		ok bool
	)
	switch m.state.Mode {
	case ModeChest:
		t, ok = in.Chest, in.ChestOK
	case ModeFace:
		t, ok = in.Face, in.FaceOK
	default:
		return WriterNone
	}
	if !ok || !t.Valid() {
		return WriterNone
	}

	if m.cfg.Smoothing.Enabled {
		x, y, err := m.smooth.filter(t.X, t.Y)
		if err != nil {
			m.log.WithError(err).Warn("anchor smoothing failed, using raw position")
		} else if finite(x) && finite(y) {
			t.X, t.Y = x, y
		}
	}

	m.state = m.state.withTransform(t)
	return writerFor(m.state.Mode)
}

func (m *Machine) enter(mode Mode) {
	if m.state.Mode != mode {
		m.log.WithFields(logrus.Fields{"from": m.state.Mode, "to": mode}).Info("anchor mode changed")
	}
	m.state.Mode = mode
	m.smooth.tracker = nil
}

func writerFor(mode Mode) Writer {
	switch mode {
	case ModeChest:
		return WriterChest
	case ModeFace:
		return WriterFace
	}
	return WriterNone
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
