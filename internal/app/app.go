// Package app runs the frame pump that ties capture, landmark detection,
// gesture tracking, placement and drawing together.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/arsticker/internal/capture"
	"github.com/ayusman/arsticker/internal/detector"
	"github.com/ayusman/arsticker/internal/gesture"
	"github.com/ayusman/arsticker/internal/placement"
	"github.com/ayusman/arsticker/internal/render"
	"github.com/ayusman/arsticker/internal/sticker"
)

// Pump timing constants.
const (
	// IdleFPS is the frame rate while nothing moves and no hand is visible.
	IdleFPS = 10
	// ActiveFPS is the frame rate while the scene is live.
	ActiveFPS = 30
	// DefaultStreamFPS caps how often the composited frame is re-encoded.
	DefaultStreamFPS = 15
)

var (
	// ErrInvalidAdjustment is returned for a non-positive or non-finite
	// scale multiplier or a non-finite rotation.
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	// ErrRunning is returned by Start when the pump is already running.
	ErrRunning = errors.New("pump already running")
	// ErrNoCamera is returned by Run without a frame source.
	ErrNoCamera = errors.New("no camera configured")
)

// Config holds the pump's collaborators and tuning.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Surface  render.Surface
	Loader   sticker.Loader
	Log      logrus.FieldLogger

	Placement      placement.Config
	PinchThreshold float64
	Snap           bool
	Adjustment     placement.Adjustment
	Overlay        render.Options

	StreamFPS   float64
	JPEGQuality int
	// MotionThreshold is the percentage of changed pixels that keeps the
	// pump at ActiveFPS.
	MotionThreshold float64
}

// Controls are the user-adjustable engine inputs.
type Controls struct {
	Snap            bool    `json:"snap"`
	ScaleMultiplier float64 `json:"scale_multiplier"`
	RotationDegrees float64 `json:"rotation_degrees"`
}

// Adjustment returns the draw-time adjustment part of c.
func (c Controls) Adjustment() placement.Adjustment {
	return placement.Adjustment{ScaleMultiplier: c.ScaleMultiplier, RotationDegrees: c.RotationDegrees}
}

// Snapshot is a consistent view of the engine after a frame.
type Snapshot struct {
	Ready          bool                   `json:"ready"`
	Placement      placement.State        `json:"placement"`
	Gesture        placement.GestureState `json:"gesture"`
	Writer         placement.Writer       `json:"writer"`
	Controls       Controls               `json:"controls"`
	Sticker        string                 `json:"sticker,omitempty"`
	HasSticker     bool                   `json:"has_sticker"`
	StickerLoading bool                   `json:"sticker_loading"`
	Width          int                    `json:"width"`
	Height         int                    `json:"height"`
	Frames         uint64                 `json:"frames"`
	Skipped        uint64                 `json:"skipped"`
	DetectFailures uint64                 `json:"detect_failures"`
	Timestamp      time.Duration          `json:"timestamp"`
}

// App owns the frame pump. Inputs may be set from any goroutine; they are
// picked up at the start of the next frame. Everything else belongs to the
// pump goroutine.
type App struct {
	cfg        Config
	log        logrus.FieldLogger
	camera     capture.Camera
	detector   detector.Detector
	init       *detector.Initializer
	gestures   *gesture.Detector
	machine    *placement.Machine
	slot       *sticker.Slot
	compositor *render.Compositor
	limiter    *rate.Limiter

	inMu     sync.Mutex
	controls Controls
	// snapOn latches an off-to-on snap toggle until the next frame.
	snapOn bool

	outMu    sync.RWMutex
	snapshot Snapshot
	jpeg     []byte
	jpegSeq  uint64

	lastTS   time.Duration
	hasTS    bool
	frames   uint64
	skipped  uint64
	failures uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

// New creates an App. A missing detector falls back to a mock that never
// finds anyone, a missing surface to the pure Go raster surface and a
// missing loader to the default source loader.
func New(cfg Config) *App {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if cfg.Detector == nil {
		log.Warn("no landmark detector configured, using mock detector")
		cfg.Detector = detector.NewMockDetector()
	}
	if cfg.Surface == nil {
		cfg.Surface = render.NewRasterSurface(capture.DefaultWidth, capture.DefaultHeight)
	}
	if cfg.Loader == nil {
		cfg.Loader = sticker.NewSourceLoader()
	}
	if cfg.PinchThreshold <= 0 {
		cfg.PinchThreshold = gesture.DefaultThreshold
	}
	if cfg.StreamFPS <= 0 {
		cfg.StreamFPS = DefaultStreamFPS
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = render.DefaultJPEGQuality
	}
	if validAdjustment(cfg.Adjustment) != nil {
		cfg.Adjustment = placement.NoAdjustment()
	}

	a := &App{
		cfg:        cfg,
		log:        log,
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		init:       detector.NewInitializer(),
		gestures:   gesture.NewDetector(cfg.PinchThreshold),
		machine:    placement.NewMachine(cfg.Placement, cfg.Snap, log.WithField("component", "placement")),
		slot:       sticker.NewSlot(cfg.Loader, log.WithField("component", "sticker")),
		compositor: render.NewCompositor(cfg.Surface, cfg.Overlay),
		limiter:    rate.NewLimiter(rate.Limit(cfg.StreamFPS), 1),
		controls: Controls{
			Snap:            cfg.Snap,
			ScaleMultiplier: cfg.Adjustment.ScaleMultiplier,
			RotationDegrees: cfg.Adjustment.RotationDegrees,
		},
	}
	a.snapshot = a.buildSnapshot(placement.WriterNone, 0, 0)
	return a
}

// SetSticker requests source as the active sticker. The current sticker stays
// on screen until the new one has loaded. An empty source clears it.
func (a *App) SetSticker(source string) {
	a.log.WithField("source", source).Debug("sticker requested")
	a.slot.Request(source)
}

// ClearSticker removes the active sticker.
func (a *App) ClearSticker() {
	a.SetSticker("")
}

// SetSnap enables or disables snap-to-body from the next frame on. Turning
// it on re-attaches an idle sticker to the chest even if it is turned off
// and on again before that frame.
func (a *App) SetSnap(enabled bool) {
	a.inMu.Lock()
	defer a.inMu.Unlock()
	if enabled && !a.controls.Snap {
		a.snapOn = true
	}
	a.controls.Snap = enabled
}

// SetAdjustment sets the draw-time scale multiplier and rotation offset.
func (a *App) SetAdjustment(adj placement.Adjustment) error {
	if err := validAdjustment(adj); err != nil {
		return err
	}
	a.inMu.Lock()
	defer a.inMu.Unlock()
	a.controls.ScaleMultiplier = adj.ScaleMultiplier
	a.controls.RotationDegrees = adj.RotationDegrees
	return nil
}

// Controls returns the most recently set inputs.
func (a *App) Controls() Controls {
	a.inMu.Lock()
	defer a.inMu.Unlock()
	return a.controls
}

// takeControls returns the inputs for a frame and consumes the snap latch.
func (a *App) takeControls() (Controls, bool) {
	a.inMu.Lock()
	defer a.inMu.Unlock()
	on := a.snapOn
	a.snapOn = false
	return a.controls, on
}

func validAdjustment(adj placement.Adjustment) error {
	m := adj.ScaleMultiplier
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: scale multiplier %v must be positive", ErrInvalidAdjustment, m)
	}
	if r := adj.RotationDegrees; math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: rotation %v must be finite", ErrInvalidAdjustment, r)
	}
	return nil
}

// Ready reports whether the landmark model has loaded.
func (a *App) Ready() bool {
	return a.init.Ready()
}

// Snapshot returns the state after the most recent frame.
func (a *App) Snapshot() Snapshot {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	s := a.snapshot
	s.Ready = a.init.Ready()
	s.Controls = a.Controls()
	return s
}

// LatestJPEG returns the most recently published composited frame and its
// sequence number. The sequence is zero until a frame has been published.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.jpeg, a.jpegSeq
}

// Start loads the model and runs the pump in the background until Stop.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.done != nil {
		return ErrRunning
	}
	if a.camera == nil {
		return ErrNoCamera
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := a.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			a.log.WithError(err).Error("frame pump stopped")
		}
		a.runMu.Lock()
		a.runErr = err
		a.runMu.Unlock()
	}(a.done)

	a.log.Info("frame pump started")
	return nil
}

// Stop halts the pump, waits for it to finish and releases the detector.
// In-flight sticker loads are dropped.
func (a *App) Stop() {
	a.runMu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	a.slot.Close()

	if err := a.detector.Close(); err != nil {
		a.log.WithError(err).Warn("error closing detector")
	}

	a.log.Info("frame pump stopped")
}

// Err returns the error that ended the last run, if any.
func (a *App) Err() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.runErr
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Surface returns the drawing surface.
func (a *App) Surface() render.Surface {
	return a.compositor.Surface()
}
