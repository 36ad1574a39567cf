package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/arsticker/internal/anchor"
	"github.com/ayusman/arsticker/internal/capture"
	"github.com/ayusman/arsticker/internal/detector"
	"github.com/ayusman/arsticker/internal/gesture"
	"github.com/ayusman/arsticker/internal/placement"
	"github.com/ayusman/arsticker/internal/render"
	"github.com/ayusman/arsticker/internal/sticker"
)

type starterFunc func(context.Context) error

func (f starterFunc) Start(ctx context.Context) error { return f(ctx) }

// LoadModel starts loading the landmark model in the background. It is safe
// to call more than once; only the first call loads.
func (a *App) LoadModel(ctx context.Context) {
	var s detector.Starter = starterFunc(func(context.Context) error { return nil })
	if st, ok := a.detector.(detector.Starter); ok {
		s = st
	}
	a.init.Start(ctx, s)
}

// Run waits for the landmark model, then pumps frames until ctx is cancelled
// or the source runs out.
//
// The pump runs at ActiveFPS while the scene moves or a hand is tracked and
// drops to IdleFPS after the scene has been still for a while.
func (a *App) Run(ctx context.Context) error {
	if a.camera == nil {
		return ErrNoCamera
	}

	a.LoadModel(ctx)
	if err := a.init.Wait(ctx); err != nil {
		return fmt.Errorf("load landmark model: %w", err)
	}
	a.log.Info("landmark model ready")

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.log.WithError(err).Warn("error closing camera")
		}
	}()

	activity := capture.NewActivity(a.cfg.MotionThreshold, capture.DefaultIdleAfter)
	defer activity.Close()

	fps := ActiveFPS
	a.camera.SetFPS(fps)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrNoFrames) {
			a.log.Info("video source finished")
			return nil
		}
		if err != nil {
			a.log.WithError(err).Warn("error reading frame")
			continue
		}

		active, _ := activity.Observe(&frame.Mat)
		err = a.Step(frame)
		frame.Close()
		if err != nil && !errors.Is(err, detector.ErrStaleTimestamp) {
			a.log.WithError(err).Warn("frame failed")
		}

		if g := a.machine.Gesture(); g.HasCursor || g.Dragging {
			activity.MarkActive()
			active = true
		}

		want := IdleFPS
		if active {
			want = ActiveFPS
		}
		if want != fps {
			fps = want
			a.camera.SetFPS(fps)
			ticker.Reset(time.Second / time.Duration(fps))
			a.log.WithField("fps", fps).Debug("pump cadence changed")
		}
	}
}

// Step processes one frame to completion: detection, gesture, anchors,
// placement and drawing. A frame whose timestamp does not advance past the
// previous one is skipped with detector.ErrStaleTimestamp.
func (a *App) Step(frame *capture.Frame) error {
	if a.hasTS && frame.Timestamp <= a.lastTS {
		a.skipped++
		a.log.WithField("timestamp", frame.Timestamp).Debug("skipping frame with stale timestamp")
		return detector.ErrStaleTimestamp
	}
	a.lastTS, a.hasTS = frame.Timestamp, true
	a.frames++

	ctl, snapOn := a.takeControls()
	if snapOn && ctl.Snap {
		a.machine.SetSnap(true)
	} else if ctl.Snap != a.machine.Snap() {
		a.machine.SetSnap(ctl.Snap)
	}
	adj := ctl.Adjustment()

	surface := a.compositor.Surface()
	surface.Resize(frame.Size())
	w, h := surface.Size()

	if change, ok := a.slot.Poll(); ok {
		switch {
		case change.Asset != nil:
			a.machine.Reset()
			a.log.WithField("width", change.Asset.Width()).
				WithField("height", change.Asset.Height()).
				Info("sticker loaded")
		case change.Err == nil:
			a.machine.CancelDrag()
			a.log.Info("sticker cleared")
		default:
			a.machine.CancelDrag()
		}
	}
	asset := a.slot.Active()

	landmarks := a.detect(frame)

	var reading gesture.Reading
	if asset != nil {
		reading = a.gestures.Detect(landmarks, w, h)
	}
	chest, chestOK := anchor.Chest(landmarks.Pose, w, h)
	face, faceOK := anchor.Face(landmarks.Face, w, h)

	writer := a.machine.Update(placement.Input{
		Width:      w,
		Height:     h,
		Gesture:    reading,
		Chest:      chest,
		ChestOK:    chestOK,
		Face:       face,
		FaceOK:     faceOK,
		Adjustment: adj,
		HasSticker: asset != nil,
	})

	err := a.compositor.Compose(render.Scene{
		Frame:      &frame.Mat,
		Landmarks:  landmarks,
		Sticker:    asset,
		State:      a.machine.State(),
		Adjustment: adj,
		Cursor:     reading,
	})
	if err != nil {
		return fmt.Errorf("compose frame: %w", err)
	}

	a.publish(writer, frame.Timestamp, w, h)
	return nil
}

// detect runs one detection call. Failures count as a frame with nothing in
// it.
func (a *App) detect(frame *capture.Frame) *detector.LandmarkFrame {
	lf, err := a.detector.Detect(&frame.Mat, frame.Timestamp)
	if err != nil {
		a.failures++
		a.log.WithError(err).WithField("failures", a.failures).Debug("landmark detection failed")
	}
	if err != nil || lf == nil {
		return &detector.LandmarkFrame{Timestamp: frame.Timestamp}
	}
	return lf
}

func (a *App) publish(writer placement.Writer, ts time.Duration, w, h int) {
	snap := a.buildSnapshot(writer, w, h)
	snap.Timestamp = ts

	var jpeg []byte
	if a.limiter.Allow() {
		raw, err := a.compositor.Surface().EncodeJPEG(a.cfg.JPEGQuality)
		if err != nil {
			a.log.WithError(err).Warn("failed to encode frame")
		} else {
			jpeg = raw
		}
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()
	a.snapshot = snap
	if jpeg != nil {
		a.jpeg = jpeg
		a.jpegSeq++
	}
}

func (a *App) buildSnapshot(writer placement.Writer, w, h int) Snapshot {
	s := Snapshot{
		Placement:      a.machine.State(),
		Gesture:        a.machine.Gesture(),
		Writer:         writer,
		StickerLoading: a.slot.Loading(),
		Width:          w,
		Height:         h,
		Frames:         a.frames,
		Skipped:        a.skipped,
		DetectFailures: a.failures,
	}
	if asset := a.slot.Active(); asset != nil {
		s.HasSticker = true
		s.Sticker = sticker.Describe(asset.Source)
	}
	return s
}
