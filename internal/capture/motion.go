package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Activity constants
const (
	// ActivityBlurSize is the Gaussian kernel applied before differencing.
	ActivityBlurSize = 11
	// ActivityDiffThreshold is the per-pixel change counted as motion.
	ActivityDiffThreshold = 25
	// ActivitySampleWidth is the width frames are shrunk to before comparison.
	ActivitySampleWidth = 160
	// DefaultIdleAfter is how long a still scene stays active.
	DefaultIdleAfter = 2 * time.Second
)

// Activity decides whether the scene is live enough to run at full frame
// rate. It compares downsampled grey frames and also accepts explicit
// activity from callers that know better, such as a hand being on screen.
type Activity struct {
	threshold   float64
	idleAfter   time.Duration
	prevGray    gocv.Mat
	initialized bool
	active      bool
	lastMotion  time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewActivity creates a monitor. threshold is the percentage of pixels that
// must change between frames to count as motion.
func NewActivity(threshold float64, idleAfter time.Duration) *Activity {
	if threshold <= 0 {
		threshold = 1.0
	}
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &Activity{
		threshold:  threshold,
		idleAfter:  idleAfter,
		prevGray:   gocv.NewMat(),
		active:     true,
		lastMotion: time.Now(),
		now:        time.Now,
	}
}

// Observe compares frame with the previous one and returns whether the scene
// is active along with the percentage of pixels that changed. The first frame
// only sets the baseline.
func (a *Activity) Observe(frame *gocv.Mat) (bool, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if frame == nil || frame.Empty() {
		return a.active, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()
	if gray.Cols() > ActivitySampleWidth {
		h := gray.Rows() * ActivitySampleWidth / gray.Cols()
		gocv.Resize(gray, &small, image.Pt(ActivitySampleWidth, max(h, 1)), 0, 0, gocv.InterpolationArea)
	} else {
		gray.CopyTo(&small)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(small, &blurred, image.Pt(ActivityBlurSize, ActivityBlurSize), 0, 0, gocv.BorderDefault)

	if !a.initialized || blurred.Cols() != a.prevGray.Cols() || blurred.Rows() != a.prevGray.Rows() {
		blurred.CopyTo(&a.prevGray)
		a.initialized = true
		a.lastMotion = a.now()
		return a.active, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, a.prevGray, &diff)
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, ActivityDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&a.prevGray)

	if changed > a.threshold {
		a.markLocked()
	} else {
		a.settleLocked()
	}
	return a.active, changed
}

// MarkActive records activity without a frame comparison.
func (a *Activity) MarkActive() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markLocked()
}

// Active reports the current state, letting it lapse to idle if nothing has
// happened for the idle period.
func (a *Activity) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settleLocked()
	return a.active
}

func (a *Activity) markLocked() {
	a.lastMotion = a.now()
	a.active = true
}

func (a *Activity) settleLocked() {
	if a.active && a.now().Sub(a.lastMotion) > a.idleAfter {
		a.active = false
	}
}

// Close releases the stored baseline frame.
func (a *Activity) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.prevGray.Empty() {
		a.prevGray.Close()
		a.prevGray = gocv.NewMat()
	}
	a.initialized = false
}
