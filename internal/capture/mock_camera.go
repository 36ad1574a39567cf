package capture

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// DefaultMockInterval spaces mock frame timestamps at 30 FPS.
const DefaultMockInterval = time.Second / 30

// MockCamera plays back pre-recorded frames for testing. Timestamps advance by
// a fixed interval and keep advancing across loops unless scripted with
// SetTimestamps.
type MockCamera struct {
	frames     []*gocv.Mat
	timestamps []time.Duration
	interval   time.Duration
	index      int
	served     int
	loop       bool
	mu         sync.Mutex
	running    bool
	fps        int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:   frames,
		loop:     loop,
		interval: DefaultMockInterval,
		fps:      DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	c.served = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, errors.New("no frames available")
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoFrames
		}
		c.index = 0
	}

	ts := time.Duration(c.served+1) * c.interval
	if c.served < len(c.timestamps) {
		ts = c.timestamps[c.served]
	}

	// Clone the frame so the original isn't modified
	frame := &Frame{Mat: c.frames[c.index].Clone(), Timestamp: ts}
	c.index++
	c.served++

	return frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// SetInterval sets the spacing of generated timestamps.
func (c *MockCamera) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// SetTimestamps scripts the timestamps of the next reads, in order. Reads
// past the end fall back to the interval.
func (c *MockCamera) SetTimestamps(ts ...time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestamps = ts
	c.served = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
	c.served = 0
}
