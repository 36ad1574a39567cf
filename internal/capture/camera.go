// Package capture reads video frames from a camera or a video file using
// GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrames is returned when a source has nothing left to play.
	ErrNoFrames = errors.New("no more frames")
)

// Frame is one captured BGR image and the time it was taken, measured from
// when the source was opened.
type Frame struct {
	Mat       gocv.Mat
	Timestamp time.Duration
}

// Size returns the frame width and height in pixels.
func (f *Frame) Size() (int, int) {
	return f.Mat.Cols(), f.Mat.Rows()
}

// Close releases the frame's pixels.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Camera is a source of timestamped frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl captures from a device index, a video file or a stream URL.
type cameraImpl struct {
	source  string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
	width   int
	height  int
	opened  time.Time
	now     func() time.Time
}

// NewCamera creates a Camera for source. A numeric source is a device index;
// anything else is handed to OpenCV as a file name or URL.
func NewCamera(source string) Camera {
	return &cameraImpl{
		source: source,
		fps:    DefaultFPS,
		width:  DefaultWidth,
		height: DefaultHeight,
		now:    time.Now,
	}
}

// NewCameraWithSize is NewCamera with a requested capture resolution.
func NewCameraWithSize(source string, width, height int) Camera {
	c := NewCamera(source).(*cameraImpl)
	if width > 0 && height > 0 {
		c.width, c.height = width, height
	}
	return c
}

func (c *cameraImpl) device() (any, bool) {
	if id, err := strconv.Atoi(c.source); err == nil {
		return id, true
	}
	return c.source, false
}

// Open opens the source. Resolution and FPS are only requested from devices.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	dev, isDevice := c.device()
	capture, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return fmt.Errorf("open video source %q: %w", c.source, err)
	}

	if isDevice {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true
	c.opened = c.now()

	return nil
}

// Close closes the source and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame. Files report their own position; live
// devices are stamped with the time since Open.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		if _, isDevice := c.device(); !isDevice {
			return nil, ErrNoFrames
		}
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	ts := c.now().Sub(c.opened)
	if _, isDevice := c.device(); !isDevice {
		if pos := c.capture.Get(gocv.VideoCapturePosMsec); pos > 0 {
			ts = time.Duration(pos * float64(time.Millisecond))
		}
	}

	return &Frame{Mat: mat, Timestamp: ts}, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
