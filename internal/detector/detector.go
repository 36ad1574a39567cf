package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrStaleTimestamp is returned when a frame timestamp does not advance.
	ErrStaleTimestamp = errors.New("frame timestamp did not advance")

	// ErrNotReady is returned when detection is attempted before the model loaded.
	ErrNotReady = errors.New("landmark model not ready")
)

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected landmark sets.
	// Timestamps must be strictly increasing across calls.
	Detect(frame *gocv.Mat, timestamp time.Duration) (*LandmarkFrame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the holistic landmark model.
type Config struct {
	// ScriptPath overrides the location of holistic_service.py.
	ScriptPath string

	// PythonPath overrides the interpreter used to run the service.
	PythonPath string

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// StartTimeout bounds how long model loading may take.
	StartTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		StartTimeout:    60 * time.Second,
	}
}
