package detector

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	frame    *LandmarkFrame
	queue    []*LandmarkFrame
	err      error
	startErr error
	calls    int
	started  bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the landmark frame returned by every Detect call once the
// queue is exhausted.
func (m *MockDetector) SetFrame(frame *LandmarkFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// Queue appends frames returned one per Detect call, before the fixed frame.
func (m *MockDetector) Queue(frames ...*LandmarkFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetStartError makes Start fail with err.
func (m *MockDetector) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Start reports the configured start error.
func (m *MockDetector) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

// Detect returns the next queued frame, the fixed frame or the error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestamp time.Duration) (*LandmarkFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	var next *LandmarkFrame
	if len(m.queue) > 0 {
		next = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		next = m.frame
	}
	if next == nil {
		return &LandmarkFrame{Timestamp: timestamp}, nil
	}

	out := *next
	out.Timestamp = timestamp
	return &out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
