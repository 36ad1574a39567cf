package detector

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestLandmarks_At(t *testing.T) {
	ls := Landmarks{
		{X: 0.1, Y: 0.2},
		{X: math.NaN(), Y: 0.5},
		{X: 0.3, Y: math.Inf(1)},
	}

	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{"finite point", 0, true},
		{"NaN x", 1, false},
		{"infinite y", 2, false},
		{"past the end", 3, false},
		{"negative index", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ls.At(tt.index)
			if ok != tt.ok {
				t.Errorf("At(%d) ok = %v, want %v", tt.index, ok, tt.ok)
			}
		})
	}

	t.Run("nil sequence", func(t *testing.T) {
		var none Landmarks
		if _, ok := none.At(0); ok {
			t.Error("expected nil sequence to have no landmarks")
		}
	})
}

func TestLandmarkFrame_Empty(t *testing.T) {
	var nilFrame *LandmarkFrame
	if !nilFrame.Empty() {
		t.Error("nil frame should be empty")
	}
	if !(&LandmarkFrame{}).Empty() {
		t.Error("zero frame should be empty")
	}
	if (&LandmarkFrame{Face: FrontalFaceLandmarks(0.5, 0.4, 0.05, 0.1)}).Empty() {
		t.Error("frame with a face should not be empty")
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("decodes all landmark sets", func(t *testing.T) {
		line := []byte(`{"pose":[{"x":0.1,"y":0.2,"z":0.0,"visibility":0.9}],"left_hand":null,"right_hand":[{"x":0.5,"y":0.5,"z":0.1}],"face":[]}` + "\n")

		frame, err := parseResponse(line)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(frame.Pose) != 1 || math.Abs(frame.Pose[0].Visibility-0.9) > epsilon {
			t.Errorf("unexpected pose: %+v", frame.Pose)
		}
		if frame.LeftHand != nil {
			t.Errorf("expected no left hand, got %+v", frame.LeftHand)
		}
		if len(frame.RightHand) != 1 || frame.RightHand[0].X != 0.5 {
			t.Errorf("unexpected right hand: %+v", frame.RightHand)
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"error":"bad frame"}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"pose":`))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHolisticDetector_NotReady(t *testing.T) {
	d, err := NewHolisticDetector(Config{ScriptPath: "/nonexistent/holistic_service.py"})
	if err != nil {
		t.Fatalf("NewHolisticDetector: %v", err)
	}

	if _, err := d.Detect(nil, time.Millisecond); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on unstarted detector: %v", err)
	}
}

type countingStarter struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (s *countingStarter) Start(ctx context.Context) error {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.err
}

func TestInitializer(t *testing.T) {
	t.Run("becomes ready once", func(t *testing.T) {
		s := &countingStarter{gate: make(chan struct{})}
		gate := NewInitializer()

		gate.Start(context.Background(), s)
		gate.Start(context.Background(), s)
		if gate.Ready() {
			t.Fatal("should not be ready before load completes")
		}
		close(s.gate)

		if err := gate.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if !gate.Ready() {
			t.Error("expected ready after successful load")
		}
		if got := s.calls.Load(); got != 1 {
			t.Errorf("expected one load, got %d", got)
		}
	})

	t.Run("failure is reported and not retried", func(t *testing.T) {
		loadErr := errors.New("model missing")
		s := &countingStarter{err: loadErr}
		gate := NewInitializer()

		gate.Start(context.Background(), s)
		<-gate.Done()
		gate.Start(context.Background(), s)

		if gate.Ready() {
			t.Error("should never become ready after failure")
		}
		if !errors.Is(gate.Err(), loadErr) {
			t.Errorf("expected %v, got %v", loadErr, gate.Err())
		}
		if got := s.calls.Load(); got != 1 {
			t.Errorf("expected one load attempt, got %d", got)
		}
	})

	t.Run("wait honours context", func(t *testing.T) {
		gate := NewInitializer()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := gate.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty frame by default", func(t *testing.T) {
		mock := NewMockDetector()

		frame, err := mock.Detect(nil, 5*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !frame.Empty() {
			t.Errorf("expected empty frame, got %+v", frame)
		}
		if frame.Timestamp != 5*time.Millisecond {
			t.Errorf("expected timestamp to be stamped, got %v", frame.Timestamp)
		}
	})

	t.Run("queued frames come before the fixed frame", func(t *testing.T) {
		mock := NewMockDetector()
		fixed := &LandmarkFrame{Pose: UprightPoseLandmarks(0.5, 0.5, 0.1)}
		queued := &LandmarkFrame{RightHand: PinchingHandLandmarks(0.5, 0.5)}
		mock.SetFrame(fixed)
		mock.Queue(queued)

		first, _ := mock.Detect(nil, 1)
		second, _ := mock.Detect(nil, 2)

		if first.RightHand == nil || first.Pose != nil {
			t.Errorf("expected queued frame first, got %+v", first)
		}
		if second.Pose == nil {
			t.Errorf("expected fixed frame second, got %+v", second)
		}
		if mock.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		frame, err := mock.Detect(nil, 1)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if frame != nil {
			t.Errorf("expected nil frame when error is set, got %v", frame)
		}
	})

	t.Run("implements Detector and Starter", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Starter = (*MockDetector)(nil)
		var _ Starter = (*HolisticDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	t.Run("pinching hand tips are close", func(t *testing.T) {
		hand := PinchingHandLandmarks(0.4, 0.6)
		if d := Distance(hand[ThumbTip], hand[IndexTip]); d >= 0.08 {
			t.Errorf("expected tips closer than 0.08, got %f", d)
		}
		if len(hand) != NumHandLandmarks {
			t.Errorf("expected %d landmarks, got %d", NumHandLandmarks, len(hand))
		}
	})

	t.Run("open hand tips are apart", func(t *testing.T) {
		hand := OpenHandLandmarks(0.4, 0.6)
		if d := Distance(hand[ThumbTip], hand[IndexTip]); d < 0.08 {
			t.Errorf("expected tips at least 0.08 apart, got %f", d)
		}
	})

	t.Run("upright pose has level shoulders", func(t *testing.T) {
		pose := UprightPoseLandmarks(0.5, 0.6, 0.1)
		l, r := pose[PoseLeftShoulder], pose[PoseRightShoulder]
		if l.Y != r.Y {
			t.Error("shoulders should be level")
		}
		if l.X <= r.X {
			t.Error("subject's left shoulder should appear at larger raw X")
		}
	})

	t.Run("frontal face covers anchor indices", func(t *testing.T) {
		face := FrontalFaceLandmarks(0.5, 0.4, 0.05, 0.1)
		for _, i := range []int{FaceNoseBridge, FaceRightEye, FaceLeftEye, FaceRightEar, FaceLeftEar} {
			if _, ok := face.At(i); !ok {
				t.Errorf("missing face landmark %d", i)
			}
		}
	})
}
