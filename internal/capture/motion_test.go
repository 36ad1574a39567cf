package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestActivity(clock *fakeClock) *Activity {
	a := NewActivity(1.0, time.Second)
	a.now = clock.now
	a.lastMotion = clock.t
	return a
}

func TestNewActivity_Defaults(t *testing.T) {
	a := NewActivity(0, 0)
	defer a.Close()

	if a.threshold != 1.0 {
		t.Errorf("threshold = %f, want 1.0", a.threshold)
	}
	if a.idleAfter != DefaultIdleAfter {
		t.Errorf("idleAfter = %v, want %v", a.idleAfter, DefaultIdleAfter)
	}
	if !a.Active() {
		t.Error("monitor should start active")
	}
}

func TestActivity_Lapse(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	a := newTestActivity(clock)
	defer a.Close()

	clock.t = clock.t.Add(500 * time.Millisecond)
	if !a.Active() {
		t.Error("should still be active inside the idle period")
	}

	clock.t = clock.t.Add(time.Second)
	if a.Active() {
		t.Error("should be idle after the idle period")
	}

	a.MarkActive()
	if !a.Active() {
		t.Error("MarkActive should wake the monitor")
	}
}

func TestActivity_Observe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	clock := &fakeClock{t: time.Unix(1000, 0)}
	a := newTestActivity(clock)
	defer a.Close()

	still := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer still.Close()

	if _, changed := a.Observe(&still); changed != 0 {
		t.Errorf("baseline frame changed = %f, want 0", changed)
	}

	clock.t = clock.t.Add(2 * time.Second)
	active, changed := a.Observe(&still)
	if active {
		t.Errorf("identical frames should go idle, changed = %f", changed)
	}

	moved := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer moved.Close()
	gocv.Rectangle(&moved, image.Rect(40, 40, 280, 200), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	active, changed = a.Observe(&moved)
	if !active || changed <= 1.0 {
		t.Errorf("large change should wake the monitor: active=%v changed=%f", active, changed)
	}
}

func TestActivity_ObserveNil(t *testing.T) {
	a := NewActivity(1.0, time.Second)
	defer a.Close()

	if active, changed := a.Observe(nil); !active || changed != 0 {
		t.Errorf("Observe(nil) = %v, %f", active, changed)
	}
}
