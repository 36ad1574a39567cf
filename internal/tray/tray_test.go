package tray

import "testing"

// The menu itself needs a desktop session; these cover the state and
// callbacks behind it.

func TestTray_SnapToggle(t *testing.T) {
	tr := New(false)

	var got []bool
	tr.OnSnap(func(enabled bool) { got = append(got, enabled) })

	tr.handleSnap()
	tr.handleSnap()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("callback values = %v, want [true false]", got)
	}
	if tr.Snap() {
		t.Error("expected snap off after two toggles")
	}
}

func TestTray_SetSnapBeforeReady(t *testing.T) {
	tr := New(false)
	tr.SetSnap(true)
	if !tr.Snap() {
		t.Error("expected snap on")
	}
	tr.SetSticker("cat")
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(true)

	cleared, opened := 0, 0
	tr.OnClear(func() { cleared++ })
	tr.OnOpenUI(func() { opened++ })

	tr.handle(func() func() { return tr.onClear })
	tr.handle(func() func() { return tr.onOpenUI })
	tr.handle(func() func() { return tr.onQuit })

	if cleared != 1 || opened != 1 {
		t.Errorf("cleared = %d, opened = %d", cleared, opened)
	}
}
