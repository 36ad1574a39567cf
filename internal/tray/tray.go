// Package tray provides a system tray menu for the sticker engine.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: snap toggle, clear sticker, open UI and quit.
type Tray struct {
	onSnap   func(enabled bool)
	onClear  func()
	onOpenUI func()
	onQuit   func()
	snap     bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuSnap    *systray.MenuItem
	menuSticker *systray.MenuItem
	menuClear   *systray.MenuItem
}

// New creates a Tray with the given initial snap state.
func New(snap bool) *Tray {
	return &Tray{snap: snap}
}

// OnSnap sets the callback for the snap toggle.
func (t *Tray) OnSnap(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSnap = fn
}

// OnClear sets the callback for clearing the sticker.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnOpenUI sets the callback for opening the web UI.
func (t *Tray) OnOpenUI(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenUI = fn
}

// OnQuit sets the callback for quitting.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called and must run on
// the main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("AR")
	systray.SetTooltip("AR Sticker")

	t.mu.Lock()
	t.menuSnap = systray.AddMenuItemCheckbox("Snap to body", "Snap the sticker to the chest or face", t.snap)
	systray.AddSeparator()
	t.menuSticker = systray.AddMenuItem("Sticker: none", "Active sticker")
	t.menuSticker.Disable()
	t.menuClear = systray.AddMenuItem("Clear sticker", "Remove the sticker from the screen")
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open…", "Open the sticker page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AR Sticker")

	go func() {
		for {
			select {
			case <-t.menuSnap.ClickedCh:
				t.handleSnap()
			case <-t.menuClear.ClickedCh:
				t.handle(func() func() { return t.onClear })
			case <-menuOpen.ClickedCh:
				t.handle(func() func() { return t.onOpenUI })
			case <-menuQuit.ClickedCh:
				t.handle(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleSnap flips the snap state and reports it.
func (t *Tray) handleSnap() {
	t.mu.Lock()
	t.snap = !t.snap
	enabled := t.snap
	t.syncSnapLocked()
	callback := t.onSnap
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handle(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) syncSnapLocked() {
	if t.menuSnap == nil {
		return
	}
	if t.snap {
		t.menuSnap.Check()
	} else {
		t.menuSnap.Uncheck()
	}
}

// SetSnap updates the checkbox when snap is changed elsewhere.
func (t *Tray) SetSnap(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = enabled
	t.syncSnapLocked()
}

// SetSticker shows the active sticker's name, or none.
func (t *Tray) SetSticker(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSticker == nil {
		return
	}
	if name == "" {
		t.menuSticker.SetTitle("Sticker: none")
		t.menuClear.Disable()
		return
	}
	t.menuSticker.SetTitle("Sticker: " + name)
	t.menuClear.Enable()
}

// Snap returns the snap state shown in the menu.
func (t *Tray) Snap() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
