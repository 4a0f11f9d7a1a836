package sample

import (
	"errors"
	"sync"
)

// Window is the root of a widget tree. It owns the inspector overlay.
type Window struct {
	View
	Title string

	mu    sync.Mutex
	onTap func(x, y float64)
}

func NewWindow(title string, frame Rect, children ...Viewer) *Window {
	return &Window{View: *NewView("window", frame, children...), Title: title}
}

// Install implements ports.Overlay.
func (w *Window) Install(onTap func(x, y float64)) error {
	if onTap == nil {
		return errors.New("overlay requires a tap handler")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTap = onTap
	return nil
}

// Remove implements ports.Overlay.
func (w *Window) Remove() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTap = nil
}

// OverlayActive reports whether taps are being intercepted.
func (w *Window) OverlayActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onTap != nil
}

// Tap delivers a tap in window coordinates. With the overlay installed it
// goes to the inspector; otherwise the topmost button under it is tapped.
func (w *Window) Tap(x, y float64) {
	w.mu.Lock()
	intercept := w.onTap
	w.mu.Unlock()
	if intercept != nil {
		intercept(x, y)
		return
	}
	if b := buttonAt(&w.View, x, y); b != nil {
		b.Tap()
	}
}

func buttonAt(v *View, x, y float64) *Button {
	for i := len(v.children) - 1; i >= 0; i-- {
		c := v.children[i]
		f := c.AsView().Frame
		if !f.Contains(x, y) {
			continue
		}
		if b := buttonAt(c.AsView(), x-f.Left, y-f.Top); b != nil {
			return b
		}
		if b, ok := c.(*Button); ok {
			return b
		}
		return nil
	}
	return nil
}
