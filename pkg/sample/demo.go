package sample

import "fmt"

// Find returns the first descendant (depth-first, including v) whose ID is id.
func (v *View) Find(id string) Viewer {
	for _, c := range v.children {
		cv := c.AsView()
		if cv.ID == id {
			return c
		}
		if found := cv.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// NewDemo builds the demo window:
//
//	Window
//	├── Text "title"
//	├── View "content"
//	│   ├── Text "body"
//	│   └── View "decoration" (AX hidden)
//	│       └── Text "caption"
//	├── Text "clock"
//	├── Button "ok"
//	└── Button "cancel"
func NewDemo() *Window {
	title := NewText("title", "Inspector demo", Rect{0, 0, 320, 40})
	title.AXLabel = "Heading"

	caption := NewText("caption", "Widgets below are live", Rect{0, 0, 300, 20})
	decoration := NewView("decoration", Rect{10, 220, 310, 260}, caption)
	decoration.AXHidden = true
	decoration.Background = "#eeeeee"

	body := NewText("body", "Tap a widget with search mode on to select it.", Rect{10, 10, 310, 200})
	content := NewView("content", Rect{0, 40, 320, 360}, body, decoration)
	content.Set("theme", "light")

	clock := NewText("clock", "tick 0", Rect{220, 360, 320, 380})

	ok := NewButton("ok", "OK", Rect{20, 400, 150, 440})
	ok.AXLabel = "Confirm"
	cancel := NewButton("cancel", "Cancel", Rect{170, 400, 300, 440})
	cancel.AXLabel = "Dismiss"

	return NewWindow("Demo", Rect{0, 0, 320, 480}, title, content, clock, ok, cancel)
}

// Animate mutates the demo tree for tick n: the clock text changes every
// tick and a badge is added or removed every fifth tick. It must run on the
// owner goroutine.
func Animate(w *Window, n int) {
	if clock, ok := w.Find("clock").(*Text); ok {
		clock.SetText(fmt.Sprintf("tick %d", n))
	}
	if n%5 != 0 {
		return
	}
	content, ok := w.Find("content").(*View)
	if !ok {
		return
	}
	for i, c := range content.children {
		if c.AsView().ID == "badge" {
			content.RemoveChild(i)
			return
		}
	}
	content.AddChild(NewText("badge", fmt.Sprintf("badge %d", n), Rect{250, 0, 320, 20}))
}
