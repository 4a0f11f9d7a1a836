// Package sample is a small retained widget tree and its descriptors. It is
// the object graph served by the inspector demo and exercised by tests.
//
// Widgets are not safe for concurrent use; mutate them on the owner goroutine.
package sample

import (
	"maps"
	"slices"
)

// Rect is a frame in the coordinate space of the parent.
type Rect struct {
	Left, Top, Right, Bottom float64
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Viewer is implemented by every widget through the embedded View.
type Viewer interface {
	AsView() *View
}

// View is the base widget: a frame with children and free-form data.
type View struct {
	ID         string
	Frame      Rect
	Background string
	AXLabel    string
	AXHidden   bool
	Data       map[string]any

	children    []Viewer
	listeners   map[int]func()
	nextID      int
	highlighted bool
	alignment   bool
	observed    bool
	disposed    bool
}

// NewView creates a view with the given resource id and frame.
func NewView(id string, frame Rect, children ...Viewer) *View {
	return &View{ID: id, Frame: frame, Background: "#ffffff", Data: map[string]any{}, children: children}
}

func (v *View) AsView() *View { return v }

// Children returns a copy of the child list.
func (v *View) Children() []Viewer { return slices.Clone(v.children) }

// AddChild appends c on top of the existing children.
func (v *View) AddChild(c Viewer) {
	v.children = append(v.children, c)
	v.Changed()
}

// RemoveChild detaches the child at index and marks it disposed.
func (v *View) RemoveChild(index int) {
	if index < 0 || index >= len(v.children) {
		return
	}
	v.children[index].AsView().dispose()
	v.children = slices.Delete(v.children, index, index+1)
	v.Changed()
}

// Set stores a data entry.
func (v *View) Set(key string, value any) {
	if v.Data == nil {
		v.Data = map[string]any{}
	}
	v.Data[key] = value
	v.Changed()
}

// OnChange registers fn to run after every mutation. The returned func
// unregisters it.
func (v *View) OnChange(fn func()) (cancel func()) {
	if v.listeners == nil {
		v.listeners = make(map[int]func())
	}
	v.nextID++
	id := v.nextID
	v.listeners[id] = fn
	return func() { delete(v.listeners, id) }
}

// Changed notifies listeners.
func (v *View) Changed() {
	for _, id := range slices.Sorted(maps.Keys(v.listeners)) {
		v.listeners[id]()
	}
}

// Highlighted reports the inspector selection marker.
func (v *View) Highlighted() (selected, alignmentMode bool) {
	return v.highlighted, v.alignment
}

// Disposed implements tracker.Disposable.
func (v *View) Disposed() bool { return v.disposed }

func (v *View) dispose() {
	v.disposed = true
	for _, c := range v.children {
		c.AsView().dispose()
	}
}

// Text is a view that displays a string.
type Text struct {
	View
	Text string
}

func NewText(id, text string, frame Rect) *Text {
	return &Text{View: *NewView(id, frame), Text: text}
}

// SetText replaces the text and notifies listeners.
func (t *Text) SetText(s string) {
	t.Text = s
	t.Changed()
}

// Button is a tappable view.
type Button struct {
	View
	Title   string
	Enabled bool
	Taps    int
}

func NewButton(id, title string, frame Rect) *Button {
	return &Button{View: *NewView(id, frame), Title: title, Enabled: true}
}

// Tap records a tap if the button is enabled.
func (b *Button) Tap() {
	if !b.Enabled {
		return
	}
	b.Taps++
	b.Changed()
}
