package sample

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/registry"
)

// Register installs the sample descriptors on r.
func Register(r *registry.Registry) {
	view := &ViewDescriptor{}
	registry.Register[*View](r, view)
	registry.Register[Viewer](r, view)
	registry.Register[*Text](r, &TextDescriptor{ViewDescriptor: view})
	registry.Register[*Button](r, &ButtonDescriptor{ViewDescriptor: view})
	registry.Register[*Window](r, &WindowDescriptor{ViewDescriptor: view})
}

func asView(obj any) *View { return obj.(Viewer).AsView() }

// ViewDescriptor describes any Viewer.
type ViewDescriptor struct {
	descriptor.Base
}

func (d *ViewDescriptor) ChildCount(obj any) int { return len(asView(obj).children) }

func (d *ViewDescriptor) ChildAt(obj any, index int) any {
	kids := asView(obj).children
	if index < 0 || index >= len(kids) {
		return nil
	}
	return kids[index]
}

// axEntry is an AX child and its origin relative to the AX parent.
type axEntry struct {
	viewer Viewer
	dx, dy float64
}

// axEntries lifts the children of AX-hidden views into their parent.
func axEntries(v *View) []axEntry {
	var out []axEntry
	for _, c := range v.children {
		cv := c.AsView()
		if !cv.AXHidden {
			out = append(out, axEntry{viewer: c})
			continue
		}
		for _, e := range axEntries(cv) {
			out = append(out, axEntry{viewer: e.viewer, dx: e.dx + cv.Frame.Left, dy: e.dy + cv.Frame.Top})
		}
	}
	return out
}

func (d *ViewDescriptor) AXChildCount(obj any) int { return len(axEntries(asView(obj))) }

func (d *ViewDescriptor) AXChildAt(obj any, index int) any {
	entries := axEntries(asView(obj))
	if index < 0 || index >= len(entries) {
		return nil
	}
	return entries[index].viewer
}

func (d *ViewDescriptor) Data(obj any) (domain.Groups, error) {
	v := asView(obj)
	f := v.Frame
	frame := domain.Props{
		{Key: "left", Value: domain.Editable(domain.KindNumber, f.Left)},
		{Key: "top", Value: domain.Editable(domain.KindNumber, f.Top)},
		{Key: "right", Value: domain.Editable(domain.KindNumber, f.Right)},
		{Key: "bottom", Value: domain.Editable(domain.KindNumber, f.Bottom)},
	}
	props := domain.Props{
		{Key: "frame", Value: frame},
		{Key: "background", Value: domain.Editable(domain.KindColor, v.Background)},
		{Key: "highlighted", Value: domain.ReadOnly(domain.KindBoolean, v.highlighted)},
	}
	data := domain.Props{}
	for _, k := range slices.Sorted(maps.Keys(v.Data)) {
		data.Set(k, domain.Editable(kindOf(v.Data[k]), v.Data[k]))
	}
	return domain.Groups{
		{Name: "View", Props: props},
		{Name: "data", Props: data},
	}, nil
}

func (d *ViewDescriptor) AXData(obj any) (domain.Groups, error) {
	v := asView(obj)
	return domain.Groups{{Name: "Accessibility", Props: domain.Props{
		{Key: "label", Value: domain.Editable(domain.KindString, v.AXLabel)},
		{Key: "hidden", Value: domain.Editable(domain.KindBoolean, v.AXHidden)},
	}}}, nil
}

func (d *ViewDescriptor) SetValue(obj any, path []string, kind domain.ValueKind, value any) error {
	v := asView(obj)
	if err := setViewValue(v, path, kind, value); err != nil {
		return err
	}
	v.Changed()
	return nil
}

func setViewValue(v *View, path []string, kind domain.ValueKind, value any) error {
	switch {
	case len(path) == 2 && path[0] == "data":
		val, err := domain.Coerce(kind, value)
		if err != nil {
			return err
		}
		if v.Data == nil {
			v.Data = map[string]any{}
		}
		v.Data[path[1]] = val
	case len(path) == 2 && path[0] == "View" && path[1] == "background":
		s, err := coerceString(value)
		if err != nil {
			return err
		}
		v.Background = s
	case len(path) == 3 && path[0] == "View" && path[1] == "frame":
		n, err := domain.Coerce(domain.KindNumber, value)
		if err != nil {
			return err
		}
		f := n.(float64)
		switch path[2] {
		case "left":
			v.Frame.Left = f
		case "top":
			v.Frame.Top = f
		case "right":
			v.Frame.Right = f
		case "bottom":
			v.Frame.Bottom = f
		default:
			return fmt.Errorf("%w: %v", domain.ErrInvalidPath, path)
		}
	case len(path) == 2 && path[0] == "Accessibility" && path[1] == "label":
		s, err := coerceString(value)
		if err != nil {
			return err
		}
		v.AXLabel = s
	case len(path) == 2 && path[0] == "Accessibility" && path[1] == "hidden":
		b, err := domain.Coerce(domain.KindBoolean, value)
		if err != nil {
			return err
		}
		v.AXHidden = b.(bool)
	default:
		return fmt.Errorf("%w: %v", domain.ErrInvalidPath, path)
	}
	return nil
}

func (d *ViewDescriptor) Attributes(obj any) ([]domain.Attribute, error) {
	v := asView(obj)
	if v.ID == "" {
		return nil, nil
	}
	return []domain.Attribute{{Name: "id", Value: v.ID}}, nil
}

func (d *ViewDescriptor) SetHighlighted(obj any, selected, alignmentMode bool) {
	v := asView(obj)
	v.highlighted, v.alignment = selected, alignmentMode
}

// HitTest descends into the topmost child containing the touch.
func (d *ViewDescriptor) HitTest(obj any, touch descriptor.Touch) {
	kids := asView(obj).children
	for i := len(kids) - 1; i >= 0; i-- {
		f := kids[i].AsView().Frame
		if touch.ContainedIn(f.Left, f.Top, f.Right, f.Bottom) {
			touch.ContinueWithOffset(i, f.Left, f.Top)
			return
		}
	}
	touch.Finish()
}

func (d *ViewDescriptor) AXHitTest(obj any, touch descriptor.Touch) {
	entries := axEntries(asView(obj))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		f := e.viewer.AsView().Frame
		left, top := f.Left+e.dx, f.Top+e.dy
		if touch.ContainedIn(left, top, f.Right+e.dx, f.Bottom+e.dy) {
			touch.ContinueWithOffset(i, left, top)
			return
		}
	}
	touch.Finish()
}

func (d *ViewDescriptor) Decoration(obj any) string { return "view" }

func (d *ViewDescriptor) ExtraInfo(obj any) map[string]any {
	if asView(obj).AXHidden {
		return nil
	}
	return map[string]any{domain.ExtraLinkedAXNode: true}
}

// Init subscribes once per view to host changes.
func (d *ViewDescriptor) Init(obj any) {
	v := asView(obj)
	if v.observed {
		return
	}
	v.observed = true
	v.OnChange(func() {
		d.Invalidate(obj)
		d.InvalidateAX(obj)
	})
}

// TextDescriptor adds the text to the view properties.
type TextDescriptor struct {
	*ViewDescriptor
}

func (d *TextDescriptor) Data(obj any) (domain.Groups, error) {
	groups, err := d.ViewDescriptor.Data(obj)
	if err != nil {
		return nil, err
	}
	t := obj.(*Text)
	return append(groups, domain.Group{Name: "Text", Props: domain.Props{
		{Key: "text", Value: domain.Editable(domain.KindString, t.Text)},
	}}), nil
}

func (d *TextDescriptor) SetValue(obj any, path []string, kind domain.ValueKind, value any) error {
	if len(path) == 2 && path[0] == "Text" && path[1] == "text" {
		s, err := coerceString(value)
		if err != nil {
			return err
		}
		obj.(*Text).SetText(s)
		return nil
	}
	return d.ViewDescriptor.SetValue(obj, path, kind, value)
}

func (d *TextDescriptor) Attributes(obj any) ([]domain.Attribute, error) {
	attrs, _ := d.ViewDescriptor.Attributes(obj)
	return append(attrs, domain.Attribute{Name: "text", Value: obj.(*Text).Text}), nil
}

func (d *TextDescriptor) Decoration(obj any) string { return "text" }

// Matches also searches the displayed text.
func (d *TextDescriptor) Matches(query string, obj any) bool {
	if strings.Contains(strings.ToLower(obj.(*Text).Text), strings.ToLower(query)) {
		return true
	}
	return descriptor.DefaultMatches(d, query, obj)
}

// ButtonDescriptor adds title and state to the view properties.
type ButtonDescriptor struct {
	*ViewDescriptor
}

func (d *ButtonDescriptor) Data(obj any) (domain.Groups, error) {
	groups, err := d.ViewDescriptor.Data(obj)
	if err != nil {
		return nil, err
	}
	b := obj.(*Button)
	return append(groups, domain.Group{Name: "Button", Props: domain.Props{
		{Key: "title", Value: domain.Editable(domain.KindString, b.Title)},
		{Key: "enabled", Value: domain.Editable(domain.KindBoolean, b.Enabled)},
		{Key: "taps", Value: domain.ReadOnly(domain.KindNumber, b.Taps)},
	}}), nil
}

func (d *ButtonDescriptor) SetValue(obj any, path []string, kind domain.ValueKind, value any) error {
	b := obj.(*Button)
	if len(path) != 2 || path[0] != "Button" {
		return d.ViewDescriptor.SetValue(obj, path, kind, value)
	}
	switch path[1] {
	case "title":
		s, err := coerceString(value)
		if err != nil {
			return err
		}
		b.Title = s
	case "enabled":
		v, err := domain.Coerce(domain.KindBoolean, value)
		if err != nil {
			return err
		}
		b.Enabled = v.(bool)
	default:
		return fmt.Errorf("%w: %v", domain.ErrInvalidPath, path)
	}
	b.Changed()
	return nil
}

func (d *ButtonDescriptor) Decoration(obj any) string { return "button" }

// WindowDescriptor names the root after its title.
type WindowDescriptor struct {
	*ViewDescriptor
}

func (d *WindowDescriptor) Name(obj any) string {
	if t := obj.(*Window).Title; t != "" {
		return t
	}
	return "Window"
}

func (d *WindowDescriptor) Decoration(obj any) string { return "window" }

func coerceString(value any) (string, error) {
	s, err := domain.Coerce(domain.KindString, value)
	if err != nil {
		return "", err
	}
	return s.(string), nil
}

func kindOf(v any) domain.ValueKind {
	switch v.(type) {
	case nil:
		return domain.KindNull
	case string:
		return domain.KindString
	case bool:
		return domain.KindBoolean
	case int, int64, float64:
		return domain.KindNumber
	case map[string]any, domain.Props:
		return domain.KindObject
	case []any:
		return domain.KindArray
	}
	return domain.KindString
}
