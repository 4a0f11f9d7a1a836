package runtime_test

import (
	"errors"
	"slices"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/registry"
)

// box is a minimal host object: a named rectangle relative to its parent.
type box struct {
	name                     string
	left, top, right, bottom float64
	kids                     []*box
	axHidden                 bool
	data                     map[string]any
	inits                    int
}

func newBox(name string, l, t, r, b float64, kids ...*box) *box {
	return &box{name: name, left: l, top: t, right: r, bottom: b, kids: kids, data: map[string]any{}}
}

type boxDescriptor struct {
	descriptor.Base
}

func (d *boxDescriptor) Name(obj any) string { return obj.(*box).name }

func (d *boxDescriptor) ChildCount(obj any) int { return len(obj.(*box).kids) }

func (d *boxDescriptor) ChildAt(obj any, i int) any {
	kids := obj.(*box).kids
	if i < 0 || i >= len(kids) {
		return nil
	}
	return kids[i]
}

func (d *boxDescriptor) AXChildCount(obj any) int { return len(axKids(obj.(*box))) }

func (d *boxDescriptor) AXChildAt(obj any, i int) any { return axKids(obj.(*box))[i] }

func axKids(b *box) []*box {
	return slices.DeleteFunc(slices.Clone(b.kids), func(k *box) bool { return k.axHidden })
}

func (d *boxDescriptor) Data(obj any) (domain.Groups, error) {
	b := obj.(*box)
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	props := domain.Props{}
	for _, k := range keys {
		props.Set(k, domain.Editable(domain.KindAuto, b.data[k]))
	}
	return domain.Groups{{Name: "data", Props: props}}, nil
}

func (d *boxDescriptor) SetValue(obj any, path []string, kind domain.ValueKind, value any) error {
	if len(path) != 2 || path[0] != "data" {
		return domain.ErrInvalidPath
	}
	v, err := domain.Coerce(kind, value)
	if err != nil {
		return err
	}
	obj.(*box).data[path[1]] = v
	d.Invalidate(obj)
	return nil
}

func (d *boxDescriptor) Attributes(obj any) ([]domain.Attribute, error) {
	return []domain.Attribute{{Name: "id", Value: obj.(*box).name}}, nil
}

func (d *boxDescriptor) HitTest(obj any, touch descriptor.Touch) {
	kids := obj.(*box).kids
	for i := len(kids) - 1; i >= 0; i-- {
		k := kids[i]
		if touch.ContainedIn(k.left, k.top, k.right, k.bottom) {
			touch.ContinueWithOffset(i, k.left, k.top)
			return
		}
	}
	touch.Finish()
}

func (d *boxDescriptor) ExtraInfo(obj any) map[string]any {
	return map[string]any{domain.ExtraLinkedAXNode: true}
}

func (d *boxDescriptor) Init(obj any) { obj.(*box).inits++ }

// brokenBox fails in different places depending on its mode.
type brokenBox struct {
	mode string
	kids []*box
}

type brokenDescriptor struct {
	descriptor.Base
}

func (d *brokenDescriptor) ChildCount(obj any) int {
	b := obj.(*brokenBox)
	if b.mode == "missing" {
		return len(b.kids) + 1
	}
	return len(b.kids)
}

func (d *brokenDescriptor) ChildAt(obj any, i int) any {
	kids := obj.(*brokenBox).kids
	if i >= len(kids) {
		return nil
	}
	return kids[i]
}

func (d *brokenDescriptor) Data(obj any) (domain.Groups, error) {
	panic("data exploded")
}

func (d *brokenDescriptor) Attributes(obj any) ([]domain.Attribute, error) {
	return nil, errors.New("attributes unavailable")
}

func (d *brokenDescriptor) HitTest(obj any, touch descriptor.Touch) {
	switch obj.(*brokenBox).mode {
	case "both":
		touch.Finish()
		touch.ContinueWithOffset(0, 0, 0)
	case "neither":
	default:
		touch.Finish()
	}
}

type notifications struct {
	main, ax []any
}

func (n *notifications) Invalidate(obj any)   { n.main = append(n.main, obj) }
func (n *notifications) InvalidateAX(obj any) { n.ax = append(n.ax, obj) }

func newRegistry() *registry.Registry {
	r := registry.New()
	registry.Register[*box](r, &boxDescriptor{})
	registry.Register[*brokenBox](r, &brokenDescriptor{})
	return r
}
