package descriptor

import (
	"reflect"
	"sync/atomic"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/tracker"
)

type notifierBox struct{ n Notifier }

// Base implements Descriptor with neutral defaults and SessionAware.
// Embed it by value in a descriptor struct and use the descriptor by pointer.
type Base struct {
	notifier atomic.Pointer[notifierBox]
}

func (b *Base) ID(obj any) string { return tracker.Identity(obj) }

func (b *Base) Name(obj any) string {
	t := reflect.TypeOf(obj)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func (b *Base) ChildCount(obj any) int { return 0 }

func (b *Base) ChildAt(obj any, index int) any { return nil }

func (b *Base) Data(obj any) (domain.Groups, error) { return nil, nil }

func (b *Base) SetValue(obj any, path []string, kind domain.ValueKind, value any) error {
	return domain.ErrNotMutable
}

func (b *Base) Attributes(obj any) ([]domain.Attribute, error) { return nil, nil }

func (b *Base) SetHighlighted(obj any, selected, alignmentMode bool) {}

func (b *Base) HitTest(obj any, touch Touch) { touch.Finish() }

func (b *Base) Decoration(obj any) string { return "" }

func (b *Base) ExtraInfo(obj any) map[string]any { return nil }

func (b *Base) Init(obj any) {}

func (b *Base) OnSessionStart(n Notifier) { b.notifier.Store(&notifierBox{n: n}) }

func (b *Base) OnSessionEnd() { b.notifier.Store(nil) }

// Connected reports whether a controller is attached.
func (b *Base) Connected() bool { return b.notifier.Load() != nil }

// Invalidate asks the controller to re-query obj on the main axis.
// It is a no-op while no controller is attached.
func (b *Base) Invalidate(obj any) {
	if box := b.notifier.Load(); box != nil {
		box.n.Invalidate(obj)
	}
}

// InvalidateAX asks the controller to re-query obj on the AX axis.
func (b *Base) InvalidateAX(obj any) {
	if box := b.notifier.Load(); box != nil {
		box.n.InvalidateAX(obj)
	}
}

var (
	_ Descriptor   = (*Base)(nil)
	_ SessionAware = (*Base)(nil)
)
