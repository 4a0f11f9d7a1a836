package descriptor

import "github.com/facebook/flipper-sub000/pkg/domain"

// Descriptor describes every object of one host type.
// Methods are only ever called on the session's owner goroutine.
type Descriptor interface {
	// ID returns an id that is stable for obj's lifetime.
	ID(obj any) string
	Name(obj any) string
	ChildCount(obj any) int
	// ChildAt returns the child at index, or nil if it is missing.
	ChildAt(obj any, index int) any
	Data(obj any) (domain.Groups, error)
	// SetValue applies a mutation addressed by path into the structure
	// returned by Data. kind disambiguates the wire encoding of value.
	SetValue(obj any, path []string, kind domain.ValueKind, value any) error
	Attributes(obj any) ([]domain.Attribute, error)
	SetHighlighted(obj any, selected, alignmentMode bool)
	// HitTest must call exactly one of touch.Finish or touch.ContinueWithOffset.
	HitTest(obj any, touch Touch)
	Decoration(obj any) string
	ExtraInfo(obj any) map[string]any
	// Init is called once when obj becomes tracked.
	Init(obj any)
}

// AXChildren overrides child enumeration on the AX axis.
type AXChildren interface {
	AXChildCount(obj any) int
	AXChildAt(obj any, index int) any
}

// AXDataProvider overrides Data on the AX axis.
type AXDataProvider interface {
	AXData(obj any) (domain.Groups, error)
}

// AXAttributesProvider overrides Attributes on the AX axis.
type AXAttributesProvider interface {
	AXAttributes(obj any) ([]domain.Attribute, error)
}

// AXHitTester overrides HitTest on the AX axis.
type AXHitTester interface {
	AXHitTest(obj any, touch Touch)
}

// AXDecorator overrides Decoration on the AX axis.
type AXDecorator interface {
	AXDecoration(obj any) string
}

// Matcher overrides the default search predicate.
type Matcher interface {
	Matches(query string, obj any) bool
}

// Notifier receives invalidation pushes from descriptors.
type Notifier interface {
	Invalidate(obj any)
	InvalidateAX(obj any)
}

// SessionAware descriptors are told when a controller connects and leaves.
type SessionAware interface {
	OnSessionStart(n Notifier)
	OnSessionEnd()
}
