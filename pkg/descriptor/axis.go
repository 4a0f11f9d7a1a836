package descriptor

import (
	"strings"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// ChildCount dispatches to the axis-appropriate child count.
func ChildCount(d Descriptor, obj any, axis domain.Axis) int {
	if ax, ok := d.(AXChildren); ok && axis == domain.AxisAX {
		return ax.AXChildCount(obj)
	}
	return d.ChildCount(obj)
}

// ChildAt dispatches to the axis-appropriate child accessor.
func ChildAt(d Descriptor, obj any, index int, axis domain.Axis) any {
	if ax, ok := d.(AXChildren); ok && axis == domain.AxisAX {
		return ax.AXChildAt(obj, index)
	}
	return d.ChildAt(obj, index)
}

func Data(d Descriptor, obj any, axis domain.Axis) (domain.Groups, error) {
	if ax, ok := d.(AXDataProvider); ok && axis == domain.AxisAX {
		return ax.AXData(obj)
	}
	return d.Data(obj)
}

func Attributes(d Descriptor, obj any, axis domain.Axis) ([]domain.Attribute, error) {
	if ax, ok := d.(AXAttributesProvider); ok && axis == domain.AxisAX {
		return ax.AXAttributes(obj)
	}
	return d.Attributes(obj)
}

func HitTest(d Descriptor, obj any, touch Touch, axis domain.Axis) {
	if ax, ok := d.(AXHitTester); ok && axis == domain.AxisAX {
		ax.AXHitTest(obj, touch)
		return
	}
	d.HitTest(obj, touch)
}

func Decoration(d Descriptor, obj any, axis domain.Axis) string {
	if ax, ok := d.(AXDecorator); ok && axis == domain.AxisAX {
		return ax.AXDecoration(obj)
	}
	return d.Decoration(obj)
}

// Matches evaluates the search predicate for obj.
func Matches(d Descriptor, query string, obj any) bool {
	if m, ok := d.(Matcher); ok {
		return m.Matches(query, obj)
	}
	return DefaultMatches(d, query, obj)
}

// DefaultMatches is a case-folded substring match against the object's name
// and any attribute named "id".
func DefaultMatches(d Descriptor, query string, obj any) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(d.Name(obj)), q) {
		return true
	}
	attrs, err := d.Attributes(obj)
	if err != nil {
		return false
	}
	for _, a := range attrs {
		if strings.EqualFold(a.Name, "id") && strings.Contains(strings.ToLower(a.Value), q) {
			return true
		}
	}
	return false
}
