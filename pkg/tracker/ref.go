package tracker

import (
	"reflect"
	"unsafe"
	"weak"
)

// Disposable is implemented by host objects that can report they were torn
// down before being garbage collected. A disposed object is treated as gone.
type Disposable interface {
	Disposed() bool
}

// ref is a handle on a tracked object.
type ref interface {
	value() (any, bool)
	same(obj any) bool
}

// weakRef holds a pointer-shaped object without keeping it reachable.
type weakRef struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

func (r weakRef) value() (any, bool) {
	p := r.ptr.Value()
	if p == nil {
		return nil, false
	}
	return reflect.NewAt(r.typ.Elem(), unsafe.Pointer(p)).Interface(), true
}

func (r weakRef) same(obj any) bool {
	p, typ, ok := pointerOf(obj)
	return ok && typ == r.typ && weak.Make((*byte)(p)) == r.ptr
}

// strongRef holds values that have no pointer identity (structs by value,
// strings, maps). They stay reachable until the entry is replaced or cleared.
type strongRef struct {
	obj any
}

func (r strongRef) value() (any, bool) { return r.obj, true }

func (r strongRef) same(obj any) bool { return sameValue(r.obj, obj) }

func makeRef(obj any) ref {
	if p, typ, ok := pointerOf(obj); ok {
		return weakRef{typ: typ, ptr: weak.Make((*byte)(p))}
	}
	return strongRef{obj: obj}
}

// pointerOf returns the address held by obj when obj is a non-nil pointer to
// a sized type.
func pointerOf(obj any) (unsafe.Pointer, reflect.Type, bool) {
	if obj == nil {
		return nil, nil, false
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Type().Elem().Size() == 0 {
		return nil, nil, false
	}
	return v.UnsafePointer(), v.Type(), true
}

// sameValue compares values without pointer identity. Maps, slices and funcs
// are the same only when they share storage; other values compare by
// contents, deeply when == would panic.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
