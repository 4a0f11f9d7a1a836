// Package registry maps host types to the descriptors that describe them.
package registry

import (
	"reflect"
	"sync"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
)

// Any is the key of the universal fallback descriptor.
var Any = reflect.TypeFor[any]()

// Registry resolves the most specific registered descriptor for a value.
//
// Resolution walks the value's ancestry: the dynamic type itself, the
// pointee of a pointer, the chain of embedded structs (first anonymous field,
// recursively), every registered interface the type implements in
// registration order, and finally Any.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[reflect.Type]descriptor.Descriptor
	interfaces  []reflect.Type
	resolved    map[reflect.Type]descriptor.Descriptor
	fanout      *fanout
}

// New creates a registry whose fallback is descriptor.Object.
func New() *Registry {
	r := &Registry{
		descriptors: make(map[reflect.Type]descriptor.Descriptor),
		resolved:    make(map[reflect.Type]descriptor.Descriptor),
		fanout:      &fanout{},
	}
	r.descriptors[Any] = &descriptor.Object{}
	return r
}

// Register binds d to t. Registering Any replaces the fallback.
// If a session is already active, d is told about it immediately.
func (r *Registry) Register(t reflect.Type, d descriptor.Descriptor) {
	r.mu.Lock()
	if _, exists := r.descriptors[t]; !exists && t.Kind() == reflect.Interface && t != Any {
		r.interfaces = append(r.interfaces, t)
	}
	r.descriptors[t] = d
	clear(r.resolved)
	active := r.fanout.active()
	r.mu.Unlock()

	if sa, ok := d.(descriptor.SessionAware); ok && active {
		sa.OnSessionStart(r.fanout)
	}
}

// Register binds d to the type parameter T.
func Register[T any](r *Registry, d descriptor.Descriptor) {
	r.Register(reflect.TypeFor[T](), d)
}

// Of returns the descriptor that resolves for T.
func Of[T any](r *Registry) descriptor.Descriptor {
	return r.Resolve(reflect.TypeFor[T]())
}

// For returns the descriptor for the dynamic type of obj.
func (r *Registry) For(obj any) descriptor.Descriptor {
	t := reflect.TypeOf(obj)
	if t == nil {
		t = Any
	}
	return r.Resolve(t)
}

// Resolve returns the most specific descriptor registered along t's ancestry.
// It never returns nil.
func (r *Registry) Resolve(t reflect.Type) descriptor.Descriptor {
	r.mu.RLock()
	d, ok := r.resolved[t]
	r.mu.RUnlock()
	if ok {
		return d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, anc := range r.ancestry(t) {
		if d, ok = r.descriptors[anc]; ok {
			break
		}
	}
	r.resolved[t] = d
	return d
}

// Ancestry returns t's resolution order.
func (r *Registry) Ancestry(t reflect.Type) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ancestry(t)
}

func (r *Registry) ancestry(t reflect.Type) []reflect.Type {
	var chain []reflect.Type
	seen := make(map[reflect.Type]bool)
	add := func(x reflect.Type) {
		if !seen[x] {
			seen[x] = true
			chain = append(chain, x)
		}
	}

	add(t)
	cur := t
	for {
		if cur.Kind() == reflect.Pointer {
			cur = cur.Elem()
			add(cur)
		}
		if cur.Kind() != reflect.Struct || cur.NumField() == 0 {
			break
		}
		f := cur.Field(0)
		if !f.Anonymous {
			break
		}
		cur = f.Type
		if cur.Kind() != reflect.Pointer {
			add(reflect.PointerTo(cur))
		}
		add(cur)
	}

	for _, iface := range r.interfaces {
		if t.Implements(iface) {
			add(iface)
		}
	}
	add(Any)
	return chain
}

// OnSessionStart registers n as an active controller. The first one causes
// every SessionAware descriptor to be attached.
func (r *Registry) OnSessionStart(n descriptor.Notifier) {
	r.mu.Lock()
	first := r.fanout.add(n)
	targets := r.sessionAware()
	r.mu.Unlock()

	if first {
		for _, sa := range targets {
			sa.OnSessionStart(r.fanout)
		}
	}
}

// OnSessionEnd removes n. When the last controller leaves, every
// SessionAware descriptor is detached.
func (r *Registry) OnSessionEnd(n descriptor.Notifier) {
	r.mu.Lock()
	last := r.fanout.remove(n)
	targets := r.sessionAware()
	r.mu.Unlock()

	if last {
		for _, sa := range targets {
			sa.OnSessionEnd()
		}
	}
}

func (r *Registry) sessionAware() []descriptor.SessionAware {
	seen := make(map[descriptor.SessionAware]bool)
	var out []descriptor.SessionAware
	for _, d := range r.descriptors {
		if sa, ok := d.(descriptor.SessionAware); ok && !seen[sa] {
			seen[sa] = true
			out = append(out, sa)
		}
	}
	return out
}
