// Package tracker maps string ids to weakly held host objects.
//
// A Tracker never keeps an object alive. Entries whose object was collected
// (or reports Disposed) are evicted lazily, on the next lookup of their id.
// A Tracker is owned by a single goroutine (the session's owner context) and
// does no locking of its own.
package tracker

type entry struct {
	ref ref
	gen uint64
}

// Tracker is the id -> object table of one session.
type Tracker struct {
	entries map[string]*entry
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Put binds id to obj. Rebinding an id to a different object bumps the
// entry's generation; rebinding it to the same object is a no-op.
func (t *Tracker) Put(id string, obj any) {
	if e, ok := t.entries[id]; ok {
		if e.ref.same(obj) {
			return
		}
		e.ref = makeRef(obj)
		e.gen++
		return
	}
	t.entries[id] = &entry{ref: makeRef(obj), gen: 1}
}

// Get returns the object bound to id if it is still alive. A dead entry is
// removed.
func (t *Tracker) Get(id string) (any, bool) {
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	obj, alive := e.ref.value()
	if alive {
		if d, ok := obj.(Disposable); ok && d.Disposed() {
			alive = false
		}
	}
	if !alive {
		delete(t.entries, id)
		return nil, false
	}
	return obj, true
}

// Holds reports whether id is currently bound to obj itself.
func (t *Tracker) Holds(id string, obj any) bool {
	e, ok := t.entries[id]
	if !ok || !e.ref.same(obj) {
		return false
	}
	_, alive := t.Get(id)
	return alive
}

// Generation returns how many distinct objects have been bound to id, or 0
// if id is not present.
func (t *Tracker) Generation(id string) uint64 {
	if e, ok := t.entries[id]; ok {
		return e.gen
	}
	return 0
}

// IDs returns the ids currently present, including entries not yet evicted.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of entries, including entries not yet evicted.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Clear drops every entry.
func (t *Tracker) Clear() {
	clear(t.entries)
}
