package tracker

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// identityKey includes the type so an outer struct and its first embedded
// field, which share an address, get distinct ids.
type identityKey struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

var identities = struct {
	sync.Mutex
	ids  map[identityKey]string
	next uint64
}{ids: make(map[identityKey]string)}

// Identity returns a process-unique id for obj that is stable for obj's
// lifetime. Pointer objects get "<Type>#<n>"; the mapping is dropped when the
// object is collected, and the number is never reused. Values without pointer
// identity are described by their type and printed value.
func Identity(obj any) string {
	p, typ, ok := pointerOf(obj)
	if !ok {
		return fmt.Sprintf("%s(%v)", typeName(reflect.TypeOf(obj)), obj)
	}
	key := identityKey{typ: typ, ptr: weak.Make((*byte)(p))}

	identities.Lock()
	defer identities.Unlock()
	if id, ok := identities.ids[key]; ok {
		return id
	}
	identities.next++
	id := fmt.Sprintf("%s#%d", typeName(typ), identities.next)
	identities.ids[key] = id
	runtime.AddCleanup((*byte)(p), forgetIdentity, key)
	return id
}

func forgetIdentity(key identityKey) {
	identities.Lock()
	delete(identities.ids, key)
	identities.Unlock()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
