package registry

import (
	"slices"
	"sync"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
)

// fanout forwards descriptor pushes to every connected controller.
type fanout struct {
	mu        sync.RWMutex
	notifiers []descriptor.Notifier
}

func (f *fanout) active() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.notifiers) > 0
}

func (f *fanout) add(n descriptor.Notifier) (first bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slices.Contains(f.notifiers, n) {
		return false
	}
	f.notifiers = append(f.notifiers, n)
	return len(f.notifiers) == 1
}

func (f *fanout) remove(n descriptor.Notifier) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.Index(f.notifiers, n)
	if i < 0 {
		return false
	}
	f.notifiers = slices.Delete(f.notifiers, i, i+1)
	return len(f.notifiers) == 0
}

func (f *fanout) snapshot() []descriptor.Notifier {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.notifiers)
}

func (f *fanout) Invalidate(obj any) {
	for _, n := range f.snapshot() {
		n.Invalidate(obj)
	}
}

func (f *fanout) InvalidateAX(obj any) {
	for _, n := range f.snapshot() {
		n.InvalidateAX(obj)
	}
}
