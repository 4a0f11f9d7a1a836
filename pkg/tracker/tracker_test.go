package tracker_test

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/facebook/flipper-sub000/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	name     string
	children []*widget
	disposed bool
}

func (w *widget) Disposed() bool { return w.disposed }

func TestTracker_PutGet(t *testing.T) {
	tr := tracker.New()
	w := &widget{name: "root"}

	tr.Put("root", w)

	got, ok := tr.Get("root")
	require.True(t, ok)
	assert.Same(t, w, got)
	assert.True(t, tr.Holds("root", w))
	assert.False(t, tr.Holds("root", &widget{name: "root"}))
}

func TestTracker_UnknownID(t *testing.T) {
	tr := tracker.New()
	_, ok := tr.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, uint64(0), tr.Generation("missing"))
}

func TestTracker_LazyEviction(t *testing.T) {
	tr := tracker.New()
	func() {
		w := &widget{name: "ephemeral", children: []*widget{{name: "child"}}}
		tr.Put("ephemeral", w)
	}()
	require.Equal(t, 1, tr.Len(), "eviction must not happen before lookup")

	require.Eventually(t, func() bool {
		runtime.GC()
		_, ok := tr.Get("ephemeral")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, tr.Len(), "stale entry must be removed on lookup")
}

func TestTracker_DoesNotRetain(t *testing.T) {
	tr := tracker.New()
	collected := make(chan struct{})
	func() {
		w := &widget{name: "watched", children: []*widget{}}
		runtime.AddCleanup(w, func(ch chan struct{}) { close(ch) }, collected)
		tr.Put("watched", w)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-collected:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTracker_Disposed(t *testing.T) {
	tr := tracker.New()
	w := &widget{name: "view"}
	tr.Put("view", w)

	w.disposed = true

	_, ok := tr.Get("view")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_Rebind(t *testing.T) {
	tr := tracker.New()
	first := &widget{name: "a"}
	second := &widget{name: "b"}

	tr.Put("slot", first)
	tr.Put("slot", first)
	assert.Equal(t, uint64(1), tr.Generation("slot"), "same object must not bump generation")

	tr.Put("slot", second)
	assert.Equal(t, uint64(2), tr.Generation("slot"))

	got, ok := tr.Get("slot")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestTracker_Values(t *testing.T) {
	tr := tracker.New()
	tr.Put("answer", 42)

	got, ok := tr.Get("answer")
	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.True(t, tr.Holds("answer", 42))
	assert.False(t, tr.Holds("answer", 43))
}

func TestTracker_NonComparableValues(t *testing.T) {
	type row struct {
		Cells []string
		Meta  any
	}
	tr := tracker.New()
	tr.Put("row", row{Cells: []string{"a", "b"}, Meta: []int{1}})

	assert.True(t, tr.Holds("row", row{Cells: []string{"a", "b"}, Meta: []int{1}}))
	assert.False(t, tr.Holds("row", row{Cells: []string{"a"}, Meta: []int{1}}))

	tr.Put("row", row{Cells: []string{"a", "b"}, Meta: []int{1}})
	assert.Equal(t, uint64(1), tr.Generation("row"), "an equal value is not a rebind")

	tr.Put("row", row{Cells: []string{"c"}})
	assert.Equal(t, uint64(2), tr.Generation("row"))
}

func TestTracker_Clear(t *testing.T) {
	tr := tracker.New()
	w := &widget{}
	tr.Put("a", w)
	tr.Put("b", w)

	tr.Clear()

	assert.Equal(t, 0, tr.Len())
	_, ok := tr.Get("a")
	assert.False(t, ok)
}

func TestIdentity(t *testing.T) {
	a := &widget{name: "a"}
	b := &widget{name: "b"}

	idA := tracker.Identity(a)
	assert.Equal(t, idA, tracker.Identity(a), "identity must be stable")
	assert.NotEqual(t, idA, tracker.Identity(b))
	assert.True(t, strings.HasPrefix(idA, "widget#"), idA)

	assert.Equal(t, "int(7)", tracker.Identity(7))
}
