package registry_test

import (
	"reflect"
	"testing"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct{ id int }

func (n *node) Kind() string { return "node" }

type panel struct {
	node
	title string
}

type button struct {
	*panel
	label string
}

type kinded interface{ Kind() string }

type named struct {
	descriptor.Base
	name string
}

func (d *named) Name(obj any) string { return d.name }

type notifier struct{ calls int }

func (n *notifier) Invalidate(obj any)   { n.calls++ }
func (n *notifier) InvalidateAX(obj any) { n.calls++ }

func TestRegistry_Fallback(t *testing.T) {
	r := registry.New()

	d := r.For(42)
	require.NotNil(t, d)
	assert.IsType(t, &descriptor.Object{}, d)
	assert.IsType(t, &descriptor.Object{}, r.For(nil))
}

func TestRegistry_MostSpecificWins(t *testing.T) {
	r := registry.New()
	nodeDesc := &named{name: "node"}
	panelDesc := &named{name: "panel"}
	registry.Register[*node](r, nodeDesc)

	assert.Same(t, nodeDesc, r.For(&panel{}), "embedded ancestor resolves")
	assert.Same(t, nodeDesc, r.For(&button{panel: &panel{}}))

	registry.Register[*panel](r, panelDesc)
	assert.Same(t, panelDesc, r.For(&panel{}), "cache must reset on register")
	assert.Same(t, panelDesc, r.For(&button{panel: &panel{}}))
	assert.Same(t, nodeDesc, r.For(&node{}))
}

func TestRegistry_Interfaces(t *testing.T) {
	r := registry.New()
	ifaceDesc := &named{name: "kinded"}
	registry.Register[kinded](r, ifaceDesc)

	assert.Same(t, ifaceDesc, r.For(&panel{}))
	assert.Same(t, ifaceDesc, registry.Of[*button](r))
	assert.IsType(t, &descriptor.Object{}, r.For(panel{}), "value type has no Kind method")
}

func TestRegistry_Ancestry(t *testing.T) {
	r := registry.New()
	registry.Register[kinded](r, &named{})

	got := r.Ancestry(reflect.TypeFor[*button]())
	want := []reflect.Type{
		reflect.TypeFor[*button](),
		reflect.TypeFor[button](),
		reflect.TypeFor[*panel](),
		reflect.TypeFor[panel](),
		reflect.TypeFor[*node](),
		reflect.TypeFor[node](),
		reflect.TypeFor[kinded](),
		registry.Any,
	}
	assert.Equal(t, want, got)
}

func TestRegistry_ReplaceFallback(t *testing.T) {
	r := registry.New()
	custom := &named{name: "custom"}
	r.Register(registry.Any, custom)

	assert.Same(t, custom, r.For("text"))
}

func TestRegistry_SessionBroadcast(t *testing.T) {
	r := registry.New()
	early := &named{name: "early"}
	registry.Register[*node](r, early)

	first, second := &notifier{}, &notifier{}
	r.OnSessionStart(first)
	r.OnSessionStart(second)
	assert.True(t, early.Connected())

	late := &named{name: "late"}
	registry.Register[*panel](r, late)
	assert.True(t, late.Connected(), "late registration joins the active session")

	early.Invalidate(&node{})
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	r.OnSessionEnd(first)
	assert.True(t, early.Connected(), "still one controller attached")

	r.OnSessionEnd(second)
	assert.False(t, early.Connected())
	assert.False(t, late.Connected())
}
