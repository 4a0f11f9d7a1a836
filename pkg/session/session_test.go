package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebook/flipper-sub000/pkg/adapters/memory"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/owner"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/sample"
	"github.com/facebook/flipper-sub000/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t       *testing.T
	ctx     context.Context
	loop    *owner.Loop
	window  *sample.Window
	reg     *registry.Registry
	session *session.Session
	conn    *memory.Connection
}

func setup(t *testing.T, opts ...session.Option) *fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	loop := owner.NewLoop()
	t.Cleanup(loop.Stop)

	reg := registry.New()
	sample.Register(reg)
	w := sample.NewDemo()

	opts = append([]session.Option{session.WithOverlay(w)}, opts...)
	s := session.New(w, reg, loop, opts...)
	conn := memory.NewConnection()
	require.NoError(t, s.Connect(ctx, conn))

	return &fixture{t: t, ctx: ctx, loop: loop, window: w, reg: reg, session: s, conn: conn}
}

func (f *fixture) call(method string, params any) json.RawMessage {
	f.t.Helper()
	raw, err := f.conn.Call(f.ctx, method, params)
	require.NoError(f.t, err, method)
	return raw
}

func (f *fixture) callErr(method string, params any) domain.ErrorResponse {
	f.t.Helper()
	_, err := f.conn.Call(f.ctx, method, params)
	var resp domain.ErrorResponse
	require.True(f.t, errors.As(err, &resp), "expected error response from %s, got %v", method, err)
	return resp
}

// idOf walks the whole tree and returns the node id of the widget with the
// given resource id.
func (f *fixture) idOf(resourceID string) string {
	f.t.Helper()
	var res struct {
		Elements []domain.Node `json:"elements"`
	}
	require.NoError(f.t, json.Unmarshal(f.call(domain.MethodGetAllNodes, nil), &res))
	for _, n := range res.Elements {
		for _, a := range n.Attributes {
			if a.Name == "id" && a.Value == resourceID {
				return n.ID
			}
		}
	}
	f.t.Fatalf("no node with resource id %q", resourceID)
	return ""
}

func (f *fixture) nextEvent() (string, json.RawMessage) {
	f.t.Helper()
	method, params, err := f.conn.NextEvent(f.ctx)
	require.NoError(f.t, err)
	return method, params
}

func (f *fixture) noEvent() {
	f.t.Helper()
	select {
	case ev := <-f.conn.Events():
		f.t.Fatalf("unexpected event %s %s", ev.Method, ev.Params)
	case <-time.After(30 * time.Millisecond):
	}
}

// onLoop runs fn on the owner goroutine.
func (f *fixture) onLoop(fn func()) {
	f.t.Helper()
	require.NoError(f.t, owner.Call(f.ctx, f.loop, func() error {
		fn()
		return nil
	}))
}

func TestSession_GetRoot(t *testing.T) {
	f := setup(t)

	var root domain.Node
	require.NoError(t, json.Unmarshal(f.call(domain.MethodGetRoot, nil), &root))

	assert.Equal(t, "Demo", root.Name)
	assert.Len(t, root.Children, 5)
	_, ok := root.Data.Get("View")
	assert.True(t, ok)
}

func TestSession_GetNodes(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")

	var res struct {
		Elements []domain.Node `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(f.call(domain.MethodGetNodes, map[string]any{"ids": []string{okID}}), &res))
	require.Len(t, res.Elements, 1)
	assert.Equal(t, "Button", res.Elements[0].Name)

	resp := f.callErr(domain.MethodGetNodes, map[string]any{"ids": []string{okID, "ghost"}})
	assert.Equal(t, "UnknownID", resp.Name)
	assert.Equal(t, "ghost", resp.ID)
}

func TestSession_InvalidParams(t *testing.T) {
	f := setup(t)

	resp := f.callErr(domain.MethodGetNodes, map[string]any{"ids": "not-a-list"})
	assert.Equal(t, "InvalidParams", resp.Name)
}

func TestSession_GetAXNodes(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")
	cancelID := f.idOf("cancel")

	var res struct {
		Elements []domain.Node `json:"elements"`
	}
	raw := f.call(domain.MethodGetAXNodes, map[string]any{
		"ids":                   []string{okID, "ghost", cancelID},
		"forAccessibilityEvent": true,
		"selected":              cancelID,
	})
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.Elements, 1)
	assert.Equal(t, cancelID, res.Elements[0].ID)
	_, ok := res.Elements[0].Data.Get("Accessibility")
	assert.True(t, ok)

	resp := f.callErr(domain.MethodGetAXNodes, map[string]any{"ids": []string{okID, "ghost"}})
	assert.Equal(t, "ghost", resp.ID)

	// Typed requests travel under their json names and decode back.
	raw = f.call(domain.MethodGetAXNodes, domain.GetAXNodesRequest{
		IDs:                   []string{okID, cancelID},
		ForAccessibilityEvent: true,
		Selected:              okID,
	})
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.Elements, 1)
	assert.Equal(t, okID, res.Elements[0].ID)
}

func TestSession_SetDataPushesInvalidate(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")

	f.call(domain.MethodSetData, map[string]any{
		"id":    okID,
		"path":  []string{"data", "prop"},
		"value": "updated_value",
	})

	method, params := f.nextEvent()
	assert.Equal(t, domain.EventInvalidate, method)
	assert.JSONEq(t, `{"nodes":[{"id":"`+okID+`"}]}`, string(params))

	method, _ = f.nextEvent()
	assert.Equal(t, domain.EventInvalidateAX, method)
	f.noEvent()

	f.onLoop(func() {
		assert.Equal(t, "updated_value", f.window.Find("ok").AsView().Data["prop"])
	})
}

func TestSession_SetDataEnvelopeAndAX(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")

	raw := f.call(domain.MethodSetData, map[string]any{
		"id":    okID,
		"ax":    true,
		"path":  []string{"Accessibility", "label"},
		"value": map[string]any{"kind": "string", "data": "Accept"},
	})
	var node domain.Node
	require.NoError(t, json.Unmarshal(raw, &node))
	assert.Equal(t, okID, node.ID)

	label, ok := node.Data.Lookup([]string{"Accessibility", "label"})
	require.True(t, ok)
	props, ok := label.(domain.Props)
	require.True(t, ok, "wire values decode as property maps")
	v, _ := props.Get("value")
	assert.Equal(t, "Accept", v)
}

func TestSession_SetDataErrors(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")

	resp := f.callErr(domain.MethodSetData, map[string]any{"id": okID, "path": []string{"nope"}, "value": 1})
	assert.Equal(t, "InvalidMutation", resp.Name)
	assert.Equal(t, okID, resp.ID)

	resp = f.callErr(domain.MethodSetData, map[string]any{"id": "ghost", "path": []string{"data", "x"}, "value": 1})
	assert.Equal(t, "UnknownID", resp.Name)
}

func TestSession_SetHighlighted(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")
	cancelID := f.idOf("cancel")

	highlighted := func(id string) bool {
		var sel bool
		f.onLoop(func() { sel, _ = f.window.Find(id).AsView().Highlighted() })
		return sel
	}

	f.call(domain.MethodSetHighlighted, map[string]any{"id": okID, "isAlignmentMode": false})
	assert.True(t, highlighted("ok"))

	f.call(domain.MethodSetHighlighted, map[string]any{"id": cancelID})
	assert.False(t, highlighted("ok"), "previous highlight must be cleared")
	assert.True(t, highlighted("cancel"))

	f.call(domain.MethodSetHighlighted, map[string]any{"id": "ghost"})
	assert.False(t, highlighted("cancel"))

	f.call(domain.MethodSetHighlighted, map[string]any{"id": cancelID})
	f.call(domain.MethodSetHighlighted, map[string]any{"id": nil})
	assert.False(t, highlighted("cancel"))
}

func TestSession_SearchOverlaySelect(t *testing.T) {
	f := setup(t)

	var active domain.SearchActiveResponse
	require.NoError(t, json.Unmarshal(f.call(domain.MethodIsSearchActive, nil), &active))
	assert.False(t, active.IsSearchActive)

	f.call(domain.MethodSetSearchActive, map[string]any{"active": true})
	assert.True(t, f.window.OverlayActive())
	require.NoError(t, json.Unmarshal(f.call(domain.MethodIsSearchActive, nil), &active))
	assert.True(t, active.IsSearchActive)

	okID := f.idOf("ok")
	f.window.Tap(50, 420)

	method, params := f.nextEvent()
	assert.Equal(t, domain.EventSelect, method)
	var sel domain.SelectEvent
	require.NoError(t, json.Unmarshal(params, &sel))
	require.Len(t, sel.Path, 2)
	assert.Equal(t, okID, sel.Path[1])
	assert.Nil(t, sel.Tree)

	method, _ = f.nextEvent()
	assert.Equal(t, domain.EventSelectAX, method)

	f.call(domain.MethodSetSearchActive, map[string]any{"active": false})
	assert.False(t, f.window.OverlayActive())
}

func TestSession_TreeSelect(t *testing.T) {
	f := setup(t, session.WithTreeSelect(true))

	require.NoError(t, f.session.Tap(50, 420))
	method, params := f.nextEvent()
	require.Equal(t, domain.EventSelect, method)

	var sel domain.SelectEvent
	require.NoError(t, json.Unmarshal(params, &sel))
	require.Len(t, sel.Path, 2)
	child, ok := sel.Tree[sel.Path[0]].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, child, sel.Path[1])
}

func TestSession_SearchResults(t *testing.T) {
	f := setup(t)

	var res struct {
		Results *domain.SearchResultNode `json:"results"`
		Query   string                   `json:"query"`
	}
	require.NoError(t, json.Unmarshal(f.call(domain.MethodGetSearchResults, map[string]any{"query": "cancel", "axEnabled": true}), &res))
	assert.Equal(t, "cancel", res.Query)
	require.NotNil(t, res.Results)
	assert.False(t, res.Results.IsMatch)
	require.Len(t, res.Results.Children, 1)
	assert.True(t, res.Results.Children[0].IsMatch)
	assert.NotNil(t, res.Results.Children[0].AXElement)

	require.NoError(t, json.Unmarshal(f.call(domain.MethodGetSearchResults, map[string]any{"query": "zzz"}), &res))
	assert.Nil(t, res.Results)
}

func TestSession_HitTestAndConsole(t *testing.T) {
	f := setup(t)

	var hit domain.HitTestResponse
	require.NoError(t, json.Unmarshal(f.call(domain.MethodHitTest, map[string]any{"x": 20, "y": 272}), &hit))
	assert.Len(t, hit.Path, 4)
	assert.Len(t, hit.AXPath, 3)

	var console domain.ConsoleResponse
	require.NoError(t, json.Unmarshal(f.call(domain.MethodIsConsoleEnabled, nil), &console))
	assert.False(t, console.IsEnabled)
}

func TestSession_HostChangesAreCoalesced(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")

	f.onLoop(func() {
		b := f.window.Find("ok").(*sample.Button)
		b.Tap()
	})

	method, params := f.nextEvent()
	assert.Equal(t, domain.EventInvalidate, method)
	assert.JSONEq(t, `{"nodes":[{"id":"`+okID+`"}]}`, string(params))
}

func TestSession_Disconnect(t *testing.T) {
	f := setup(t)
	okID := f.idOf("ok")
	f.call(domain.MethodSetHighlighted, map[string]any{"id": okID})
	f.call(domain.MethodSetSearchActive, map[string]any{"active": true})

	require.NoError(t, f.session.Disconnect(f.ctx))
	require.NoError(t, f.session.Disconnect(f.ctx))

	assert.False(t, f.window.OverlayActive())
	f.onLoop(func() {
		sel, _ := f.window.Find("ok").AsView().Highlighted()
		assert.False(t, sel)
		f.window.Find("ok").(*sample.Button).Tap()
	})
	f.noEvent()

	resp := f.callErr(domain.MethodGetRoot, nil)
	assert.Equal(t, "SessionClosed", resp.Name)
}

func TestSession_CallWithoutConnection(t *testing.T) {
	loop := owner.NewLoop()
	defer loop.Stop()
	reg := registry.New()
	sample.Register(reg)

	s := session.New(sample.NewDemo(), reg, loop)
	ctx := context.Background()

	res, err := s.Call(ctx, domain.MethodGetRoot, nil)
	require.NoError(t, err)
	root, ok := res.(*domain.Node)
	require.True(t, ok)
	assert.Equal(t, "Demo", root.Name)

	_, err = s.Call(ctx, "bogus", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)
	var se *session.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bogus", se.Method)
}

func TestSession_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		commands []string
		pushes   []string
		attached int
	)
	f := setup(t, session.WithHooks(domain.LifecycleHooks{
		OnAttach: func(ctx context.Context, ev *domain.EventBase) {
			mu.Lock()
			defer mu.Unlock()
			attached++
		},
		OnCommand: func(ctx context.Context, ev *domain.CommandEvent) {
			mu.Lock()
			defer mu.Unlock()
			commands = append(commands, ev.Method)
		},
		OnPush: func(ctx context.Context, ev *domain.PushEvent) {
			mu.Lock()
			defer mu.Unlock()
			pushes = append(pushes, ev.Method)
		},
	}))

	f.call(domain.MethodGetRoot, nil)
	require.NoError(t, f.session.Tap(50, 420))
	f.nextEvent()
	f.nextEvent()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attached)
	assert.Equal(t, []string{domain.MethodGetRoot}, commands)
	assert.Equal(t, []string{domain.EventSelect, domain.EventSelectAX}, pushes)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PushEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev *domain.PushEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) methods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Method
	}
	return out
}

func TestSession_PublisherMirrorsPushEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := setup(t, session.WithPublisher(pub), session.WithID("mirror"))

	require.NoError(t, f.session.Tap(50, 420))
	f.nextEvent()
	f.nextEvent()

	// Disconnect flushes the relay.
	require.NoError(t, f.session.Disconnect(f.ctx))
	assert.Equal(t, []string{domain.EventSelect, domain.EventSelectAX}, pub.methods())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "mirror", pub.events[0].SessionID)
}

func TestSession_RejectedConnectionGetsNoReceivers(t *testing.T) {
	f := setup(t)

	other := memory.NewConnection()
	require.ErrorIs(t, f.session.Connect(f.ctx, other), session.ErrAlreadyConnected)

	_, err := other.Call(f.ctx, domain.MethodGetRoot, nil)
	var resp domain.ErrorResponse
	require.ErrorAs(t, err, &resp)
	assert.Equal(t, "UnknownMethod", resp.Name)

	// The admitted connection keeps serving.
	f.call(domain.MethodGetRoot, nil)

	require.NoError(t, f.session.Disconnect(f.ctx))
	late := memory.NewConnection()
	require.ErrorIs(t, f.session.Connect(f.ctx, late), domain.ErrSessionClosed)
	_, err = late.Call(f.ctx, domain.MethodGetRoot, nil)
	require.ErrorAs(t, err, &resp)
	assert.Equal(t, "UnknownMethod", resp.Name)
}
