package inspector_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inspector "github.com/facebook/flipper-sub000"
	"github.com/facebook/flipper-sub000/pkg/adapters/memory"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/owner"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/sample"
)

func newDemo(t *testing.T, opts ...inspector.Option) (*inspector.Inspector, *sample.Window) {
	t.Helper()
	reg := registry.New()
	sample.Register(reg)
	w := sample.NewDemo()

	opts = append([]inspector.Option{inspector.WithRegistry(reg), inspector.WithOverlay(w)}, opts...)
	ins, err := inspector.New(w, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ins.Close(context.Background()) })
	return ins, w
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := inspector.New(nil)
	assert.Error(t, err)
}

func TestNew_WithDescriptor(t *testing.T) {
	type leaf struct{ label string }
	ins, err := inspector.New(&leaf{label: "x"},
		inspector.WithDescriptor[*leaf](&sample.ViewDescriptor{}),
	)
	require.NoError(t, err)
	defer ins.Close(context.Background())

	assert.IsType(t, &sample.ViewDescriptor{}, registry.Of[*leaf](ins.Registry()))
}

func TestInspector_SessionCall(t *testing.T) {
	ins, _ := newDemo(t)
	ctx := context.Background()

	res, err := ins.Session().Call(ctx, domain.MethodGetRoot, nil)
	require.NoError(t, err)
	root, ok := res.(*domain.Node)
	require.True(t, ok)
	assert.Equal(t, "Demo", root.Name)
	assert.Equal(t, inspector.RPCSessionID, ins.Session().ID())
}

func TestInspector_AttachPushesHostChanges(t *testing.T) {
	ins, w := newDemo(t, inspector.WithTreeSelect(true))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := memory.NewConnection()
	sess, err := ins.Attach(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, []string{sess.ID()}, ins.Manager().List())

	_, err = conn.Call(ctx, domain.MethodGetAllNodes, nil)
	require.NoError(t, err)

	require.NoError(t, ins.Do(ctx, func() { sample.Animate(w, 1) }))
	method, _, err := conn.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EventInvalidate, method)

	require.NoError(t, ins.Detach(ctx, sess.ID()))
	assert.Empty(t, ins.Manager().List())
}

func TestInspector_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ins, _ := newDemo(t, inspector.WithMetrics(reg))

	_, err := ins.Session().Call(context.Background(), domain.MethodGetRoot, nil)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "inspector_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = inspector.New(sample.NewDemo(), inspector.WithMetrics(reg))
	assert.Error(t, err, "collectors are already registered")
}

func TestInspector_Every(t *testing.T) {
	ins, _ := newDemo(t)
	ticks := make(chan struct{}, 1)
	stop, err := ins.Every(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer stop()

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("no tick")
	}

	inline, err := inspector.New(sample.NewDemo(), inspector.WithExecutor(owner.Inline{}))
	require.NoError(t, err)
	_, err = inline.Every(time.Millisecond, func() {})
	assert.Error(t, err)
}
