package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/internal/metrics"
	"github.com/facebook/flipper-sub000/pkg/adapters/memory"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/owner"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/sample"
	"github.com/facebook/flipper-sub000/pkg/session"
)

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)
	_, err = metrics.New(reg)
	assert.Error(t, err)
}

func TestHooks_CallNext(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	var commands, errs int
	hooks := m.Hooks(domain.LifecycleHooks{
		OnCommand: func(context.Context, *domain.CommandEvent) { commands++ },
		OnError:   func(context.Context, error) { errs++ },
	})
	ctx := context.Background()
	hooks.OnCommand(ctx, &domain.CommandEvent{Method: domain.MethodGetRoot, Duration: time.Millisecond})
	hooks.OnError(ctx, errors.New("boom"))
	hooks.OnPush(ctx, &domain.PushEvent{Method: domain.EventSelect})
	hooks.OnAttach(ctx, &domain.EventBase{})

	assert.Equal(t, 1, commands)
	assert.Equal(t, 1, errs)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "UnknownID", metrics.Kind(fmt.Errorf("lookup: %w", domain.ErrUnknownID)))
	assert.Equal(t, "DescriptorError", metrics.Kind(&domain.DescriptorError{Op: "data", Err: errors.New("boom")}))
	assert.Equal(t, "Error", metrics.Kind(errors.New("plain")))
}

func TestHooks_RecordSessionActivity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	loop := owner.NewLoop()
	defer loop.Stop()
	descriptors := registry.New()
	sample.Register(descriptors)

	s := session.New(sample.NewDemo(), descriptors, loop, session.WithHooks(m.Hooks(domain.LifecycleHooks{})))
	conn := memory.NewConnection()
	require.NoError(t, s.Connect(ctx, conn))

	_, err = conn.Call(ctx, domain.MethodGetRoot, nil)
	require.NoError(t, err)
	_, err = conn.Call(ctx, domain.MethodGetRoot, nil)
	require.NoError(t, err)
	_, err = conn.Call(ctx, domain.MethodGetNodes, map[string]any{"ids": []string{"ghost"}})
	require.Error(t, err)

	expected := `
# HELP inspector_commands_total Commands handled, by method and outcome.
# TYPE inspector_commands_total counter
inspector_commands_total{method="getNodes",outcome="error"} 1
inspector_commands_total{method="getRoot",outcome="ok"} 2
# HELP inspector_sessions Connected controller sessions.
# TYPE inspector_sessions gauge
inspector_sessions 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"inspector_commands_total", "inspector_sessions"))
	count, err := testutil.GatherAndCount(reg, "inspector_tracked_objects")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Disconnect(ctx))
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP inspector_sessions Connected controller sessions.
# TYPE inspector_sessions gauge
inspector_sessions 0
`), "inspector_sessions"))
}
