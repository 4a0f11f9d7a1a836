package ports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RemoteController drives the far side of a Connection under test.
type RemoteController interface {
	// Call issues a command and waits for its answer. A command answered with
	// an error returns a domain.ErrorResponse as err.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	// NextEvent waits for the next push event.
	NextEvent(ctx context.Context) (method string, params json.RawMessage, err error)
}

// RunConnectionContract verifies that a Connection routes commands to its
// receivers, answers them once and delivers push events in order.
func RunConnectionContract(t *testing.T, conn Connection, remote RemoteController) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn.Receive("echo", func(params map[string]any, r Responder) {
		r.Success(params)
	})
	conn.Receive("fail", func(params map[string]any, r Responder) {
		r.Error(domain.ErrorResponse{Message: "boom", ID: "n1"})
		r.Success("ignored")
	})

	t.Run("Success", func(t *testing.T) {
		raw, err := remote.Call(ctx, "echo", map[string]any{"ids": []string{"a", "b"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ids":["a","b"]}`, string(raw))
	})

	t.Run("Empty Params", func(t *testing.T) {
		raw, err := remote.Call(ctx, "echo", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(raw))
	})

	t.Run("Error Answers Once", func(t *testing.T) {
		_, err := remote.Call(ctx, "fail", map[string]any{})
		var resp domain.ErrorResponse
		require.True(t, errors.As(err, &resp), "expected ErrorResponse, got %v", err)
		assert.Equal(t, "boom", resp.Message)
		assert.Equal(t, "n1", resp.ID)

		// The connection must still serve after a failure.
		_, err = remote.Call(ctx, "echo", map[string]any{})
		require.NoError(t, err)
	})

	t.Run("Unknown Method", func(t *testing.T) {
		_, err := remote.Call(ctx, "doesNotExist", map[string]any{})
		var resp domain.ErrorResponse
		require.True(t, errors.As(err, &resp), "expected ErrorResponse, got %v", err)
		assert.Equal(t, "UnknownMethod", resp.Name)
	})

	t.Run("Push Events In Order", func(t *testing.T) {
		require.NoError(t, conn.Send(domain.EventInvalidate, domain.InvalidateEvent{Nodes: []domain.NodeRef{{ID: "1"}}}))
		require.NoError(t, conn.Send(domain.EventSelect, domain.SelectEvent{Path: []string{"1", "2"}}))

		method, params, err := remote.NextEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.EventInvalidate, method)
		assert.JSONEq(t, `{"nodes":[{"id":"1"}]}`, string(params))

		method, params, err = remote.NextEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.EventSelect, method)
		assert.JSONEq(t, `{"path":["1","2"]}`, string(params))
	})
}

// RunLockerContract verifies mutual exclusion and release of a DistributedLocker.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	t.Helper()
	ctx := context.Background()
	key := "contract-lease-" + time.Now().Format("20060102150405.000")

	t.Run("Exclusive", func(t *testing.T) {
		lease, err := locker.Lock(ctx, key, time.Minute)
		require.NoError(t, err)

		_, err = locker.Lock(ctx, key, time.Minute)
		assert.ErrorIs(t, err, domain.ErrLeaseHeld)

		require.NoError(t, lease.Unlock(ctx))
	})

	t.Run("Reacquire After Release", func(t *testing.T) {
		lease, err := locker.Lock(ctx, key, time.Minute)
		require.NoError(t, err)
		require.NoError(t, lease.Unlock(ctx))
	})

	t.Run("Extend", func(t *testing.T) {
		lease, err := locker.Lock(ctx, key, time.Minute)
		require.NoError(t, err)
		require.NoError(t, lease.Extend(ctx, time.Minute))

		_, err = locker.Lock(ctx, key, time.Minute)
		assert.ErrorIs(t, err, domain.ErrLeaseHeld, "extending keeps the lease")

		require.NoError(t, lease.Unlock(ctx))
		assert.ErrorIs(t, lease.Extend(ctx, time.Minute), domain.ErrLeaseLost)
	})

	t.Run("Independent Keys", func(t *testing.T) {
		l1, err := locker.Lock(ctx, key+"-a", time.Minute)
		require.NoError(t, err)
		l2, err := locker.Lock(ctx, key+"-b", time.Minute)
		require.NoError(t, err)
		require.NoError(t, l1.Unlock(ctx))
		require.NoError(t, l2.Unlock(ctx))
	})
}

// RunArchiveContract verifies that a SnapshotArchive round-trips dumps.
func RunArchiveContract(t *testing.T, archive SnapshotArchive) {
	t.Helper()
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")

	snap := &Snapshot{
		Name: name,
		Axis: domain.AxisMain.String(),
		Nodes: []*domain.Node{
			{ID: "root", Name: "Window", Children: []string{"c1"}, Attributes: []domain.Attribute{}},
			{ID: "c1", Name: "Button", Children: []string{}, Attributes: []domain.Attribute{{Name: "id", Value: "ok"}}},
		},
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, archive.Save(ctx, snap))

		loaded, err := archive.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, snap.Name, loaded.Name)
		assert.Equal(t, snap.Axis, loaded.Axis)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "Window", loaded.Nodes[0].Name)
		assert.Equal(t, []string{"c1"}, loaded.Nodes[0].Children)
		assert.Equal(t, snap.Nodes[1].Attributes, loaded.Nodes[1].Attributes)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := archive.Load(ctx, "missing-"+name)
		assert.ErrorIs(t, err, ErrSnapshotNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := archive.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, name)
	})
}
