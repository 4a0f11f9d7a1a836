package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Archive implements ports.SnapshotArchive in memory.
// Safe for concurrent use.
type Archive struct {
	data map[string]*ports.Snapshot
	mu   sync.RWMutex
}

// NewArchive creates a new in-memory archive.
func NewArchive() *Archive {
	return &Archive{
		data: make(map[string]*ports.Snapshot),
	}
}

// Save stores a copy of snap.
func (a *Archive) Save(ctx context.Context, snap *ports.Snapshot) error {
	copied := *snap
	copied.Nodes = cloneNodes(snap.Nodes)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[snap.Name] = &copied
	return nil
}

// Load returns a copy so callers cannot mutate the archive by pointer.
func (a *Archive) Load(ctx context.Context, name string) (*ports.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap, ok := a.data[name]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	ret := *snap
	ret.Nodes = cloneNodes(snap.Nodes)
	return &ret, nil
}

// List returns stored names, sorted.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.data))
	for name := range a.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func cloneNodes(nodes []*domain.Node) []*domain.Node {
	out := make([]*domain.Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Children = slices.Clone(n.Children)
		c.Attributes = slices.Clone(n.Attributes)
		out[i] = &c
	}
	return out
}
