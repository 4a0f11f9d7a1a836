package ports

import (
	"context"
	"errors"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// ErrSnapshotNotFound is returned when a named dump does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a stored tree dump.
type Snapshot struct {
	Name  string         `json:"name" yaml:"name"`
	Axis  string         `json:"axis" yaml:"axis"`
	Query string         `json:"query,omitempty" yaml:"query,omitempty"`
	Nodes []*domain.Node `json:"nodes" yaml:"-"`
}

// SnapshotArchive stores tree dumps by name.
type SnapshotArchive interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns ErrSnapshotNotFound if name was never saved.
	Load(ctx context.Context, name string) (*Snapshot, error)
	List(ctx context.Context) ([]string, error)
}
