// Package loam stores tree dumps as documents in a Loam repository, one file
// per dump with the metadata as frontmatter.
package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Archive implements ports.SnapshotArchive on top of Loam.
type Archive struct {
	Repo *loam.TypedRepository[SnapshotMetadata]
}

// New wraps an initialized repository.
func New(repo core.Repository) *Archive {
	return &Archive{Repo: loam.NewTypedRepository[SnapshotMetadata](repo)}
}

// Open initializes a repository in dir for writing dumps.
func Open(dir string) (*Archive, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath, loam.WithVersioning(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(repo), nil
}

// Save writes snap under its name, replacing any previous dump.
func (a *Archive) Save(ctx context.Context, snap *ports.Snapshot) error {
	body, err := json.MarshalIndent(snap.Nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}
	err = a.Repo.Save(ctx, &loam.DocumentModel[SnapshotMetadata]{
		ID:      snap.Name,
		Content: string(body),
		Data: SnapshotMetadata{
			Name:  snap.Name,
			Axis:  snap.Axis,
			Query: snap.Query,
			Count: strconv.Itoa(len(snap.Nodes)),
		},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", snap.Name, err)
	}
	return nil
}

// Load reads a dump back. Loam does not expose a typed not-found error, so a
// failed lookup is confirmed against List before it is reported as missing.
func (a *Archive) Load(ctx context.Context, name string) (*ports.Snapshot, error) {
	doc, err := a.Repo.Get(ctx, name)
	if err != nil {
		names, listErr := a.List(ctx)
		if listErr == nil && !slices.Contains(names, name) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", name, err)
	}

	var nodes []*domain.Node
	if content := strings.TrimSpace(doc.Content); content != "" {
		if err := json.Unmarshal([]byte(content), &nodes); err != nil {
			return nil, fmt.Errorf("corrupt dump %s: %w", name, err)
		}
	}

	snap := &ports.Snapshot{
		Name:  doc.Data.Name,
		Axis:  doc.Data.Axis,
		Query: doc.Data.Query,
		Nodes: nodes,
	}
	if snap.Name == "" {
		snap.Name = name
	}
	return snap, nil
}

// List returns the stored dump names, sorted.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	docs, err := a.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := doc.Data.Name
		if name == "" {
			name = trimExtension(doc.ID)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
