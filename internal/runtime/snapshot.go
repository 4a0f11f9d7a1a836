package runtime

import (
	"errors"
	"fmt"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
)

// Snapshot builds the wire node for id on the given axis.
// It returns ErrUnknownID if id is not tracked.
func (e *Engine) Snapshot(id string, axis domain.Axis) (*domain.Node, error) {
	obj, ok := e.tracker.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	return e.describe(id, obj, axis)
}

// SnapshotRoot tracks root and builds its node.
func (e *Engine) SnapshotRoot(root any, axis domain.Axis) (*domain.Node, error) {
	id, err := e.Track(root)
	if err != nil {
		return nil, err
	}
	return e.describe(id, root, axis)
}

// describe assembles a node. Children, data and attributes are computed
// independently: a failure in one is reported and leaves the field empty,
// except a missing child which aborts the snapshot.
func (e *Engine) describe(id string, obj any, axis domain.Axis) (*domain.Node, error) {
	d := e.registry.For(obj)
	node := &domain.Node{
		ID:         id,
		Data:       domain.Groups{},
		Children:   []string{},
		Attributes: []domain.Attribute{},
	}

	if err := guard("name", obj, func() error {
		node.Name = d.Name(obj)
		return nil
	}); err != nil {
		node.Name = fmt.Sprintf("%T", obj)
		e.fail(fmt.Errorf("snapshot %s: %w", id, err))
	}

	ids, err := e.childIDs(obj, d, axis)
	switch {
	case errors.Is(err, domain.ErrMissingChild):
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	case err != nil:
		e.fail(fmt.Errorf("snapshot %s children: %w", id, err))
	default:
		node.Children = ids
	}

	if err := guard("data", obj, func() error {
		groups, err := descriptor.Data(d, obj, axis)
		if groups != nil {
			node.Data = groups
		}
		return err
	}); err != nil {
		node.Data = domain.Groups{}
		e.fail(fmt.Errorf("snapshot %s data: %w", id, err))
	}

	if err := guard("attributes", obj, func() error {
		attrs, err := descriptor.Attributes(d, obj, axis)
		if attrs != nil {
			node.Attributes = attrs
		}
		return err
	}); err != nil {
		node.Attributes = []domain.Attribute{}
		e.fail(fmt.Errorf("snapshot %s attributes: %w", id, err))
	}

	if err := guard("decoration", obj, func() error {
		node.Decoration = descriptor.Decoration(d, obj, axis)
		node.ExtraInfo = d.ExtraInfo(obj)
		return nil
	}); err != nil {
		e.fail(fmt.Errorf("snapshot %s extra info: %w", id, err))
	}
	return node, nil
}

func (e *Engine) childIDs(obj any, d descriptor.Descriptor, axis domain.Axis) ([]string, error) {
	kids, err := e.children(obj, d, axis)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(kids))
	for i, kid := range kids {
		cid, err := e.Track(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %T[%d]: %w", domain.ErrMissingChild, obj, i, err)
		}
		ids = append(ids, cid)
	}
	return ids, nil
}

// Nodes snapshots each id in order and stops at the first failure,
// returning the id that failed.
func (e *Engine) Nodes(ids []string, axis domain.Axis) ([]*domain.Node, string, error) {
	nodes := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		n, err := e.Snapshot(id, axis)
		if err != nil {
			return nil, id, err
		}
		nodes = append(nodes, n)
	}
	return nodes, "", nil
}

// AllNodes walks the whole tree below root breadth-first. Each id is visited once.
func (e *Engine) AllNodes(root any, axis domain.Axis) ([]*domain.Node, error) {
	rootNode, err := e.SnapshotRoot(root, axis)
	if err != nil {
		return nil, err
	}
	out := []*domain.Node{rootNode}
	seen := map[string]bool{rootNode.ID: true}
	for i := 0; i < len(out); i++ {
		for _, cid := range out[i].Children {
			if seen[cid] {
				continue
			}
			seen[cid] = true
			n, err := e.Snapshot(cid, axis)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
	}
	return out, nil
}
