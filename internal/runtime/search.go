package runtime

import (
	"errors"
	"fmt"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
)

// SearchOptions controls a search walk.
type SearchOptions struct {
	// Axis is the tree that is walked and matched.
	Axis domain.Axis
	// Linked attaches, for main-axis walks, the AX snapshot of every
	// included node that cross-references the AX tree.
	Linked bool
}

// Search returns the minimal tree connecting every node matching query to
// root, or nil if nothing matches. Matching runs against live objects.
func (e *Engine) Search(query string, root any, opts SearchOptions) (*domain.SearchResultNode, error) {
	id, err := e.Track(root)
	if err != nil {
		return nil, err
	}
	return e.search(query, id, root, opts, map[string]bool{})
}

func (e *Engine) search(query, id string, obj any, opts SearchOptions, visiting map[string]bool) (*domain.SearchResultNode, error) {
	if visiting[id] {
		return nil, nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	d := e.registry.For(obj)
	kids, err := e.children(obj, d, opts.Axis)
	switch {
	case errors.Is(err, domain.ErrMissingChild):
		return nil, fmt.Errorf("search %s: %w", id, err)
	case err != nil:
		e.fail(fmt.Errorf("search %s children: %w", id, err))
	}

	var included []*domain.SearchResultNode
	for i, kid := range kids {
		cid, err := e.Track(kid)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w: child %d: %w", id, domain.ErrMissingChild, i, err)
		}
		res, err := e.search(query, cid, kid, opts, visiting)
		if err != nil {
			return nil, err
		}
		if res != nil {
			included = append(included, res)
		}
	}

	var match bool
	if err := guard("matches", obj, func() error {
		match = descriptor.Matches(d, query, obj)
		return nil
	}); err != nil {
		e.fail(fmt.Errorf("search %s: %w", id, err))
	}
	if !match && len(included) == 0 {
		return nil, nil
	}

	node, err := e.describe(id, obj, opts.Axis)
	if err != nil {
		return nil, err
	}
	res := &domain.SearchResultNode{
		ID:       id,
		IsMatch:  match,
		Element:  node,
		Children: included,
	}
	if opts.Linked && opts.Axis == domain.AxisMain {
		res.AXElement = e.linkedAX(node, obj)
	}
	return res, nil
}

// linkedAX snapshots the AX node node points at, or returns nil.
func (e *Engine) linkedAX(node *domain.Node, obj any) *domain.Node {
	axID, ok := node.LinkedAXID()
	if !ok {
		return nil
	}
	var (
		ax  *domain.Node
		err error
	)
	if axID == node.ID {
		ax, err = e.describe(axID, obj, domain.AxisAX)
	} else {
		ax, err = e.Snapshot(axID, domain.AxisAX)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrUnknownID) {
			e.fail(fmt.Errorf("search %s linked AX node: %w", node.ID, err))
		}
		return nil
	}
	return ax
}
