package runtime

import (
	"fmt"

	"github.com/facebook/flipper-sub000/pkg/descriptor"
	"github.com/facebook/flipper-sub000/pkg/domain"
)

// maxHitDepth bounds a traversal through a cyclic graph.
const maxHitDepth = 1024

// touch records the outcome of one hit-test step.
type touch struct {
	x, y     float64
	outcomes int
	finished bool
	child    int
	dx, dy   float64
}

func (t *touch) X() float64 { return t.x }

func (t *touch) Y() float64 { return t.y }

func (t *touch) ContainedIn(left, top, right, bottom float64) bool {
	return t.x >= left && t.x <= right && t.y >= top && t.y <= bottom
}

func (t *touch) ContinueWithOffset(childIndex int, dx, dy float64) {
	t.outcomes++
	t.child, t.dx, t.dy = childIndex, dx, dy
}

func (t *touch) Finish() {
	t.outcomes++
	t.finished = true
}

var _ descriptor.Touch = (*touch)(nil)

// HitTest runs a tap at (x, y) from root and returns the id path from root to
// the deepest object the descriptors led to.
func (e *Engine) HitTest(root any, x, y float64, axis domain.Axis) ([]string, error) {
	rootID, err := e.Track(root)
	if err != nil {
		return nil, err
	}
	path := []string{rootID}
	cur := root
	for range maxHitDepth {
		d := e.registry.For(cur)
		t := &touch{x: x, y: y}
		if err := guard("hitTest", cur, func() error {
			descriptor.HitTest(d, cur, t, axis)
			return nil
		}); err != nil {
			return nil, err
		}
		if t.outcomes != 1 {
			return nil, fmt.Errorf("%w: %T made %d terminal calls", domain.ErrTouchContract, cur, t.outcomes)
		}
		if t.finished {
			return path, nil
		}

		child, err := e.childAt(cur, d, t.child, axis)
		if err != nil {
			return nil, err
		}
		id, err := e.Track(child)
		if err != nil {
			return nil, err
		}
		x -= t.dx
		y -= t.dy
		path = append(path, id)
		cur = child
	}
	return nil, fmt.Errorf("%w: deeper than %d levels", domain.ErrTouchContract, maxHitDepth)
}
