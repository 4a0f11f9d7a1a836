package descriptor

// Touch is the state of one step of a hit test, in the coordinate space of
// the object being tested.
type Touch interface {
	X() float64
	Y() float64
	// ContainedIn reports whether the local coordinates fall inside the
	// rectangle. It does not change the touch.
	ContainedIn(left, top, right, bottom float64) bool
	// ContinueWithOffset descends into the child at childIndex whose origin is
	// at (dx, dy) in the current coordinate space.
	ContinueWithOffset(childIndex int, dx, dy float64)
	// Finish ends the traversal at the current object.
	Finish()
}
