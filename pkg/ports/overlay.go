package ports

// Overlay is a transparent surface over the root view that intercepts taps.
type Overlay interface {
	// Install shows the surface. Every tap is delivered to onTap in root
	// coordinates instead of reaching host objects.
	Install(onTap func(x, y float64)) error
	// Remove hides the surface. Removing a missing overlay is a no-op.
	Remove()
}
