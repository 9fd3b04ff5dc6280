package flow

// Handle identifies one marker created by a Renderer.
type Handle uint64

// Renderer draws packet markers on the mounted surface. All methods are
// called from the goroutine driving the Scheduler.
type Renderer interface {
	// Available reports whether a render target is mounted.
	Available() bool

	// Create allocates a marker for the style. Markers start hidden until
	// the first Place.
	Create(style PacketStyle) (Handle, error)

	// Place moves a marker to a surface point. It is called every tick and
	// must not allocate.
	Place(h Handle, p Point)

	// SetOpacity scales the marker's style opacity by alpha ∈ [0,1].
	SetOpacity(h Handle, alpha float64)

	// Destroy removes the marker. Unknown handles are ignored.
	Destroy(h Handle)
}

// Heading is implemented by renderers that orient markers along the
// direction of travel (triangles point forward).
type Heading interface {
	SetHeading(h Handle, dx, dy float64)
}

// PlaceAtCurveFraction evaluates the path at t and places the marker there.
func PlaceAtCurveFraction(r Renderer, h Handle, p Path, t float64) Point {
	pt := p.At(t)
	r.Place(h, pt)
	return pt
}
