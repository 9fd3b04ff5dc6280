package flow

import (
	"math"

	"github.com/gogpu/gg"
)

// Transform maps world coordinates to surface pixels.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Identity returns the transform that leaves coordinates unchanged.
func Identity() Transform {
	return Transform{Scale: 1}
}

// ToSurface maps a world point to surface space.
func (tr Transform) ToSurface(p Point) Point {
	return Point{
		X: p.X*tr.Scale + tr.TranslateX,
		Y: p.Y*tr.Scale + tr.TranslateY,
	}
}

// ToWorld maps a surface point back to world space.
func (tr Transform) ToWorld(p Point) Point {
	if tr.Scale == 0 {
		return p
	}
	return Point{
		X: (p.X - tr.TranslateX) / tr.Scale,
		Y: (p.Y - tr.TranslateY) / tr.Scale,
	}
}

// IsIdentity reports whether the transform is a no-op.
func (tr Transform) IsIdentity() bool {
	return tr == Identity()
}

// Matrix returns the transform as an affine matrix.
func (tr Transform) Matrix() gg.Matrix {
	return gg.Translate(tr.TranslateX, tr.TranslateY).Multiply(gg.Scale(tr.Scale, tr.Scale))
}

// Surface is the drawing surface the diagram is shown on.
// Transform reports false when the surface is not mounted or has no
// active transform.
type Surface interface {
	Transform() (Transform, bool)
}

// SurfaceFunc adapts a function to the Surface interface.
type SurfaceFunc func() (Transform, bool)

// Transform implements Surface.
func (f SurfaceFunc) Transform() (Transform, bool) { return f() }

// ResolveTransform returns the active transform of a surface. A nil or
// unmounted surface, or a degenerate scale, resolves to the identity; this
// is a normal condition and packets then use raw world coordinates.
func ResolveTransform(s Surface) Transform {
	if s == nil {
		return Identity()
	}
	tr, ok := s.Transform()
	if !ok {
		return Identity()
	}
	if tr.Scale <= 0 || math.IsNaN(tr.Scale) || math.IsInf(tr.Scale, 0) {
		return Identity()
	}
	if math.IsNaN(tr.TranslateX) || math.IsInf(tr.TranslateX, 0) ||
		math.IsNaN(tr.TranslateY) || math.IsInf(tr.TranslateY, 0) {
		return Identity()
	}
	return tr
}
