// Connector geometry between diagram nodes.
// Edges are drawn as flattened cubic S-curves from the right side of the
// source box to the left side of the target box.

package flow

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/ha1tch/archflow/pkg/diagram"
)

// Control points never sit further than this from their anchor.
const maxControlOffset = 100.0

// controlFactor is the share of the horizontal anchor distance used as the
// control point offset.
const controlFactor = 0.3

// Point represents a 2D coordinate.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// NodeRect returns the bounding box of a node.
func NodeRect(n diagram.Node) Rect {
	return Rect{X: n.X, Y: n.Y, W: n.Width, H: n.Height}
}

// RightCenter is the midpoint of the right side.
func (r Rect) RightCenter() Point {
	return Point{r.X + r.W, r.Y + r.H/2}
}

// LeftCenter is the midpoint of the left side.
func (r Rect) LeftCenter() Point {
	return Point{r.X, r.Y + r.H/2}
}

// Curve is a cubic Bézier: Start, Control1, Control2, End.
type Curve struct {
	Start    Point
	End      Point
	Control1 Point
	Control2 Point
}

// ComputeCurve returns the connector between two nodes. The source always
// anchors on its right side and the target on its left, whatever the
// arrangement, so an edge pointing backwards still leaves rightwards.
func ComputeCurve(source, target diagram.Node) Curve {
	start := NodeRect(source).RightCenter()
	end := NodeRect(target).LeftCenter()
	return CurveBetween(start, end)
}

// CurveBetween builds the connector curve between two anchor points.
func CurveBetween(start, end Point) Curve {
	offset := math.Min(math.Abs(end.X-start.X)*controlFactor, maxControlOffset)
	return Curve{
		Start:    start,
		End:      end,
		Control1: Point{start.X + offset, start.Y},
		Control2: Point{end.X - offset, end.Y},
	}
}

// Reverse returns the same path traversed from End to Start.
func (c Curve) Reverse() Curve {
	return Curve{
		Start:    c.End,
		End:      c.Start,
		Control1: c.Control2,
		Control2: c.Control1,
	}
}

// At evaluates the curve at t ∈ [0,1]. t=0 yields Start and t=1 yields End
// exactly.
func (c Curve) At(t float64) Point {
	p := c.bez().Eval(t)
	return Point{p.X, p.Y}
}

// Tangent returns the derivative at t.
func (c Curve) Tangent(t float64) Point {
	v := c.bez().Tangent(t)
	return Point{v.X, v.Y}
}

// Length approximates the arc length by sampling.
func (c Curve) Length() float64 {
	const samples = 64
	length := 0.0
	prev := c.Start
	for i := 1; i <= samples; i++ {
		curr := c.At(float64(i) / samples)
		length += distance(prev, curr)
		prev = curr
	}
	return length
}

// Map applies a viewport transform to all four control points. Uniform
// scale and translation commute with Bézier evaluation, so the mapped curve
// traces the surface-space image of the original.
func (c Curve) Map(tr Transform) Curve {
	return Curve{
		Start:    tr.ToSurface(c.Start),
		End:      tr.ToSurface(c.End),
		Control1: tr.ToSurface(c.Control1),
		Control2: tr.ToSurface(c.Control2),
	}
}

// Bounds returns the bounding box of the curve.
func (c Curve) Bounds() Rect {
	r := c.bez().BoundingBox()
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Max.X - r.Min.X, H: r.Max.Y - r.Min.Y}
}

func (c Curve) bez() gg.CubicBez {
	return gg.NewCubicBez(
		gg.Pt(c.Start.X, c.Start.Y),
		gg.Pt(c.Control1.X, c.Control1.Y),
		gg.Pt(c.Control2.X, c.Control2.Y),
		gg.Pt(c.End.X, c.End.Y),
	)
}

func distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}
