package flow

import "sort"

// Path is a curve prepared for repeated evaluation.
type Path interface {
	// At returns the point for progress t ∈ [0,1]. At(0) is the curve's
	// Start and At(1) its End, exactly.
	At(t float64) Point
	Curve() Curve
}

// Evaluator turns a curve into a Path. A scheduler uses one evaluator for
// every edge it animates.
type Evaluator interface {
	Prepare(c Curve) Path
}

// ClosedForm evaluates the Bézier polynomial directly: progress is the
// curve parameter. Packets move faster where control points are spread.
type ClosedForm struct{}

// Prepare implements Evaluator.
func (ClosedForm) Prepare(c Curve) Path { return closedPath{c} }

type closedPath struct{ c Curve }

func (p closedPath) At(t float64) Point {
	switch {
	case t <= 0:
		return p.c.Start
	case t >= 1:
		return p.c.End
	}
	return p.c.At(t)
}

func (p closedPath) Curve() Curve { return p.c }

// ArcLength reparameterises the curve by distance travelled, so packets
// move at constant visual speed. Samples sets the table resolution.
type ArcLength struct {
	Samples int
}

// DefaultArcSamples is used when ArcLength.Samples is not positive.
const DefaultArcSamples = 64

// Prepare implements Evaluator. The length table is built once per path.
func (a ArcLength) Prepare(c Curve) Path {
	n := a.Samples
	if n <= 0 {
		n = DefaultArcSamples
	}

	p := &arcPath{c: c, ts: make([]float64, n+1), lens: make([]float64, n+1)}
	prev := c.Start
	total := 0.0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		curr := c.At(t)
		total += distance(prev, curr)
		p.ts[i] = t
		p.lens[i] = total
		prev = curr
	}
	p.total = total
	return p
}

type arcPath struct {
	c     Curve
	ts    []float64 // curve parameter at each sample
	lens  []float64 // cumulative length at each sample
	total float64
}

func (p *arcPath) At(u float64) Point {
	switch {
	case u <= 0:
		return p.c.Start
	case u >= 1:
		return p.c.End
	case p.total == 0:
		return p.c.Start
	}

	target := u * p.total
	i := sort.SearchFloat64s(p.lens, target)
	if i == 0 {
		return p.c.Start
	}
	if i >= len(p.lens) {
		return p.c.End
	}

	// Interpolate the curve parameter between the bracketing samples.
	l0, l1 := p.lens[i-1], p.lens[i]
	frac := 0.0
	if l1 > l0 {
		frac = (target - l0) / (l1 - l0)
	}
	t := p.ts[i-1] + (p.ts[i]-p.ts[i-1])*frac
	return p.c.At(t)
}

func (p *arcPath) Curve() Curve { return p.c }

// Length is the approximate arc length of the path.
func (p *arcPath) Length() float64 { return p.total }

// ParseEvaluator maps a configuration name to an Evaluator.
func ParseEvaluator(name string) (Evaluator, bool) {
	switch name {
	case "", "bezier", "closed-form":
		return ClosedForm{}, true
	case "arc", "arc-length":
		return ArcLength{Samples: DefaultArcSamples}, true
	}
	return nil, false
}
