package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
	"github.com/ha1tch/archflow/pkg/render"
)

// framePadding is the margin around the diagram in rendered frames.
const framePadding = 40

func writeInfo(w io.Writer, d *diagram.Diagram) {
	fmt.Fprintf(w, "Name:   %s\n", nameOr(d.Name))
	fmt.Fprintf(w, "Nodes:  %d\n", len(d.Nodes))
	fmt.Fprintf(w, "Edges:  %d\n", len(d.Edges))
	minX, minY, maxX, maxY := d.Bounds()
	fmt.Fprintf(w, "Bounds: (%g, %g) - (%g, %g)\n", minX, minY, maxX, maxY)
	fmt.Fprintf(w, "View:   scale %g, offset (%g, %g)\n", d.View.Scale, d.View.OffsetX, d.View.OffsetY)

	fmt.Fprintln(w, "\nEdges:")
	for _, e := range d.Edges {
		c, err := edgeCurve(d, e)
		if err != nil {
			fmt.Fprintf(w, "  %-16s %s -> %s  (unresolved)\n", e.ID, e.Source, e.Target)
			continue
		}
		fmt.Fprintf(w, "  %-16s %s -> %s  length %.1f\n", e.ID, e.Source, e.Target, c.Length())
	}

	top := d.Analyze()
	fmt.Fprintln(w, "\nTopology:")
	fmt.Fprintf(w, "  sources  %s\n", joinOr(top.Sources))
	fmt.Fprintf(w, "  sinks    %s\n", joinOr(top.Sinks))
	if top.Acyclic() {
		fmt.Fprintf(w, "  order    %s\n", joinOr(top.Order))
	}
	for _, loop := range top.Loops {
		fmt.Fprintf(w, "  loop     %s\n", strings.Join(loop, ", "))
	}

	if dangling := danglingEdges(d); len(dangling) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range dangling {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}

func nameOr(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func joinOr(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

// danglingEdges describes every edge whose endpoints cannot be resolved.
func danglingEdges(d *diagram.Diagram) []string {
	var out []string
	for _, e := range d.Edges {
		if _, err := edgeCurve(d, e); err != nil {
			out = append(out, err.Error())
		}
	}
	sort.Strings(out)
	return out
}

// edgeCurve resolves an edge's nodes and computes its world-space curve.
func edgeCurve(d *diagram.Diagram, e diagram.Edge) (flow.Curve, error) {
	source, ok := d.NodeByID(e.Source)
	if !ok {
		return flow.Curve{}, &flow.EdgeResolutionError{EdgeID: e.ID, NodeID: e.Source, End: "source"}
	}
	target, ok := d.NodeByID(e.Target)
	if !ok {
		return flow.Curve{}, &flow.EdgeResolutionError{EdgeID: e.ID, NodeID: e.Target, End: "target"}
	}
	return flow.ComputeCurve(source, target), nil
}

func writeCurve(w io.Writer, d *diagram.Diagram, edgeID string, samples int, eval flow.Evaluator) error {
	e, ok := d.EdgeByID(edgeID)
	if !ok {
		return fmt.Errorf("no edge %q", edgeID)
	}
	c, err := edgeCurve(d, e)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Edge %s: %s -> %s\n", e.ID, e.Source, e.Target)
	fmt.Fprintf(w, "  start     (%.2f, %.2f)\n", c.Start.X, c.Start.Y)
	fmt.Fprintf(w, "  control1  (%.2f, %.2f)\n", c.Control1.X, c.Control1.Y)
	fmt.Fprintf(w, "  control2  (%.2f, %.2f)\n", c.Control2.X, c.Control2.Y)
	fmt.Fprintf(w, "  end       (%.2f, %.2f)\n", c.End.X, c.End.Y)
	fmt.Fprintf(w, "  length    %.2f\n", c.Length())

	path := eval.Prepare(c)
	fmt.Fprintf(w, "\n  %-6s %10s %10s\n", "t", "x", "y")
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		p := path.At(t)
		fmt.Fprintf(w, "  %-6.3f %10.2f %10.2f\n", t, p.X, p.Y)
	}
	return nil
}

// selectEdges returns the edges named in ids, or every edge when ids is
// empty.
func selectEdges(d *diagram.Diagram, ids []string) ([]diagram.Edge, error) {
	if len(ids) == 0 {
		return d.Edges, nil
	}
	out := make([]diagram.Edge, 0, len(ids))
	for _, id := range ids {
		e, ok := d.EdgeByID(id)
		if !ok {
			return nil, fmt.Errorf("no edge %q", id)
		}
		out = append(out, e)
	}
	return out, nil
}

// startEdges starts every selected edge, reporting failures to w.
func startEdges(w io.Writer, s *flow.Scheduler, d *diagram.Diagram, opts runOptions) error {
	edges, err := selectEdges(d, opts.edges)
	if err != nil {
		return err
	}
	started := 0
	for _, e := range edges {
		st := opts.style
		if st.Label == "" && e.Label != "" {
			st.Label = e.Label
		}
		if err := s.Start(e.ID, e, d.Nodes, st); err != nil {
			fmt.Fprintf(w, "skip %s: %v\n", e.ID, err)
			continue
		}
		started++
	}
	if started == 0 {
		return errors.New("no edge could be started")
	}
	return nil
}

// traceRenderer prints marker lifetimes instead of drawing them.
type traceRenderer struct {
	w     io.Writer
	clock flow.Clock
	edges map[flow.Handle]string
	next  flow.Handle
}

func (r *traceRenderer) Available() bool { return true }

func (r *traceRenderer) Create(flow.PacketStyle) (flow.Handle, error) {
	r.next++
	return r.next, nil
}

func (r *traceRenderer) Place(flow.Handle, flow.Point) {}

func (r *traceRenderer) SetOpacity(flow.Handle, float64) {}

func (r *traceRenderer) Destroy(h flow.Handle) {
	edge, ok := r.edges[h]
	if !ok {
		return
	}
	delete(r.edges, h)
	fmt.Fprintf(r.w, "%8.3fs  retire  %-16s #%d\n", r.clock.Now().Seconds(), edge, h)
}

// simulate runs the selected edges on a manual clock and prints every
// spawn and retirement.
func simulate(w io.Writer, d *diagram.Diagram, opts runOptions) error {
	clk := &flow.ManualClock{}
	tr := &traceRenderer{w: w, clock: clk, edges: make(map[flow.Handle]string)}

	hook := func(p flow.Packet) {
		tr.edges[p.Handle()] = p.EdgeID
		kind := "spawn"
		if p.Return {
			kind = "return"
		}
		fmt.Fprintf(w, "%8.3fs  %-6s  %-16s #%d\n", clk.Now().Seconds(), kind, p.EdgeID, p.Handle())
	}

	s := flow.New(tr,
		flow.WithClock(clk),
		flow.WithEvaluator(opts.eval),
		flow.WithFadeOut(opts.fade),
		flow.WithSpawnHook(hook),
	)
	if err := startEdges(w, s, d, opts); err != nil {
		return err
	}

	step := time.Second / time.Duration(opts.fps)
	maxLive := 0
	for clk.Now() < opts.duration {
		clk.Advance(step)
		s.Tick()
		if live := s.Stats().Live; live > maxLive {
			maxLive = live
		}
	}

	st := s.Stats()
	fmt.Fprintf(w, "\n%d spawned, %d retired, %d skipped, %d live at end, %d max live\n",
		st.Spawned, st.Retired, st.Skipped, st.Live, maxLive)
	for _, id := range s.ActiveEdgeIDs() {
		fmt.Fprintf(w, "  %-16s %d live\n", id, s.LiveCount(id))
	}

	// Everything still on screen is torn down silently.
	tr.w = io.Discard
	s.Close()
	return nil
}

// frameTransform fits the diagram into the frame and returns the frame
// size.
func frameTransform(d *diagram.Diagram, width, height int) (flow.Transform, int, int) {
	minX, minY, maxX, maxY := d.Bounds()
	dx, dy := math.Max(maxX-minX, 1), math.Max(maxY-minY, 1)

	scale := 1.0
	switch {
	case width > 0 && height > 0:
		scale = math.Min((float64(width)-2*framePadding)/dx, (float64(height)-2*framePadding)/dy)
	case width > 0:
		scale = (float64(width) - 2*framePadding) / dx
	case height > 0:
		scale = (float64(height) - 2*framePadding) / dy
	}
	if scale <= 0 {
		scale = 1
	}
	if width <= 0 {
		width = int(math.Ceil(dx*scale)) + 2*framePadding
	}
	if height <= 0 {
		height = int(math.Ceil(dy*scale)) + 2*framePadding
	}
	tr := flow.Transform{
		Scale:      scale,
		TranslateX: framePadding - minX*scale,
		TranslateY: framePadding - minY*scale,
	}
	return tr, width, height
}

// exportFrames renders the animation to numbered PNG files and returns
// how many were written.
func exportFrames(d *diagram.Diagram, opts runOptions) (int, error) {
	tr, width, height := frameTransform(d, opts.width, opts.height)
	r, err := render.NewRaster(width, height)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	r.SetBackdrop(func(dc *gg.Context) error { return drawDiagram(dc, d, tr) })
	ink := colorful.Color{R: 0.2, G: 0.2, B: 0.2}
	for _, n := range d.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		centre := tr.ToSurface(flow.Point{X: n.X + n.Width/2, Y: n.Y + n.Height/2})
		if err := r.AddCaption(centre, label, math.Max(8, 12*tr.Scale), ink); err != nil {
			return 0, err
		}
	}

	clk := &flow.ManualClock{}
	s := flow.New(r,
		flow.WithClock(clk),
		flow.WithSurface(flow.SurfaceFunc(func() (flow.Transform, bool) { return tr, true })),
		flow.WithEvaluator(opts.eval),
		flow.WithFadeOut(opts.fade),
	)
	defer s.Close()
	if err := startEdges(os.Stderr, s, d, opts); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(opts.output, 0755); err != nil {
		return 0, err
	}

	step := time.Second / time.Duration(opts.fps)
	frames := int(opts.duration / step)
	for i := 0; i < frames; i++ {
		clk.Advance(step)
		s.Tick()
		if err := r.Draw(); err != nil {
			return i, err
		}
		if err := writeFrame(r, filepath.Join(opts.output, fmt.Sprintf("frame_%04d.png", i))); err != nil {
			return i, err
		}
	}
	return frames, nil
}

func writeFrame(r *render.Raster, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// drawDiagram draws nodes and edge connectors in surface space. It stops
// at the first paint error.
func drawDiagram(dc *gg.Context, d *diagram.Diagram, tr flow.Transform) error {
	dc.SetLineWidth(math.Max(1, 1.5*tr.Scale))
	for _, e := range d.Edges {
		c, err := edgeCurve(d, e)
		if err != nil {
			continue
		}
		c = c.Map(tr)
		dc.SetRGB(0.6, 0.6, 0.65)
		dc.MoveTo(c.Start.X, c.Start.Y)
		dc.CubicTo(c.Control1.X, c.Control1.Y, c.Control2.X, c.Control2.Y, c.End.X, c.End.Y)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
		if err := drawArrowHead(dc, c, 8*tr.Scale); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
	}

	for _, n := range d.Nodes {
		p := tr.ToSurface(flow.Point{X: n.X, Y: n.Y})
		w, h := n.Width*tr.Scale, n.Height*tr.Scale
		dc.DrawRoundedRectangle(p.X, p.Y, w, h, 6*tr.Scale)
		dc.SetRGB(0.96, 0.97, 0.99)
		if err := dc.FillPreserve(); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		dc.SetRGB(0.3, 0.35, 0.45)
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	return nil
}

func drawArrowHead(dc *gg.Context, c flow.Curve, size float64) error {
	d := c.Tangent(1)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return nil
	}
	ux, uy := d.X/l, d.Y/l
	tip := c.End
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(tip.X-ux*size-uy*size/2, tip.Y-uy*size+ux*size/2)
	dc.LineTo(tip.X-ux*size+uy*size/2, tip.Y-uy*size-ux*size/2)
	dc.ClosePath()
	return dc.Fill()
}

// writeSVG exports the selected edges as an animated SVG. Edges that
// cannot be animated are reported to warn and left static.
func writeSVG(w, warn io.Writer, d *diagram.Diagram, opts runOptions) error {
	edges, err := selectEdges(d, opts.edges)
	if err != nil {
		return err
	}
	flows := make([]render.SVGFlow, 0, len(edges))
	for _, e := range edges {
		st := opts.style
		if st.Label == "" && e.Label != "" {
			st.Label = e.Label
		}
		flows = append(flows, render.SVGFlow{EdgeID: e.ID, Style: st})
	}

	tr, width, height := frameTransform(d, opts.width, opts.height)
	svgOpts := render.DefaultSVGOptions()
	svgOpts.Width, svgOpts.Height = width, height
	svgOpts.FontSize = int(math.Max(8, math.Round(12*tr.Scale)))

	out, errs := render.GenerateSVG(d, tr, svgOpts, flows)
	for _, err := range errs {
		fmt.Fprintf(warn, "skip: %v\n", err)
	}
	if len(flows) > 0 && len(errs) == len(flows) {
		return errors.New("no edge could be animated")
	}
	_, err = io.WriteString(w, out)
	return err
}
