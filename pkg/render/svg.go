package render

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
)

// SVGOptions controls animated SVG export.
type SVGOptions struct {
	Width    int    // canvas width in pixels
	Height   int    // canvas height in pixels
	Title    string // diagram title
	FontSize int    // node label size
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:    800,
		Height:   600,
		FontSize: 14,
	}
}

// SVGFlow is one animated edge in an SVG export.
type SVGFlow struct {
	EdgeID string
	Style  flow.PacketStyle
}

// GenerateSVG renders the diagram with packets animated by SMIL along each
// flow's connector. tr maps world coordinates onto the canvas. Every
// packet slot repeats with a period of one spawn cycle, so the output
// loops forever with the same cadence the scheduler uses. Flows whose
// edge cannot be resolved are returned as errors and left out.
func GenerateSVG(d *diagram.Diagram, tr flow.Transform, opts SVGOptions, flows []SVGFlow) (string, []error) {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}
	if opts.FontSize == 0 {
		opts.FontSize = 14
	}

	var sb strings.Builder
	var errs []error

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="#999"/>
  </marker>
</defs>
<style>
  .node { fill: #f5f7fc; stroke: #4d5973; stroke-width: 1.5; }
  .node-label { font-family: sans-serif; font-size: %dpx; fill: #333; text-anchor: middle; dominant-baseline: middle; }
  .edge { fill: none; stroke: #999; stroke-width: 1.5; marker-end: url(#arrowhead); }
  .packet-label { font-family: sans-serif; text-anchor: middle; dominant-baseline: central; }
  .title { font-family: sans-serif; font-size: %dpx; font-weight: bold; text-anchor: middle; }
</style>
<rect width="%d" height="%d" fill="white"/>
`, opts.Width, opts.Height, opts.Width, opts.Height, opts.FontSize, opts.FontSize+4, opts.Width, opts.Height))

	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="25" class="title">%s</text>
`, opts.Width/2, html.EscapeString(opts.Title)))
	}

	paths := make(map[string]string, len(d.Edges))
	for _, e := range d.Edges {
		source, ok1 := d.NodeByID(e.Source)
		target, ok2 := d.NodeByID(e.Target)
		if !ok1 || !ok2 {
			continue
		}
		c := flow.ComputeCurve(source, target).Map(tr)
		paths[e.ID] = svgPath(c)
		sb.WriteString(fmt.Sprintf(`<path id="edge-%s" d="%s" class="edge"/>
`, html.EscapeString(e.ID), paths[e.ID]))
	}

	for _, n := range d.Nodes {
		p := tr.ToSurface(flow.Point{X: n.X, Y: n.Y})
		w, h := n.Width*tr.Scale, n.Height*tr.Scale
		label := n.Label
		if label == "" {
			label = n.ID
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" class="node"/>
<text x="%.1f" y="%.1f" class="node-label">%s</text>
`, p.X, p.Y, w, h, 6*tr.Scale, p.X+w/2, p.Y+h/2, html.EscapeString(label)))
	}

	for _, f := range flows {
		e, ok := d.EdgeByID(f.EdgeID)
		if !ok {
			errs = append(errs, fmt.Errorf("no edge %q", f.EdgeID))
			continue
		}
		if _, ok := d.NodeByID(e.Source); !ok {
			errs = append(errs, &flow.EdgeResolutionError{EdgeID: e.ID, NodeID: e.Source, End: "source"})
			continue
		}
		if _, ok := d.NodeByID(e.Target); !ok {
			errs = append(errs, &flow.EdgeResolutionError{EdgeID: e.ID, NodeID: e.Target, End: "target"})
			continue
		}
		if err := f.Style.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("edge %q: %w", e.ID, err))
			continue
		}
		if !ValidColor(f.Style.Color) {
			errs = append(errs, fmt.Errorf("edge %q: %w", e.ID,
				&flow.InvalidStyleError{Field: "color", Reason: fmt.Sprintf("%q is not a colour", f.Style.Color)}))
			continue
		}
		writeFlow(&sb, paths[e.ID], f.Style, false)
		if f.Style.Bidirectional {
			writeFlow(&sb, paths[e.ID], f.Style.ReturnVariant(flow.DefaultReturnOpacity), true)
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String(), errs
}

func svgPath(c flow.Curve) string {
	return fmt.Sprintf("M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f",
		c.Start.X, c.Start.Y, c.Control1.X, c.Control1.Y,
		c.Control2.X, c.Control2.Y, c.End.X, c.End.Y)
}

// writeFlow emits one group per packet slot. A slot is visible while its
// packet travels and hidden for the rest of the cycle.
func writeFlow(sb *strings.Builder, path string, style flow.PacketStyle, isReturn bool) {
	c, _ := ParseColor(style.Color)
	slots := max(1, int(math.Ceil(style.Speed*style.Frequency-1e-9)))
	interval := style.Interval().Seconds()
	travel := style.Duration().Seconds()
	period := float64(slots) * interval
	frac := math.Min(travel/period, 1)

	keyPoints := "0;1;1"
	offset := 0.0
	if isReturn {
		keyPoints = "1;0;0"
		offset = style.ReturnDelay().Seconds()
	}
	alpha := style.Alpha()
	hex := c.Hex()
	rotate := "0"
	if style.Shape == flow.ShapeTriangle {
		rotate = "auto"
	}

	for i := 0; i < slots; i++ {
		begin := float64(i+1)*interval + offset
		sb.WriteString(`<g opacity="0">
`)
		sb.WriteString(packetShape(style, hex))
		if style.Label != "" {
			sb.WriteString(fmt.Sprintf(`  <text class="packet-label" font-size="%.0f" fill="%s">%s</text>
`, labelPoints(style.Size), LabelColor(c).Hex(), html.EscapeString(style.Label)))
		}
		sb.WriteString(fmt.Sprintf(`  <animateMotion dur="%gs" begin="%gs" repeatCount="indefinite" calcMode="linear" keyPoints="%s" keyTimes="0;%g;1" rotate="%s" path="%s"/>
  <animate attributeName="opacity" dur="%gs" begin="%gs" repeatCount="indefinite" calcMode="discrete" values="%g;0" keyTimes="0;%g"/>
</g>
`, period, begin, keyPoints, frac, rotate, path, period, begin, alpha, frac))
	}
}

func packetShape(style flow.PacketStyle, hex string) string {
	half := style.Size / 2
	var sb strings.Builder
	if style.Trail {
		sb.WriteString(fmt.Sprintf(`  <circle r="%g" fill="%s" opacity="0.3"/>
`, half*glowScale, hex))
	}
	switch style.Shape {
	case flow.ShapeSquare:
		sb.WriteString(fmt.Sprintf(`  <rect x="%g" y="%g" width="%g" height="%g" fill="%s"/>
`, -half, -half, style.Size, style.Size, hex))
	case flow.ShapeDiamond:
		sb.WriteString(fmt.Sprintf(`  <rect x="%g" y="%g" width="%g" height="%g" fill="%s" transform="rotate(45)"/>
`, -half, -half, style.Size, style.Size, hex))
	case flow.ShapeTriangle:
		sb.WriteString(fmt.Sprintf(`  <polygon points="%g 0, %g %g, %g %g" fill="%s"/>
`, half, -half, -half, -half, half, hex))
	default:
		sb.WriteString(fmt.Sprintf(`  <circle r="%g" fill="%s"/>
`, half, hex))
	}
	return sb.String()
}
