package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/archflow/pkg/flow"
)

// glowScale is the radius of the trail glow relative to the marker.
const glowScale = 1.8

type rasterMarker struct {
	style   flow.PacketStyle
	color   colorful.Color
	face    font.Face
	alpha   float64
	x, y    float64
	placed  bool
	heading float64 // radians
}

// Raster draws packets into an RGBA frame. Like Terminal it only records
// state in the flow.Renderer methods; Draw composes a frame.
type Raster struct {
	dc         *gg.Context
	frame      *image.RGBA
	background colorful.Color
	backdrop   func(dc *gg.Context) error
	mounted    bool

	font  *opentype.Font
	faces map[float64]font.Face

	markers  map[flow.Handle]*rasterMarker
	order    []flow.Handle
	next     flow.Handle
	captions []caption
}

// caption is static text drawn on every frame.
type caption struct {
	x, y  float64
	text  string
	color colorful.Color
	face  font.Face
}

// NewRaster creates a raster renderer with a width x height frame.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	return &Raster{
		dc:         gg.NewContext(width, height),
		frame:      image.NewRGBA(image.Rect(0, 0, width, height)),
		background: white,
		mounted:    true,
		font:       fnt,
		faces:      make(map[float64]font.Face),
		markers:    make(map[flow.Handle]*rasterMarker),
	}, nil
}

// SetBackground sets the frame's clear colour.
func (r *Raster) SetBackground(c colorful.Color) { r.background = c }

// SetBackdrop registers a function that draws the static diagram under the
// markers on every frame. Its error aborts the frame.
func (r *Raster) SetBackdrop(fn func(dc *gg.Context) error) { r.backdrop = fn }

// Unmount makes the renderer unavailable to new animations.
func (r *Raster) Unmount() { r.mounted = false }

// Available reports whether the renderer accepts new markers.
func (r *Raster) Available() bool { return r.mounted }

// Create allocates a marker and its label face.
func (r *Raster) Create(style flow.PacketStyle) (flow.Handle, error) {
	c, err := ParseColor(style.Color)
	if err != nil {
		return 0, fmt.Errorf("create marker: %w", err)
	}
	m := &rasterMarker{style: style, color: c, alpha: 1}
	if style.Label != "" {
		face, err := r.face(labelPoints(style.Size))
		if err != nil {
			return 0, fmt.Errorf("create marker: %w", err)
		}
		m.face = face
	}
	r.next++
	r.markers[r.next] = m
	r.order = append(r.order, r.next)
	return r.next, nil
}

// labelPoints sizes label text in proportion to the marker.
func labelPoints(size float64) float64 {
	return math.Max(6, math.Round(size*0.9))
}

func (r *Raster) face(size float64) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = f
	return f, nil
}

// Place moves a marker.
func (r *Raster) Place(h flow.Handle, p flow.Point) {
	if m, ok := r.markers[h]; ok {
		m.x, m.y = p.X, p.Y
		m.placed = true
	}
}

// SetOpacity scales the marker's style opacity.
func (r *Raster) SetOpacity(h flow.Handle, alpha float64) {
	if m, ok := r.markers[h]; ok {
		m.alpha = alpha
	}
}

// SetHeading orients triangle markers along (dx, dy).
func (r *Raster) SetHeading(h flow.Handle, dx, dy float64) {
	if m, ok := r.markers[h]; ok && (dx != 0 || dy != 0) {
		m.heading = math.Atan2(dy, dx)
	}
}

// Destroy removes a marker. Unknown handles are ignored.
func (r *Raster) Destroy(h flow.Handle) {
	if _, ok := r.markers[h]; !ok {
		return
	}
	delete(r.markers, h)
	for i, v := range r.order {
		if v == h {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Live is the number of markers that have not been destroyed.
func (r *Raster) Live() int { return len(r.markers) }

// Draw composes a new frame: background, backdrop, markers, labels.
func (r *Raster) Draw() error {
	dc := r.dc
	bg := r.background
	dc.ClearWithColor(gg.RGB(bg.R, bg.G, bg.B))

	if r.backdrop != nil {
		dc.Push()
		err := r.backdrop(dc)
		dc.Pop()
		if err != nil {
			return fmt.Errorf("draw backdrop: %w", err)
		}
	}

	for _, id := range r.order {
		m := r.markers[id]
		if !m.placed {
			continue
		}
		if err := r.drawMarker(m); err != nil {
			return fmt.Errorf("draw marker %d: %w", id, err)
		}
	}

	draw.Draw(r.frame, r.frame.Bounds(), dc.Image(), image.Point{}, draw.Src)

	for _, c := range r.captions {
		drawCentered(r.frame, c.face, c.text, c.x, c.y, c.color)
	}
	for _, id := range r.order {
		m := r.markers[id]
		if m.placed && m.face != nil {
			r.drawLabel(m)
		}
	}
	return nil
}

// AddCaption adds text centred on p, drawn under the packet labels on
// every frame.
func (r *Raster) AddCaption(p flow.Point, text string, size float64, c colorful.Color) error {
	face, err := r.face(size)
	if err != nil {
		return fmt.Errorf("add caption: %w", err)
	}
	r.captions = append(r.captions, caption{x: p.X, y: p.Y, text: text, color: c, face: face})
	return nil
}

func (r *Raster) drawMarker(m *rasterMarker) error {
	dc := r.dc
	alpha := m.style.Alpha() * m.alpha
	half := m.style.Size / 2
	c := m.color

	if m.style.Trail {
		dc.SetRGBA(c.R, c.G, c.B, alpha*0.3)
		dc.DrawCircle(m.x, m.y, half*glowScale)
		if err := dc.Fill(); err != nil {
			return err
		}
	}

	dc.SetRGBA(c.R, c.G, c.B, alpha)
	switch m.style.Shape {
	case flow.ShapeSquare:
		dc.DrawRectangle(m.x-half, m.y-half, m.style.Size, m.style.Size)
	case flow.ShapeDiamond:
		dc.Push()
		dc.RotateAbout(math.Pi/4, m.x, m.y)
		dc.DrawRectangle(m.x-half, m.y-half, m.style.Size, m.style.Size)
		err := dc.Fill()
		dc.Pop()
		return err
	case flow.ShapeTriangle:
		dc.Push()
		dc.RotateAbout(m.heading, m.x, m.y)
		dc.MoveTo(m.x+half, m.y)
		dc.LineTo(m.x-half, m.y-half)
		dc.LineTo(m.x-half, m.y+half)
		dc.ClosePath()
		err := dc.Fill()
		dc.Pop()
		return err
	default:
		dc.DrawCircle(m.x, m.y, half)
	}
	return dc.Fill()
}

func (r *Raster) drawLabel(m *rasterMarker) {
	alpha := m.style.Alpha() * m.alpha
	fg := Fade(LabelColor(m.color), m.color, alpha)
	drawCentered(r.frame, m.face, m.style.Label, m.x, m.y, fg)
}

// drawCentered draws text with its cap height centred on (x, y).
func drawCentered(dst draw.Image, face font.Face, text string, x, y float64, c colorful.Color) {
	width := font.MeasureString(face, text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(math.Round(x)) - width/2),
			Y: fixed.I(int(math.Round(y)) + int(float64(ascent)*0.35)),
		},
	}
	d.DrawString(text)
}

// Frame returns the last composed frame. It is reused by the next Draw.
func (r *Raster) Frame() *image.RGBA { return r.frame }

// EncodePNG writes the last composed frame as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.frame)
}

// Close releases the drawing context and label faces.
func (r *Raster) Close() error {
	for _, f := range r.faces {
		f.Close()
	}
	r.faces = make(map[float64]font.Face)
	r.captions = nil
	return r.dc.Close()
}
