package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/ha1tch/archflow/pkg/flow"
)

// Default size of one terminal cell in surface pixels.
const (
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

const trailLen = 2

type cellPos struct{ x, y int }

type termMarker struct {
	style  flow.PacketStyle
	color  colorful.Color
	label  string
	labelW int
	alpha  float64
	pos    cellPos
	placed bool
	trail  [trailLen]cellPos
	trails int
	dx, dy float64
}

// Terminal draws packets as glyphs on a tcell screen. Surface coordinates
// are mapped to cells by the cell size. Markers are only recorded by the
// flow.Renderer methods; Draw paints them, normally once per frame after
// the diagram has been drawn.
type Terminal struct {
	screen     tcell.Screen
	cellW      float64
	cellH      float64
	background colorful.Color

	markers map[flow.Handle]*termMarker
	order   []flow.Handle
	next    flow.Handle
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithCellSize sets how many surface pixels one cell covers.
func WithCellSize(w, h float64) TerminalOption {
	return func(t *Terminal) {
		if w > 0 && h > 0 {
			t.cellW, t.cellH = w, h
		}
	}
}

// WithBackground sets the colour faded markers blend towards.
func WithBackground(c colorful.Color) TerminalOption {
	return func(t *Terminal) { t.background = c }
}

// NewTerminal creates a terminal renderer. screen may be nil and mounted
// later.
func NewTerminal(screen tcell.Screen, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		screen:  screen,
		cellW:   DefaultCellWidth,
		cellH:   DefaultCellHeight,
		markers: make(map[flow.Handle]*termMarker),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mount attaches the renderer to a screen.
func (t *Terminal) Mount(screen tcell.Screen) { t.screen = screen }

// Unmount detaches the screen. Existing markers are kept until destroyed.
func (t *Terminal) Unmount() { t.screen = nil }

// Available reports whether a screen is mounted.
func (t *Terminal) Available() bool { return t.screen != nil }

// CellSize returns the surface size of one cell.
func (t *Terminal) CellSize() (w, h float64) { return t.cellW, t.cellH }

// Create allocates a marker. It fails on colours that cannot be parsed.
func (t *Terminal) Create(style flow.PacketStyle) (flow.Handle, error) {
	c, err := ParseColor(style.Color)
	if err != nil {
		return 0, fmt.Errorf("create marker: %w", err)
	}
	t.next++
	m := &termMarker{
		style: style,
		color: c,
		alpha: 1,
		dx:    1,
	}
	if style.Label != "" {
		m.label = runewidth.Truncate(style.Label, labelCells(style.Size, t.cellW), "…")
		m.labelW = runewidth.StringWidth(m.label)
	}
	t.markers[t.next] = m
	t.order = append(t.order, t.next)
	return t.next, nil
}

// labelCells is the label budget for a marker of the given size.
func labelCells(size, cellW float64) int {
	n := int(math.Ceil(size * 2 / cellW))
	if n < 1 {
		n = 1
	}
	return n
}

// Place moves a marker. Leaving a cell pushes it onto the trail.
func (t *Terminal) Place(h flow.Handle, p flow.Point) {
	m, ok := t.markers[h]
	if !ok {
		return
	}
	c := cellPos{int(math.Floor(p.X / t.cellW)), int(math.Floor(p.Y / t.cellH))}
	if m.placed && c != m.pos && m.style.Trail {
		copy(m.trail[1:], m.trail[:trailLen-1])
		m.trail[0] = m.pos
		if m.trails < trailLen {
			m.trails++
		}
	}
	m.pos = c
	m.placed = true
}

// SetOpacity scales the marker's style opacity.
func (t *Terminal) SetOpacity(h flow.Handle, alpha float64) {
	if m, ok := t.markers[h]; ok {
		m.alpha = alpha
	}
}

// SetHeading records the travel direction used by triangle markers.
func (t *Terminal) SetHeading(h flow.Handle, dx, dy float64) {
	if m, ok := t.markers[h]; ok && (dx != 0 || dy != 0) {
		m.dx, m.dy = dx, dy
	}
}

// Destroy removes a marker. Unknown handles are ignored.
func (t *Terminal) Destroy(h flow.Handle) {
	if _, ok := t.markers[h]; !ok {
		return
	}
	delete(t.markers, h)
	for i, v := range t.order {
		if v == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Live is the number of markers that have not been destroyed.
func (t *Terminal) Live() int { return len(t.markers) }

// Cell returns the cell a marker currently occupies.
func (t *Terminal) Cell(h flow.Handle) (x, y int, ok bool) {
	m, ok := t.markers[h]
	if !ok || !m.placed {
		return 0, 0, false
	}
	return m.pos.x, m.pos.y, true
}

// Draw paints every placed marker onto the screen, oldest first.
func (t *Terminal) Draw() {
	if t.screen == nil {
		return
	}
	w, h := t.screen.Size()
	for _, id := range t.order {
		m := t.markers[id]
		if !m.placed {
			continue
		}
		alpha := m.style.Alpha() * m.alpha

		for i := m.trails - 1; i >= 0; i-- {
			p := m.trail[i]
			if p == m.pos {
				continue
			}
			fade := alpha * 0.5 / float64(i+1)
			t.setCell(p.x, p.y, w, h, '·', t.style(Fade(m.color, t.background, fade)))
		}

		t.setCell(m.pos.x, m.pos.y, w, h, glyph(m), t.style(Fade(m.color, t.background, alpha)))

		if m.label != "" {
			fg := Fade(LabelColor(m.color), t.background, alpha)
			bg := Fade(m.color, t.background, alpha)
			st := tcell.StyleDefault.Foreground(toTcell(fg)).Background(toTcell(bg))
			// Centred on the marker cell, covering the glyph.
			x := m.pos.x - m.labelW/2
			for _, r := range m.label {
				t.setCell(x, m.pos.y, w, h, r, st)
				x += runewidth.RuneWidth(r)
			}
		}
	}
}

func (t *Terminal) style(fg colorful.Color) tcell.Style {
	return tcell.StyleDefault.Foreground(toTcell(fg)).Background(toTcell(t.background))
}

func (t *Terminal) setCell(x, y, w, h int, r rune, st tcell.Style) {
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	t.screen.SetContent(x, y, r, nil, st)
}

func glyph(m *termMarker) rune {
	switch m.style.Shape {
	case flow.ShapeSquare:
		return '■'
	case flow.ShapeDiamond:
		return '◆'
	case flow.ShapeTriangle:
		if math.Abs(m.dx) >= math.Abs(m.dy) {
			if m.dx < 0 {
				return '◀'
			}
			return '▶'
		}
		if m.dy < 0 {
			return '▲'
		}
		return '▼'
	}
	return '●'
}
