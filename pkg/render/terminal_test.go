package render

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
)

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	s.SetSize(40, 10)
	t.Cleanup(s.Fini)
	return s
}

func style(shape flow.Shape) flow.PacketStyle {
	s := flow.DefaultStyle()
	s.Shape = shape
	s.Trail = false
	return s
}

func TestTerminalAvailable(t *testing.T) {
	term := NewTerminal(nil)
	if term.Available() {
		t.Error("unmounted terminal should not be available")
	}
	term.Mount(newSimScreen(t))
	if !term.Available() {
		t.Error("mounted terminal should be available")
	}
	term.Unmount()
	if term.Available() {
		t.Error("Unmount should make the terminal unavailable")
	}
}

func TestTerminalPlaceMapsPixelsToCells(t *testing.T) {
	screen := newSimScreen(t)
	term := NewTerminal(screen)

	h, err := term.Create(style(flow.ShapeCircle))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := term.Cell(h); ok {
		t.Error("marker should be hidden until placed")
	}

	term.Place(h, flow.Point{X: 44, Y: 35})
	x, y, ok := term.Cell(h)
	if !ok || x != 5 || y != 2 {
		t.Fatalf("Cell = (%d,%d,%v), want (5,2)", x, y, ok)
	}

	term.Draw()
	if r, _, _, _ := screen.GetContent(5, 2); r != '●' {
		t.Errorf("cell (5,2) = %q, want ●", r)
	}
}

func TestTerminalGlyphs(t *testing.T) {
	tests := []struct {
		shape  flow.Shape
		dx, dy float64
		want   rune
	}{
		{flow.ShapeCircle, 1, 0, '●'},
		{flow.ShapeSquare, 1, 0, '■'},
		{flow.ShapeDiamond, 1, 0, '◆'},
		{flow.ShapeTriangle, 1, 0.2, '▶'},
		{flow.ShapeTriangle, -3, 1, '◀'},
		{flow.ShapeTriangle, 0.1, -2, '▲'},
		{flow.ShapeTriangle, 0, 5, '▼'},
	}
	for _, tt := range tests {
		t.Run(string(tt.shape), func(t *testing.T) {
			screen := newSimScreen(t)
			term := NewTerminal(screen)
			h, err := term.Create(style(tt.shape))
			if err != nil {
				t.Fatal(err)
			}
			term.SetHeading(h, tt.dx, tt.dy)
			term.Place(h, flow.Point{X: 8, Y: 16})
			term.Draw()
			if r, _, _, _ := screen.GetContent(1, 1); r != tt.want {
				t.Errorf("glyph = %q, want %q", r, tt.want)
			}
		})
	}
}

func TestTerminalTrail(t *testing.T) {
	screen := newSimScreen(t)
	term := NewTerminal(screen)
	s := style(flow.ShapeCircle)
	s.Trail = true
	h, _ := term.Create(s)

	for _, x := range []float64{8, 16, 24, 32} {
		term.Place(h, flow.Point{X: x, Y: 0})
	}
	term.Draw()

	if r, _, _, _ := screen.GetContent(4, 0); r != '●' {
		t.Errorf("head = %q", r)
	}
	for _, x := range []int{2, 3} {
		if r, _, _, _ := screen.GetContent(x, 0); r != '·' {
			t.Errorf("trail cell %d = %q, want ·", x, r)
		}
	}
	if r, _, _, _ := screen.GetContent(1, 0); r == '·' {
		t.Error("trail longer than its limit")
	}
}

func TestTerminalOpacityFadesToBackground(t *testing.T) {
	screen := newSimScreen(t)
	bg := colorful.Color{R: 0, G: 0, B: 0}
	term := NewTerminal(screen, WithBackground(bg))
	s := style(flow.ShapeSquare)
	s.Color = "#ffffff"
	h, _ := term.Create(s)
	term.Place(h, flow.Point{})

	term.Draw()
	_, _, st, _ := screen.GetContent(0, 0)
	fg, _, _ := st.Decompose()
	if r, g, b := fg.RGB(); r != 255 || g != 255 || b != 255 {
		t.Errorf("opaque marker colour = %d,%d,%d", r, g, b)
	}

	term.SetOpacity(h, 0)
	term.Draw()
	_, _, st, _ = screen.GetContent(0, 0)
	fg, _, _ = st.Decompose()
	if r, g, b := fg.RGB(); r != 0 || g != 0 || b != 0 {
		t.Errorf("transparent marker colour = %d,%d,%d, want the background", r, g, b)
	}
}

func TestTerminalLabel(t *testing.T) {
	screen := newSimScreen(t)
	term := NewTerminal(screen)
	s := style(flow.ShapeCircle)
	s.Label = "request"
	s.Size = 16 // four cells of label
	h, _ := term.Create(s)
	term.Place(h, flow.Point{X: 80, Y: 0}) // cell 10
	term.Draw()

	got := ""
	for x := 8; x <= 11; x++ {
		r, _, _, _ := screen.GetContent(x, 0)
		got += string(r)
	}
	if got != "req…" {
		t.Errorf("label cells = %q, want %q", got, "req…")
	}
	for _, x := range []int{7, 12} {
		if r, _, _, _ := screen.GetContent(x, 0); r != ' ' {
			t.Errorf("cell %d = %q, label should not spill past its width", x, r)
		}
	}
}

func TestTerminalLabelCentredOnMarker(t *testing.T) {
	screen := newSimScreen(t)
	term := NewTerminal(screen)
	s := style(flow.ShapeCircle)
	s.Label = "GET"
	s.Size = 12 // three cells of label
	h, _ := term.Create(s)
	term.Place(h, flow.Point{X: 80, Y: 16}) // cell (10,1)
	term.Draw()

	for x, want := range map[int]rune{9: 'G', 10: 'E', 11: 'T'} {
		if r, _, _, _ := screen.GetContent(x, 1); r != want {
			t.Errorf("cell %d = %q, want %q", x, r, want)
		}
	}
}

func TestTerminalPlaceDoesNotAllocate(t *testing.T) {
	term := NewTerminal(newSimScreen(t))
	s := style(flow.ShapeCircle)
	s.Trail = true
	h, _ := term.Create(s)

	x := 0.0
	allocs := testing.AllocsPerRun(100, func() {
		x += 8
		term.Place(h, flow.Point{X: x, Y: 20})
	})
	if allocs != 0 {
		t.Errorf("Place allocates %.1f times per call", allocs)
	}
}

func TestTerminalDestroy(t *testing.T) {
	term := NewTerminal(newSimScreen(t))
	a, _ := term.Create(style(flow.ShapeCircle))
	b, _ := term.Create(style(flow.ShapeCircle))
	term.Destroy(a)
	term.Destroy(a)
	term.Destroy(999)
	if term.Live() != 1 {
		t.Errorf("Live = %d, want 1", term.Live())
	}
	term.Place(a, flow.Point{X: 1, Y: 1}) // ignored
	if _, _, ok := term.Cell(a); ok {
		t.Error("destroyed marker should not be placeable")
	}
	term.Destroy(b)
	if term.Live() != 0 {
		t.Errorf("Live = %d, want 0", term.Live())
	}
}

func TestTerminalRejectsBadColour(t *testing.T) {
	term := NewTerminal(newSimScreen(t))
	s := style(flow.ShapeCircle)
	s.Color = "#zzz"
	if _, err := term.Create(s); err == nil {
		t.Error("expected error for an unparseable colour")
	}
	if term.Live() != 0 {
		t.Error("failed Create should not allocate")
	}
}

func TestTerminalWithScheduler(t *testing.T) {
	term := NewTerminal(newSimScreen(t))
	clk := &flow.ManualClock{}
	s := flow.New(term, flow.WithClock(clk))

	nodes := []diagram.Node{
		{ID: "A", X: 0, Y: 0, Width: 80, Height: 32},
		{ID: "B", X: 200, Y: 64, Width: 80, Height: 32},
	}
	st := flow.DefaultStyle()
	st.Frequency = 4
	if err := s.Start("ab", diagram.Edge{ID: "ab", Source: "A", Target: "B"}, nodes, st); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		clk.Advance(20 * time.Millisecond)
		s.Tick()
		term.Draw()
	}
	if term.Live() == 0 || term.Live() != s.LiveCount("ab") {
		t.Errorf("terminal holds %d markers, scheduler %d", term.Live(), s.LiveCount("ab"))
	}
	s.Close()
	if term.Live() != 0 {
		t.Errorf("%d markers left after Close", term.Live())
	}
}
