package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
)

func newRaster(t *testing.T, w, h int) *Raster {
	t.Helper()
	r, err := NewRaster(w, h)
	if err != nil {
		t.Fatalf("NewRaster: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// near reports whether a pixel is within tol of want on every channel.
func near(got color.Color, want color.RGBA, tol uint8) bool {
	r, g, b, _ := got.RGBA()
	diff := func(a uint32, b uint8) bool {
		v := int(a>>8) - int(b)
		return v <= int(tol) && v >= -int(tol)
	}
	return diff(r, want.R) && diff(g, want.G) && diff(b, want.B)
}

var (
	pxWhite = color.RGBA{255, 255, 255, 255}
	pxRed   = color.RGBA{255, 0, 0, 255}
)

func TestNewRasterRejectsEmptyFrame(t *testing.T) {
	if _, err := NewRaster(0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestRasterDrawsShapes(t *testing.T) {
	for _, shape := range flow.Shapes {
		t.Run(string(shape), func(t *testing.T) {
			r := newRaster(t, 80, 60)
			s := flow.DefaultStyle()
			s.Shape = shape
			s.Color = "#ff0000"
			s.Size = 20
			s.Trail = false

			h, err := r.Create(s)
			if err != nil {
				t.Fatal(err)
			}
			r.Place(h, flow.Point{X: 40, Y: 30})
			if err := r.Draw(); err != nil {
				t.Fatal(err)
			}

			f := r.Frame()
			if !near(f.At(40, 30), pxRed, 8) {
				t.Errorf("centre pixel = %v, want red", f.At(40, 30))
			}
			if !near(f.At(2, 2), pxWhite, 0) {
				t.Errorf("corner pixel = %v, want background", f.At(2, 2))
			}
		})
	}
}

func TestRasterHiddenUntilPlaced(t *testing.T) {
	r := newRaster(t, 40, 40)
	s := flow.DefaultStyle()
	s.Color = "#ff0000"
	if _, err := r.Create(s); err != nil {
		t.Fatal(err)
	}
	if err := r.Draw(); err != nil {
		t.Fatal(err)
	}
	for _, p := range [][2]int{{0, 0}, {20, 20}, {39, 39}} {
		if !near(r.Frame().At(p[0], p[1]), pxWhite, 0) {
			t.Fatalf("unplaced marker drawn at %v", p)
		}
	}
}

func TestRasterPlaceDoesNotAllocate(t *testing.T) {
	r := newRaster(t, 40, 40)
	h, _ := r.Create(flow.DefaultStyle())

	x := 0.0
	allocs := testing.AllocsPerRun(100, func() {
		x += 0.5
		r.Place(h, flow.Point{X: x, Y: 20})
	})
	if allocs != 0 {
		t.Errorf("Place allocates %.1f times per call", allocs)
	}
}

func TestRasterDestroyClearsMarker(t *testing.T) {
	r := newRaster(t, 40, 40)
	s := flow.DefaultStyle()
	s.Color = "red"
	s.Size = 16
	h, _ := r.Create(s)
	r.Place(h, flow.Point{X: 20, Y: 20})
	_ = r.Draw()
	if near(r.Frame().At(20, 20), pxWhite, 0) {
		t.Fatal("marker not drawn")
	}

	r.Destroy(h)
	r.Destroy(h)
	_ = r.Draw()
	if !near(r.Frame().At(20, 20), pxWhite, 0) {
		t.Error("destroyed marker still drawn")
	}
	if r.Live() != 0 {
		t.Errorf("Live = %d", r.Live())
	}
}

func TestRasterOpacity(t *testing.T) {
	r := newRaster(t, 40, 40)
	s := flow.DefaultStyle()
	s.Color = "#000000"
	s.Size = 20
	s.Trail = false
	h, _ := r.Create(s)
	r.Place(h, flow.Point{X: 20, Y: 20})

	r.SetOpacity(h, 0.5)
	_ = r.Draw()
	got, _, _, _ := r.Frame().At(20, 20).RGBA()
	if v := got >> 8; v < 100 || v > 160 {
		t.Errorf("half-transparent black on white = %d, want ~128", v)
	}

	r.SetOpacity(h, 0)
	_ = r.Draw()
	if !near(r.Frame().At(20, 20), pxWhite, 2) {
		t.Error("fully faded marker should be invisible")
	}
}

func TestRasterBackdrop(t *testing.T) {
	r := newRaster(t, 40, 40)
	r.SetBackground(colorful.Color{R: 0, G: 0, B: 0})
	r.SetBackdrop(func(dc *gg.Context) error {
		dc.SetRGB(0, 0, 1)
		dc.DrawRectangle(0, 0, 10, 10)
		return dc.Fill()
	})
	if err := r.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if !near(r.Frame().At(5, 5), color.RGBA{0, 0, 255, 255}, 4) {
		t.Errorf("backdrop pixel = %v", r.Frame().At(5, 5))
	}
	if !near(r.Frame().At(30, 30), color.RGBA{0, 0, 0, 255}, 0) {
		t.Errorf("background pixel = %v", r.Frame().At(30, 30))
	}
}

func TestRasterBackdropError(t *testing.T) {
	r := newRaster(t, 40, 40)
	errPaint := errors.New("paint failed")
	r.SetBackdrop(func(dc *gg.Context) error { return errPaint })
	if err := r.Draw(); !errors.Is(err, errPaint) {
		t.Errorf("Draw error = %v, want %v", err, errPaint)
	}
}

func TestRasterLabel(t *testing.T) {
	r := newRaster(t, 80, 80)
	s := flow.DefaultStyle()
	s.Color = "#000080" // dark, so the label is white
	s.Size = 40
	s.Trail = false
	s.Label = "W"
	h, err := r.Create(s)
	if err != nil {
		t.Fatal(err)
	}
	r.Place(h, flow.Point{X: 40, Y: 40})
	_ = r.Draw()

	light := 0
	f := r.Frame()
	for y := 30; y < 50; y++ {
		for x := 30; x < 50; x++ {
			if c, _, _, _ := f.At(x, y).RGBA(); c>>8 > 200 {
				light++
			}
		}
	}
	if light == 0 {
		t.Error("no label pixels drawn inside the marker")
	}
}

func TestRasterEncodePNG(t *testing.T) {
	r := newRaster(t, 32, 24)
	_ = r.Draw()
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("bounds = %v", b)
	}
}

func TestRasterUnmount(t *testing.T) {
	r := newRaster(t, 10, 10)
	if !r.Available() {
		t.Fatal("new raster should be available")
	}
	r.Unmount()
	s := flow.New(r)
	nodes := []diagram.Node{
		{ID: "A", Width: 10, Height: 10},
		{ID: "B", X: 50, Width: 10, Height: 10},
	}
	err := s.Start("e", diagram.Edge{ID: "e", Source: "A", Target: "B"}, nodes, flow.DefaultStyle())
	if err == nil {
		t.Error("Start should fail on an unmounted raster")
	}
}
