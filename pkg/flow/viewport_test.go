package flow

import (
	"math"
	"testing"

	"github.com/gogpu/gg"
)

func TestResolveTransform(t *testing.T) {
	zoomed := Transform{Scale: 1.5, TranslateX: 40, TranslateY: -12}

	tests := []struct {
		name    string
		surface Surface
		want    Transform
	}{
		{"nil surface", nil, Identity()},
		{"unmounted", SurfaceFunc(func() (Transform, bool) { return zoomed, false }), Identity()},
		{"mounted", SurfaceFunc(func() (Transform, bool) { return zoomed, true }), zoomed},
		{"zero scale", SurfaceFunc(func() (Transform, bool) { return Transform{}, true }), Identity()},
		{"NaN scale", SurfaceFunc(func() (Transform, bool) { return Transform{Scale: math.NaN()}, true }), Identity()},
		{"infinite pan", SurfaceFunc(func() (Transform, bool) {
			return Transform{Scale: 1, TranslateX: math.Inf(1)}, true
		}), Identity()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTransform(tt.surface); got != tt.want {
				t.Errorf("ResolveTransform = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToSurface(t *testing.T) {
	tr := Transform{Scale: 2, TranslateX: 10, TranslateY: 20}
	got := tr.ToSurface(Point{5, 7})
	if got != (Point{20, 34}) {
		t.Errorf("ToSurface = %+v, want {20 34}", got)
	}
	back := tr.ToWorld(got)
	if back != (Point{5, 7}) {
		t.Errorf("ToWorld = %+v, want {5 7}", back)
	}
	if Identity().ToSurface(Point{3, 4}) != (Point{3, 4}) {
		t.Error("identity should not move points")
	}
}

func TestTransformMatrixAgrees(t *testing.T) {
	tr := Transform{Scale: 0.5, TranslateX: -30, TranslateY: 8}
	m := tr.Matrix()
	for _, p := range []Point{{0, 0}, {100, 50}, {-20, 300}} {
		want := tr.ToSurface(p)
		got := m.TransformPoint(gg.Pt(p.X, p.Y))
		if !approx(got.X, want.X) || !approx(got.Y, want.Y) {
			t.Errorf("matrix maps %+v to %+v, want %+v", p, got, want)
		}
	}
	if !Identity().Matrix().IsIdentity() {
		t.Error("identity transform should give the identity matrix")
	}
	if !Identity().IsIdentity() || tr.IsIdentity() {
		t.Error("IsIdentity mismatch")
	}
}
