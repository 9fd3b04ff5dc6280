package flow

import (
	"errors"
	"testing"
	"time"
)

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PacketStyle)
		field  string
	}{
		{"default is valid", func(*PacketStyle) {}, ""},
		{"zero size", func(s *PacketStyle) { s.Size = 0 }, "size"},
		{"negative speed", func(s *PacketStyle) { s.Speed = -1 }, "speed"},
		{"zero frequency", func(s *PacketStyle) { s.Frequency = 0 }, "frequency"},
		{"missing colour", func(s *PacketStyle) { s.Color = "  " }, "color"},
		{"unknown shape", func(s *PacketStyle) { s.Shape = "hexagon" }, "shape"},
		{"opacity above one", func(s *PacketStyle) { s.Opacity = 1.5 }, "opacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			tt.mutate(&s)
			err := s.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var se *InvalidStyleError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *InvalidStyleError", err)
			}
			if se.Field != tt.field {
				t.Errorf("Field = %q, want %q", se.Field, tt.field)
			}
			if !errors.Is(err, ErrInvalidStyle) {
				t.Error("errors.Is(err, ErrInvalidStyle) = false")
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	for _, sh := range Shapes {
		got, err := ParseShape(" " + string(sh) + " ")
		if err != nil || got != sh {
			t.Errorf("ParseShape(%q) = %q, %v", sh, got, err)
		}
	}
	if got, err := ParseShape("Diamond"); err != nil || got != ShapeDiamond {
		t.Errorf("ParseShape is case-insensitive, got %q, %v", got, err)
	}
	if _, err := ParseShape("star"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestStyleTimings(t *testing.T) {
	s := PacketStyle{Speed: 1.5, Frequency: 4}
	if s.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration = %v", s.Duration())
	}
	if s.Interval() != 250*time.Millisecond {
		t.Errorf("Interval = %v", s.Interval())
	}
	if s.ReturnDelay() != 750*time.Millisecond {
		t.Errorf("ReturnDelay = %v", s.ReturnDelay())
	}
	if s.MaxLive() != 7 {
		t.Errorf("MaxLive = %d, want ceil(6)+1", s.MaxLive())
	}
}

func TestReturnVariant(t *testing.T) {
	s := DefaultStyle()
	s.Bidirectional = true
	s.Label = "req"

	r := s.ReturnVariant(0.6)
	if r.Alpha() != 0.6 {
		t.Errorf("return alpha = %g, want 0.6", r.Alpha())
	}
	if r.Bidirectional {
		t.Error("return packets should not spawn their own returns")
	}
	if r.Color != s.Color || r.Shape != s.Shape || r.Size != s.Size || r.Label != s.Label {
		t.Errorf("return variant changed the marker: %+v", r)
	}

	s.Opacity = 0.5
	if got := s.ReturnVariant(0.6).Alpha(); !approx(got, 0.3) {
		t.Errorf("return alpha of half-opaque style = %g, want 0.3", got)
	}
}
