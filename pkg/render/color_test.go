package render

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		wantErr bool
	}{
		{"#3b82f6", 0x3b, 0x82, 0xf6, false},
		{"#FFF", 255, 255, 255, false},
		{" #000000 ", 0, 0, 0, false},
		{"red", 255, 0, 0, false},
		{"#12345", 0, 0, 0, true},
		{"not-a-colour", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", c)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			r, g, b := c.RGB255()
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("RGB = %d,%d,%d, want %d,%d,%d", r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestLabelColor(t *testing.T) {
	tests := []struct {
		bg   string
		want colorful.Color
	}{
		{"#ffffff", black},
		{"#ffff00", black},
		{"#3b82f6", black},
		{"#b91c1c", white},
		{"#000080", white},
		{"#000000", white},
	}
	for _, tt := range tests {
		c, _ := ParseColor(tt.bg)
		if got := LabelColor(c); got != tt.want {
			t.Errorf("LabelColor(%s) = %v, want %v", tt.bg, got.Hex(), tt.want.Hex())
		}
	}
}

func TestFade(t *testing.T) {
	c := colorful.Color{R: 1, G: 0, B: 0}
	bg := colorful.Color{R: 0, G: 0, B: 1}
	if Fade(c, bg, 1) != c {
		t.Error("alpha 1 should keep the colour")
	}
	if Fade(c, bg, 0) != bg {
		t.Error("alpha 0 should give the background")
	}
	mid := Fade(c, bg, 0.5)
	if mid.R < 0.49 || mid.R > 0.51 || mid.B < 0.49 || mid.B > 0.51 {
		t.Errorf("Fade 0.5 = %+v", mid)
	}
}
