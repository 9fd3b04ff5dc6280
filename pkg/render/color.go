// Package render draws packet markers for the flow scheduler.
//
// Two renderers are provided: Terminal, which paints markers as glyphs on a
// tcell screen, and Raster, which draws them into an RGBA frame with gg.
// Both satisfy flow.Renderer and flow.Heading.
package render

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// contrastThreshold is the relative luminance above which labels are
// drawn in black.
const contrastThreshold = 0.179

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// ParseColor accepts "#rgb", "#rrggbb" or a colour name known to tcell
// ("red", "steelblue", ...).
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 4 && len(s) != 7 {
			return colorful.Color{}, fmt.Errorf("invalid colour %q", s)
		}
		c, err := colorful.Hex(strings.ToLower(s))
		if err != nil {
			return colorful.Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		return c, nil
	}
	tc := tcell.GetColor(strings.ToLower(s))
	if tc == tcell.ColorDefault {
		return colorful.Color{}, fmt.Errorf("unknown colour %q", s)
	}
	return fromTcell(tc), nil
}

// ValidColor reports whether ParseColor accepts s.
func ValidColor(s string) bool {
	_, err := ParseColor(s)
	return err == nil
}

// LabelColor picks black or white text for a marker of colour c.
func LabelColor(c colorful.Color) colorful.Color {
	r, g, b := c.LinearRgb()
	if 0.2126*r+0.7152*g+0.0722*b > contrastThreshold {
		return black
	}
	return white
}

// Fade blends c towards bg; alpha 1 is c, alpha 0 is bg.
func Fade(c, bg colorful.Color, alpha float64) colorful.Color {
	switch {
	case alpha >= 1:
		return c
	case alpha <= 0:
		return bg
	}
	return bg.BlendRgb(c, alpha).Clamped()
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func fromTcell(tc tcell.Color) colorful.Color {
	r, g, b := tc.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
