package flow

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Shape is the marker shape of a packet.
type Shape string

const (
	ShapeCircle   Shape = "circle"
	ShapeSquare   Shape = "square"
	ShapeDiamond  Shape = "diamond"
	ShapeTriangle Shape = "triangle"
)

// Shapes lists every supported shape, in configuration-panel order.
var Shapes = []Shape{ShapeCircle, ShapeSquare, ShapeDiamond, ShapeTriangle}

// ParseShape converts a name to a Shape.
func ParseShape(s string) (Shape, error) {
	sh := Shape(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Shapes {
		if sh == known {
			return sh, nil
		}
	}
	return "", fmt.Errorf("unknown shape %q", s)
}

// PacketStyle configures the packets spawned on one edge.
type PacketStyle struct {
	Size          float64 // marker size in surface pixels
	Color         string  // "#rrggbb", "#rgb" or a colour name
	Shape         Shape
	Speed         float64 // seconds to traverse the edge
	Frequency     float64 // packets per second
	Bidirectional bool
	Trail         bool
	Label         string
	Opacity       float64 // 0 means fully opaque
}

// DefaultStyle returns the style the configuration panel starts with.
func DefaultStyle() PacketStyle {
	return PacketStyle{
		Size:      8,
		Color:     "#3b82f6",
		Shape:     ShapeCircle,
		Speed:     2,
		Frequency: 1,
		Trail:     true,
	}
}

// Validate checks required fields. Range limits beyond positivity are the
// configuration panel's business.
func (s PacketStyle) Validate() error {
	switch {
	case !(s.Size > 0):
		return &InvalidStyleError{Field: "size", Reason: fmt.Sprintf("must be positive, got %g", s.Size)}
	case !(s.Speed > 0):
		return &InvalidStyleError{Field: "speed", Reason: fmt.Sprintf("must be positive, got %g", s.Speed)}
	case !(s.Frequency > 0):
		return &InvalidStyleError{Field: "frequency", Reason: fmt.Sprintf("must be positive, got %g", s.Frequency)}
	case strings.TrimSpace(s.Color) == "":
		return &InvalidStyleError{Field: "color", Reason: "missing"}
	case s.Opacity < 0 || s.Opacity > 1:
		return &InvalidStyleError{Field: "opacity", Reason: fmt.Sprintf("must be within [0,1], got %g", s.Opacity)}
	}
	if _, err := ParseShape(string(s.Shape)); err != nil {
		return &InvalidStyleError{Field: "shape", Reason: err.Error()}
	}
	return nil
}

// Alpha returns the effective opacity.
func (s PacketStyle) Alpha() float64 {
	if s.Opacity == 0 {
		return 1
	}
	return s.Opacity
}

// Duration is the traversal time of one packet.
func (s PacketStyle) Duration() time.Duration {
	return time.Duration(s.Speed * float64(time.Second))
}

// Interval is the time between two spawns.
func (s PacketStyle) Interval() time.Duration {
	return time.Duration(float64(time.Second) / s.Frequency)
}

// ReturnDelay is how long after a forward spawn its return packet starts.
func (s PacketStyle) ReturnDelay() time.Duration {
	return time.Duration(s.Speed * 0.5 * float64(time.Second))
}

// ReturnVariant is the style of the packets flowing back on a
// bidirectional edge: the same marker at reduced opacity.
func (s PacketStyle) ReturnVariant(opacity float64) PacketStyle {
	r := s
	r.Opacity = s.Alpha() * opacity
	r.Bidirectional = false
	return r
}

// MaxLive is the most packets one unidirectional edge can show at once.
func (s PacketStyle) MaxLive() int {
	n := s.Speed * s.Frequency
	return int(math.Ceil(n)) + 1
}
