package geometry

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ShapeType enumerates the freehand annotation tools.
type ShapeType string

const (
	ShapeRect   ShapeType = "rect"
	ShapeCircle ShapeType = "circle"
	ShapeLine   ShapeType = "line"
	ShapeArrow  ShapeType = "arrow"
)

// ParseShapeType validates a tool name.
func ParseShapeType(s string) (ShapeType, error) {
	switch t := ShapeType(strings.ToLower(strings.TrimSpace(s))); t {
	case ShapeRect, ShapeCircle, ShapeLine, ShapeArrow:
		return t, nil
	case "":
		return ShapeRect, nil
	default:
		return "", fmt.Errorf("unknown shape type: %s", s)
	}
}

// Shape is a single vector annotation. (X1,Y1) is the drag anchor and (X2,Y2)
// the live end point; both are normalized to the natural image size. There is
// no ordering between the two points.
type Shape struct {
	ID    string    `yaml:"id"`
	Type  ShapeType `yaml:"type"`
	Color string    `yaml:"color"`
	X1    float64   `yaml:"x1"`
	Y1    float64   `yaml:"y1"`
	X2    float64   `yaml:"x2"`
	Y2    float64   `yaml:"y2"`
}

// NewShape creates a zero-length shape anchored at n.
func NewShape(id string, t ShapeType, col string, n Point) Shape {
	n = Point{X: Clamp01(n.X), Y: Clamp01(n.Y)}
	return Shape{ID: id, Type: t, Color: col, X1: n.X, Y1: n.Y, X2: n.X, Y2: n.Y}
}

// WithEnd returns a copy of s whose end point is n (clamped).
func (s Shape) WithEnd(n Point) Shape {
	s.X2 = Clamp01(n.X)
	s.Y2 = Clamp01(n.Y)
	return s
}

// Start returns the anchor point.
func (s Shape) Start() Point { return Point{X: s.X1, Y: s.Y1} }

// End returns the end point.
func (s Shape) End() Point { return Point{X: s.X2, Y: s.Y2} }

// DefaultColor is the stroke colour used when a shape carries none.
var DefaultColor = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}

// ParseColor parses "#rgb" or "#rrggbb" into an opaque RGBA colour.
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// RGBA returns the parsed colour of the shape, falling back to DefaultColor.
func (s Shape) RGBA() color.RGBA {
	c, err := ParseColor(s.Color)
	if err != nil {
		return DefaultColor
	}
	return c
}
