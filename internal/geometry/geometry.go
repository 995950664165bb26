// Package geometry holds the coordinate model shared by both annotation modes.
//
// Annotations are stored in normalized coordinates in [0,1] relative to the
// natural pixel size of the image they belong to. Display boxes are transient
// view state: they are only used to translate pointer positions and are never
// persisted.
package geometry

import "math"

// Point is a 2D point. Depending on context it is either in display pixels,
// natural image pixels or normalized [0,1] space.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Box is the on-screen rectangle an image is currently displayed in.
type Box struct {
	X, Y float64 // Top-left corner in display pixels
	W, H float64 // Displayed size in pixels
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToNormalized converts a display-pixel point into normalized coordinates of
// box. Points outside the box are clamped onto its edge.
func ToNormalized(p Point, box Box) Point {
	if box.Empty() {
		return Point{}
	}
	return Point{
		X: Clamp01((p.X - box.X) / box.W),
		Y: Clamp01((p.Y - box.Y) / box.H),
	}
}

// ToDisplay converts a normalized point into display pixels of box.
func ToDisplay(n Point, box Box) Point {
	return Point{
		X: box.X + n.X*box.W,
		Y: box.Y + n.Y*box.H,
	}
}

// Scale maps a normalized point onto an image of w×h pixels.
func Scale(n Point, w, h int) Point {
	return Point{X: n.X * float64(w), Y: n.Y * float64(h)}
}

// FitBox returns the display box used to show a natW×natH image inside a
// maxW×maxH area. The image is never upscaled.
func FitBox(natW, natH int, maxW, maxH float64) Box {
	if natW <= 0 || natH <= 0 {
		return Box{W: maxW, H: maxH}
	}
	r := math.Min(math.Min(maxW/float64(natW), maxH/float64(natH)), 1)
	return Box{
		W: math.Round(float64(natW) * r),
		H: math.Round(float64(natH) * r),
	}
}

// Fit places a natW×natH image inside rect keeping its aspect ratio and
// centering it ("meet" semantics). The returned box is in the same units as
// rect; scale is the natural→rect factor.
func Fit(natW, natH int, rect Box) (box Box, scale float64) {
	if natW <= 0 || natH <= 0 || rect.Empty() {
		return rect, 1
	}
	scale = math.Min(rect.W/float64(natW), rect.H/float64(natH))
	w := float64(natW) * scale
	h := float64(natH) * scale
	return Box{
		X: rect.X + (rect.W-w)/2,
		Y: rect.Y + (rect.H-h)/2,
		W: w,
		H: h,
	}, scale
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
