package geometry

import "math"

// MinRegionSize is the smallest accepted width and height of a hotspot region.
// Anything smaller is treated as an accidental click.
const MinRegionSize = 0.01

// Region is a normalized axis-aligned rectangle on a stage image.
type Region struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// RegionFromDrag builds the rectangle spanned by a drag from a to b,
// independent of the drag direction.
func RegionFromDrag(a, b Point) Region {
	a = Point{X: Clamp01(a.X), Y: Clamp01(a.Y)}
	b = Point{X: Clamp01(b.X), Y: Clamp01(b.Y)}
	return Region{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(a.X - b.X),
		H: math.Abs(a.Y - b.Y),
	}
}

// Valid reports whether the region is large enough to become a step.
// A small epsilon keeps drags of exactly MinRegionSize from being rejected
// by floating point noise.
func (r Region) Valid() bool {
	const eps = 1e-9
	return r.W+eps >= MinRegionSize && r.H+eps >= MinRegionSize
}

// Pixels returns the region in natural pixels of a natW×natH image.
func (r Region) Pixels(natW, natH int) Box {
	return Box{
		X: r.X * float64(natW),
		Y: r.Y * float64(natH),
		W: r.W * float64(natW),
		H: r.H * float64(natH),
	}
}

// Within maps the region onto an image that has been fitted into box with
// the given natural→box scale.
func (r Region) Within(natW, natH int, box Box, scale float64) Box {
	px := r.Pixels(natW, natH)
	return Box{
		X: box.X + px.X*scale,
		Y: box.Y + px.Y*scale,
		W: px.W * scale,
		H: px.H * scale,
	}
}
