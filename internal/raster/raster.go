// Package raster contains the antialiased drawing primitives shared by shape
// baking and page rendering. Paths are flattened into polygons and filled
// with golang.org/x/image/vector; strokes are rings made of an outer path and
// a reversed inner path.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ivlev/shot2manual/internal/geometry"
)

type Path []geometry.Point

// Fill paints the union of paths with c. Paths with opposite orientation
// cancel each other, which is how rings are drawn. Only the bounding box of
// the paths is rasterised.
func Fill(dst draw.Image, c color.Color, paths ...Path) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		for _, q := range p {
			minX, minY = math.Min(minX, q.X), math.Min(minY, q.Y)
			maxX, maxY = math.Max(maxX, q.X), math.Max(maxY, q.Y)
		}
	}
	if minX > maxX {
		return
	}
	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		z.MoveTo(float32(p[0].X-ox), float32(p[0].Y-oy))
		for _, q := range p[1:] {
			z.LineTo(float32(q.X-ox), float32(q.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

func reversed(p Path) Path {
	out := make(Path, len(p))
	for i, q := range p {
		out[len(p)-1-i] = q
	}
	return out
}

func arcSegments(r float64) int {
	n := int(math.Ceil(r / 2))
	if n < 4 {
		n = 4
	}
	if n > 48 {
		n = 48
	}
	return n
}

func appendArc(p Path, cx, cy, r, from, to float64) Path {
	n := arcSegments(r)
	for i := 0; i <= n; i++ {
		a := from + (to-from)*float64(i)/float64(n)
		p = append(p, geometry.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return p
}

// RoundRect returns a clockwise rounded rectangle outline. The radius is
// limited to half of the shorter side.
func RoundRect(x, y, w, h, r float64) Path {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	r = math.Max(0, math.Min(r, math.Min(w, h)/2))
	if r == 0 {
		return Path{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
	}
	var p Path
	p = appendArc(p, x+r, y+r, r, math.Pi, 1.5*math.Pi)
	p = appendArc(p, x+w-r, y+r, r, 1.5*math.Pi, 2*math.Pi)
	p = appendArc(p, x+w-r, y+h-r, r, 0, 0.5*math.Pi)
	p = appendArc(p, x+r, y+h-r, r, 0.5*math.Pi, math.Pi)
	return p
}

// Circle returns a clockwise circle outline.
func Circle(cx, cy, r float64) Path {
	n := 4 * arcSegments(r)
	p := make(Path, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		p = append(p, geometry.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return p
}

// Segment returns the quad covered by a butt-capped line of width sw.
func Segment(a, b geometry.Point, sw float64) Path {
	d := geometry.Distance(a, b)
	if d == 0 {
		return nil
	}
	nx := -(b.Y - a.Y) / d * sw / 2
	ny := (b.X - a.X) / d * sw / 2
	return Path{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

// StrokeRoundRect strokes a rounded rectangle centred on its outline.
func StrokeRoundRect(dst draw.Image, c color.Color, x, y, w, h, r, sw float64) {
	half := sw / 2
	outer := RoundRect(x-half, y-half, w+sw, h+sw, r+half)
	if w <= sw || h <= sw {
		Fill(dst, c, outer)
		return
	}
	inner := RoundRect(x+half, y+half, w-sw, h-sw, math.Max(r-half, 0))
	Fill(dst, c, outer, reversed(inner))
}

// FillRoundRect fills a rounded rectangle.
func FillRoundRect(dst draw.Image, c color.Color, x, y, w, h, r float64) {
	Fill(dst, c, RoundRect(x, y, w, h, r))
}

// StrokeCircle strokes a circle centred on its outline.
func StrokeCircle(dst draw.Image, c color.Color, cx, cy, r, sw float64) {
	half := sw / 2
	outer := Circle(cx, cy, r+half)
	if r-half <= 0 {
		Fill(dst, c, outer)
		return
	}
	Fill(dst, c, outer, reversed(Circle(cx, cy, r-half)))
}

// FillCircle fills a disc.
func FillCircle(dst draw.Image, c color.Color, cx, cy, r float64) {
	Fill(dst, c, Circle(cx, cy, r))
}

// StrokeLine draws a butt-capped segment.
func StrokeLine(dst draw.Image, c color.Color, a, b geometry.Point, sw float64) {
	Fill(dst, c, Segment(a, b, sw))
}

// FillTriangle fills the triangle a, b, c.
func FillTriangle(dst draw.Image, col color.Color, a, b, c geometry.Point) {
	Fill(dst, col, Path{a, b, c})
}

// Mask returns an alpha mask over r that is opaque inside paths.
func Mask(r image.Rectangle, paths ...Path) *image.Alpha {
	m := image.NewAlpha(r)
	Fill(m, color.Opaque, paths...)
	return m
}

// Clone copies img into a new RGBA image with origin (0,0).
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Scale draws src stretched over r (object-fill).
func Scale(dst draw.Image, r image.Rectangle, src image.Image) {
	if src == nil || r.Empty() {
		return
	}
	xdraw.CatmullRom.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
}

// Contain draws src inside r keeping its aspect ratio and returns the
// rectangle actually covered.
func Contain(dst draw.Image, r image.Rectangle, src image.Image) image.Rectangle {
	if src == nil || r.Empty() {
		return image.Rectangle{}
	}
	sb := src.Bounds()
	box, _ := geometry.Fit(sb.Dx(), sb.Dy(), BoxOf(r))
	target := RectOf(box)
	Scale(dst, target, src)
	return target
}

// BoxOf converts an integer rectangle to a float box.
func BoxOf(r image.Rectangle) geometry.Box {
	return geometry.Box{X: float64(r.Min.X), Y: float64(r.Min.Y), W: float64(r.Dx()), H: float64(r.Dy())}
}

// RectOf rounds a float box to an integer rectangle.
func RectOf(b geometry.Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X)), int(math.Round(b.Y)),
		int(math.Round(b.X+b.W)), int(math.Round(b.Y+b.H)),
	)
}
