package analyzer

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ContrastDetector finds UI elements by edge density: Sobel gradients are
// thresholded, dilated so that the edges of one control merge, and every
// connected blob becomes a block.
type ContrastDetector struct {
	MinBlockArea  int     // Minimum area in analysis pixels²
	EdgeThreshold float64 // Gradient magnitude threshold
	Radius        int     // Dilation radius
	MaxWidth      int     // Wider images are analysed on a downscaled copy
	MaxCoverage   float64 // Blocks covering more of the frame are dropped
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  400,
		EdgeThreshold: 40,
		Radius:        3,
		MaxWidth:      960,
		MaxCoverage:   0.9,
	}
}

// Detect returns blocks in the coordinates of img.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	gray, scale := d.grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	mask := dilate(sobel(gray, d.EdgeThreshold), w, h, d.Radius)
	frame := float64(w * h)

	var blocks []Block
	for _, r := range components(mask, w, h) {
		area := r.Dx() * r.Dy()
		if area < d.MinBlockArea || float64(area) > d.MaxCoverage*frame {
			continue
		}
		blocks = append(blocks, Block{
			Rect:       unscale(r, scale).Add(b.Min).Intersect(b),
			Type:       classify(r, w, h),
			Confidence: 0.7,
		})
	}
	return blocks, nil
}

// grayscale returns a luminance copy of img no wider than MaxWidth, and the
// factor it was scaled by.
func (d *ContrastDetector) grayscale(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	scale := 1.0
	if d.MaxWidth > 0 && b.Dx() > d.MaxWidth {
		scale = float64(d.MaxWidth) / float64(b.Dx())
	}
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	gray := image.NewGray(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, xdraw.Src, nil)
	}
	return gray, scale
}

// sobel marks pixels whose gradient magnitude exceeds threshold.
func sobel(g *image.Gray, threshold float64) []bool {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := make([]bool, w*h)
	at := func(x, y int) float64 { return float64(g.Pix[y*g.Stride+x]) }
	t2 := threshold * threshold

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			out[y*w+x] = gx*gx+gy*gy > t2
		}
	}
	return out
}

// dilate grows the mask by r pixels in each direction. The square kernel
// is applied as two separable passes.
func dilate(mask []bool, w, h, r int) []bool {
	if r <= 0 {
		return mask
	}
	tmp := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		row := mask[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			tmp[y*w+x] = hasAny(row, x, r)
		}
	}
	out := make([]bool, len(mask))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			for k := max(0, y-r); k <= min(h-1, y+r); k++ {
				if tmp[k*w+x] {
					out[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// hasAny reports whether row has a set pixel in [x-r, x+r].
func hasAny(row []bool, x, r int) bool {
	for k := max(0, x-r); k <= min(len(row)-1, x+r); k++ {
		if row[k] {
			return true
		}
	}
	return false
}

// components returns the bounding rectangles of 4-connected blobs.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var rects []image.Rectangle
	var stack []int

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		r := image.Rect(start%w, start/w, start%w+1, start/w+1)
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			r = r.Union(image.Rect(x, y, x+1, y+1))

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) || seen[n] || !mask[n] {
					continue
				}
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}
		rects = append(rects, r)
	}
	return rects
}

func unscale(r image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return r
	}
	f := func(v int) int { return int(math.Round(float64(v) / scale)) }
	return image.Rect(f(r.Min.X), f(r.Min.Y), f(r.Max.X), f(r.Max.Y))
}

// classify labels wide short blobs as controls (buttons, inputs, menu
// items) and blobs covering a large part of the frame as panels.
func classify(r image.Rectangle, w, h int) string {
	aspect := float64(r.Dx()) / float64(max(1, r.Dy()))
	switch {
	case float64(r.Dx()*r.Dy()) > 0.1*float64(w*h):
		return "panel"
	case aspect >= 2 && float64(r.Dy()) < 0.12*float64(h):
		return "control"
	default:
		return "unknown"
	}
}
