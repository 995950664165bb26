package analyzer

import (
	"image"
	"sort"

	"github.com/ivlev/shot2manual/internal/geometry"
)

// RowTolerance is the vertical distance, in image pixels, within which two
// blocks count as being on the same row.
const RowTolerance = 20

// SuggestRegions runs d over img and returns at most limit hotspot regions
// in reading order. Regions smaller than geometry.MinRegionSize are dropped.
// limit <= 0 means no limit.
func SuggestRegions(d Detector, img image.Image, limit int) ([]geometry.Region, error) {
	blocks, err := d.Detect(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	rects := make([]image.Rectangle, 0, len(blocks))
	for _, bl := range blocks {
		rects = append(rects, bl.Rect.Sub(b.Min))
	}
	ReadingOrder(rects)

	w, h := float64(b.Dx()), float64(b.Dy())
	var out []geometry.Region
	for _, r := range rects {
		reg := geometry.Region{
			X: float64(r.Min.X) / w,
			Y: float64(r.Min.Y) / h,
			W: float64(r.Dx()) / w,
			H: float64(r.Dy()) / h,
		}
		if !reg.Valid() {
			continue
		}
		out = append(out, reg)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ReadingOrder sorts rects top to bottom, then left to right within rows
// of RowTolerance pixels.
func ReadingOrder(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool { return rects[i].Min.Y < rects[j].Min.Y })
	for start := 0; start < len(rects); {
		end := start + 1
		for end < len(rects) && rects[end].Min.Y-rects[start].Min.Y <= RowTolerance {
			end++
		}
		row := rects[start:end]
		sort.SliceStable(row, func(i, j int) bool { return row[i].Min.X < row[j].Min.X })
		start = end
	}
}
