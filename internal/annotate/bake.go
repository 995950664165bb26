// Package annotate implements the two pointer driven annotators: freehand
// shapes on APP shots and rectangular hotspots on WEB stages.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/raster"
	"github.com/ivlev/shot2manual/internal/store"
)

var (
	// ErrBakeInFlight is returned when a stroke is started on a shot that is
	// still being flattened.
	ErrBakeInFlight = errors.New("bake in flight")
	// ErrNoShot is returned when the addressed shot does not exist.
	ErrNoShot = errors.New("no such shot")
)

// StrokeWidth returns the stroke width in natural pixels for a w×h image.
func StrokeWidth(w, h int) float64 {
	return math.Max(3, 0.004*float64(min(w, h)))
}

// Flatten draws shapes in order onto a copy of base at its natural size.
// base itself is never modified.
func Flatten(base image.Image, shapes []geometry.Shape) *image.RGBA {
	dst := raster.Clone(base)
	b := dst.Bounds()
	sw := StrokeWidth(b.Dx(), b.Dy())
	for _, s := range shapes {
		DrawShape(dst, s, sw)
	}
	return dst
}

// DrawShape renders one normalized shape onto dst, scaled to dst's size.
func DrawShape(dst *image.RGBA, s geometry.Shape, sw float64) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	a := geometry.Scale(s.Start(), w, h)
	e := geometry.Scale(s.End(), w, h)
	col := s.RGBA()

	switch s.Type {
	case geometry.ShapeCircle:
		r := math.Max(math.Abs(e.X-a.X), math.Abs(e.Y-a.Y)) / 2
		raster.StrokeCircle(dst, col, (a.X+e.X)/2, (a.Y+e.Y)/2, r, sw)
	case geometry.ShapeLine:
		raster.StrokeLine(dst, col, a, e, sw)
	case geometry.ShapeArrow:
		raster.StrokeLine(dst, col, a, e, sw)
		head := math.Max(10, 0.04*geometry.Distance(a, e))
		angle := math.Atan2(e.Y-a.Y, e.X-a.X)
		left := geometry.Point{
			X: e.X - head*math.Cos(angle-math.Pi/6),
			Y: e.Y - head*math.Sin(angle-math.Pi/6),
		}
		right := geometry.Point{
			X: e.X - head*math.Cos(angle+math.Pi/6),
			Y: e.Y - head*math.Sin(angle+math.Pi/6),
		}
		raster.FillTriangle(dst, col, e, left, right)
	default:
		x, y := math.Min(a.X, e.X), math.Min(a.Y, e.Y)
		rw, rh := math.Abs(e.X-a.X), math.Abs(e.Y-a.Y)
		raster.StrokeRoundRect(dst, col, x, y, rw, rh, math.Min(rw, rh)*0.08, sw)
	}
}

// Baker flattens pending shapes into a shot's annotated image. Concurrent
// bakes of the same shot are collapsed into one.
type Baker struct {
	store    *store.Store
	group    singleflight.Group
	mu       sync.Mutex
	inflight map[string]int
}

func NewBaker(st *store.Store) *Baker {
	return &Baker{store: st, inflight: make(map[string]int)}
}

// InFlight reports whether a bake of the shot is running.
func (b *Baker) InFlight(shotID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight[shotID] > 0
}

func (b *Baker) track(shotID string, d int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight[shotID] += d
	if b.inflight[shotID] <= 0 {
		delete(b.inflight, shotID)
	}
}

// Bake flattens the shot's pending shapes on top of its displayed image and
// stores the result. With no pending shapes the displayed image becomes the
// annotated image unchanged.
func (b *Baker) Bake(ctx context.Context, shotID string) (image.Image, error) {
	b.track(shotID, 1)
	defer b.track(shotID, -1)

	v, err, _ := b.group.Do(shotID, func() (any, error) {
		shot, _, ok := b.store.Snapshot().Shot(shotID)
		if !ok {
			return nil, fmt.Errorf("bake %s: %w", shotID, ErrNoShot)
		}
		base := shot.Display()
		if base == nil {
			return nil, fmt.Errorf("bake %s: shot has no image", shotID)
		}
		n := len(shot.Shapes)
		var out image.Image = base
		if n > 0 {
			out = Flatten(base, shot.Shapes)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.store.SetBaked(shotID, out, n); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}
