package annotate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"testing"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/store"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 200 && g>>8 < 120 && b>>8 < 120
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 250 && g>>8 > 250 && b>>8 > 250
}

func newFixture(t *testing.T, w, h int) (*store.Store, *Freehand, string) {
	t.Helper()
	st := store.New("")
	shots := st.ImportShots([]store.Imported{{Name: "a", Image: whiteImage(w, h), NatW: w, NatH: h}})
	f := NewFreehand(st, NewBaker(st))
	n := 0
	f.newID = func() string {
		n++
		return fmt.Sprintf("shape-%d", n)
	}
	return st, f, shots[0].ID
}

func TestStrokeWidth(t *testing.T) {
	tests := []struct {
		w, h int
		want float64
	}{
		{100, 50, 3},
		{750, 2000, 3},
		{1920, 1080, 4.32},
		{4000, 3000, 12},
	}
	for _, tt := range tests {
		if got := StrokeWidth(tt.w, tt.h); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("StrokeWidth(%d,%d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestDrawShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape geometry.Shape
		red   []image.Point
		white []image.Point
	}{
		{
			name:  "rect dragged backwards",
			shape: geometry.Shape{Type: geometry.ShapeRect, X1: 0.8, Y1: 0.8, X2: 0.2, Y2: 0.2},
			red:   []image.Point{{20, 50}, {79, 50}, {50, 20}},
			white: []image.Point{{50, 50}, {10, 10}},
		},
		{
			name:  "circle in bounding square",
			shape: geometry.Shape{Type: geometry.ShapeCircle, X1: 0.2, Y1: 0.2, X2: 0.6, Y2: 0.6},
			red:   []image.Point{{40, 20}, {20, 40}},
			white: []image.Point{{40, 40}, {80, 80}},
		},
		{
			name:  "line",
			shape: geometry.Shape{Type: geometry.ShapeLine, X1: 0.1, Y1: 0.5, X2: 0.9, Y2: 0.5},
			red:   []image.Point{{50, 50}, {20, 49}},
			white: []image.Point{{50, 45}, {83, 47}},
		},
		{
			name:  "arrow has a head",
			shape: geometry.Shape{Type: geometry.ShapeArrow, X1: 0.1, Y1: 0.5, X2: 0.9, Y2: 0.5},
			red:   []image.Point{{50, 50}, {83, 47}, {83, 52}},
			white: []image.Point{{50, 45}, {95, 50}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.shape.Color = "#ef4444"
			base := whiteImage(100, 100)
			out := Flatten(base, []geometry.Shape{tt.shape})
			for _, p := range tt.red {
				if !isRed(out.At(p.X, p.Y)) {
					t.Errorf("pixel %v = %v, want red", p, out.At(p.X, p.Y))
				}
			}
			for _, p := range tt.white {
				if !isWhite(out.At(p.X, p.Y)) {
					t.Errorf("pixel %v = %v, want white", p, out.At(p.X, p.Y))
				}
			}
			if !isWhite(base.At(50, 50)) || !isWhite(base.At(20, 50)) {
				t.Error("Flatten modified its base image")
			}
		})
	}
}

func TestFreehandStrokeBakes(t *testing.T) {
	st, f, id := newFixture(t, 100, 50)
	f.SetView(geometry.Box{X: 10, Y: 10, W: 200, H: 100})

	if err := f.PointerDown(id, geometry.Point{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	if f.State() != Drawing {
		t.Fatalf("state = %v, want drawing", f.State())
	}
	// Far outside the canvas: clamped to the bottom right corner.
	if err := f.PointerMove(geometry.Point{X: 900, Y: 900}); err != nil {
		t.Fatal(err)
	}
	shape := st.Snapshot().Shots[0].Shapes[0]
	if shape.X1 != 0 || shape.Y1 != 0 || shape.X2 != 1 || shape.Y2 != 1 {
		t.Fatalf("shape not clamped: %+v", shape)
	}

	img, err := f.PointerLeave(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.State() != Idle {
		t.Errorf("state after bake = %v", f.State())
	}
	shot := st.Snapshot().Shots[0]
	if shot.Annotated == nil || len(shot.Shapes) != 0 {
		t.Fatalf("bake did not flatten: %+v", shot)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("baked at %v, want natural size", b)
	}
	if !isRed(img.At(0, 25)) || !isWhite(img.At(50, 25)) {
		t.Error("rectangle outline not burned in")
	}
	if !isWhite(shot.Src.At(0, 25)) {
		t.Error("original image was modified")
	}
}

func TestBakeWithoutShapesIsNoop(t *testing.T) {
	st, f, id := newFixture(t, 40, 40)
	f.SetView(geometry.Box{W: 40, H: 40})
	_ = f.PointerDown(id, geometry.Point{X: 5, Y: 5})
	_ = f.PointerMove(geometry.Point{X: 30, Y: 30})
	first, err := f.PointerUp(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	again, err := f.baker.Bake(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Error("re-baking without new shapes produced a new image")
	}
	if st.Snapshot().Shots[0].Annotated != first {
		t.Error("annotated image changed")
	}
}

func TestBakesAreCumulative(t *testing.T) {
	st, f, id := newFixture(t, 100, 100)
	f.SetView(geometry.Box{W: 100, H: 100})
	f.SetTool(geometry.ShapeLine)

	_ = f.PointerDown(id, geometry.Point{X: 10, Y: 20})
	_ = f.PointerMove(geometry.Point{X: 90, Y: 20})
	_, _ = f.PointerUp(context.Background())

	_ = f.PointerDown(id, geometry.Point{X: 10, Y: 80})
	_ = f.PointerMove(geometry.Point{X: 90, Y: 80})
	img, _ := f.PointerUp(context.Background())

	if !isRed(img.At(50, 20)) || !isRed(img.At(50, 80)) {
		t.Error("second bake lost the first stroke")
	}
	if len(st.Snapshot().Shots[0].Shapes) != 0 {
		t.Error("shapes left after bake")
	}
}

func TestPointerDownGuards(t *testing.T) {
	st, f, id := newFixture(t, 40, 40)
	f.SetView(geometry.Box{X: 100, Y: 100, W: 40, H: 40})

	if err := f.PointerDown(id, geometry.Point{X: 5, Y: 5}); err != nil {
		t.Fatal(err)
	}
	if f.State() != Idle || len(st.Snapshot().Shots[0].Shapes) != 0 {
		t.Error("press outside the canvas started a stroke")
	}

	if err := f.PointerDown("missing", geometry.Point{X: 110, Y: 110}); !errors.Is(err, ErrNoShot) {
		t.Errorf("expected ErrNoShot, got %v", err)
	}

	f.baker.track(id, 1)
	if err := f.PointerDown(id, geometry.Point{X: 110, Y: 110}); !errors.Is(err, ErrBakeInFlight) {
		t.Errorf("expected ErrBakeInFlight, got %v", err)
	}
	if err := f.Reset(id); !errors.Is(err, ErrBakeInFlight) {
		t.Errorf("reset during bake: %v", err)
	}
	f.baker.track(id, -1)

	_ = f.PointerDown(id, geometry.Point{X: 110, Y: 110})
	if err := f.PointerDown(id, geometry.Point{X: 120, Y: 120}); !errors.Is(err, ErrStrokeActive) {
		t.Errorf("expected ErrStrokeActive, got %v", err)
	}
}

func TestMoveWithoutStrokeIsNoop(t *testing.T) {
	st, f, _ := newFixture(t, 40, 40)
	f.SetView(geometry.Box{W: 40, H: 40})
	if err := f.PointerMove(geometry.Point{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	if img, err := f.PointerUp(context.Background()); img != nil || err != nil {
		t.Errorf("pointer up without stroke = %v, %v", img, err)
	}
	if len(st.Snapshot().Shots[0].Shapes) != 0 {
		t.Error("shape created without pointer down")
	}
}

func TestConcurrentBakesFlattenOnce(t *testing.T) {
	st, f, id := newFixture(t, 60, 60)
	_ = st.AppendShape(id, geometry.NewShape("s", geometry.ShapeRect, "#ef4444", geometry.Point{X: 0.1, Y: 0.1}).
		WithEnd(geometry.Point{X: 0.9, Y: 0.9}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.baker.Bake(context.Background(), id); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	shot := st.Snapshot().Shots[0]
	if shot.Annotated == nil || len(shot.Shapes) != 0 {
		t.Errorf("unexpected shot after concurrent bakes: %+v", shot)
	}
	if f.baker.InFlight(id) {
		t.Error("bake still reported in flight")
	}
}

func TestResetRestoresPristineShot(t *testing.T) {
	st, f, id := newFixture(t, 40, 40)
	f.SetView(geometry.Box{W: 40, H: 40})
	_ = f.PointerDown(id, geometry.Point{X: 5, Y: 5})
	_, _ = f.PointerUp(context.Background())

	for i := 0; i < 2; i++ {
		if err := f.Reset(id); err != nil {
			t.Fatal(err)
		}
	}
	shot := st.Snapshot().Shots[0]
	if shot.Annotated != nil || len(shot.Shapes) != 0 {
		t.Errorf("reset left %+v", shot)
	}
}
