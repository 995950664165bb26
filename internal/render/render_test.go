package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/store"
	"github.com/ivlev/shot2manual/internal/system"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	fonts, err := LoadFonts(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(fonts, system.NewImagePool())
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, _ := a.RGBA()
	r2, g2, b2, _ := b.RGBA()
	d := func(x, y uint32) bool { return x>>8 <= y>>8+6 && y>>8 <= x>>8+6 }
	return d(r1, r2) && d(g1, g2) && d(b1, b2)
}

func countDark(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R < 128 && c.G < 128 && c.B < 128 {
				n++
			}
		}
	}
	return n
}

func gridPage(t *testing.T, n int, hdr layout.Header) layout.Page {
	t.Helper()
	preset, err := layout.LookupPreset(layout.ModeApp, "HD_16_9")
	if err != nil {
		t.Fatal(err)
	}
	shots := make([]store.Shot, n)
	for i := range shots {
		shots[i] = store.Shot{ID: "s", Src: solid(90, 180, color.RGBA{G: 200, A: 255}), Description: "Nhấn vào nút Đăng nhập để tiếp tục"}
	}
	return layout.Grid(shots, hdr, preset)[0]
}

func TestRenderGridPage(t *testing.T) {
	r := newRenderer(t)
	page := gridPage(t, 3, layout.Header{Title: "Manual"})

	img, err := r.Render(context.Background(), page, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release(img)

	if img.Bounds().Size() != image.Pt(1920, 1080) {
		t.Fatalf("size = %v", img.Bounds().Size())
	}
	if !sameColor(img.At(5, 5), bandColor) {
		t.Errorf("header band = %v", img.At(5, 5))
	}
	title := image.Rect(page.TitleOrigin.X, 40, page.TitleOrigin.X+300, 140)
	if n := countDark(img, title); n == 0 {
		t.Error("no title glyphs in the header")
	}

	cell := page.Cells[0].Rect
	mid := image.Pt((cell.Min.X+cell.Max.X)/2, cell.Min.Y+5)
	if !sameColor(img.At(mid.X, mid.Y), bezelColor) {
		t.Errorf("phone bezel at %v = %v", mid, img.At(mid.X, mid.Y))
	}
	screen := image.Pt(mid.X, cell.Min.Y+280)
	if c := img.RGBAAt(screen.X, screen.Y); c.G < 150 || c.R > 60 {
		t.Errorf("screenshot not visible at %v: %v", screen, c)
	}
	if n := countDark(img, page.Footer); n == 0 {
		t.Error("footer text missing")
	}
}

func TestRenderMultiplier(t *testing.T) {
	r := newRenderer(t)
	page := gridPage(t, 1, layout.Header{})
	for _, m := range []float64{0.5, 1.25} {
		img, err := r.Render(context.Background(), page, m)
		if err != nil {
			t.Fatal(err)
		}
		if want := Size(page, m); img.Bounds().Size() != want {
			t.Errorf("m=%v: size %v, want %v", m, img.Bounds().Size(), want)
		}
		r.Release(img)
	}
}

func TestRenderSplitPage(t *testing.T) {
	r := newRenderer(t)
	preset, _ := layout.LookupPreset(layout.ModeWeb, "HD_16_9")
	stage := store.Stage{
		ID:    "st",
		Image: solid(1000, 500, color.White),
		NatW:  1000,
		NatH:  500,
		Steps: []store.WebStep{{
			ID:     "a",
			Index:  1,
			Region: geometry.Region{X: 0.1, Y: 0.1, W: 0.5, H: 0.5},
			Title:  "Bước 1",
			Desc:   "Chọn menu",
			Thumb:  solid(64, 64, color.Black),
		}},
	}
	page := layout.Split([]store.Stage{stage}, layout.Header{}, preset, 8)[0]

	img, err := r.Render(context.Background(), page, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release(img)

	m := page.Split.Markers[0]
	edge := image.Pt(int(m.Box.X), int(m.Box.Y+m.Box.H/2))
	if !sameColor(img.At(edge.X, edge.Y), regionColor) {
		t.Errorf("region outline at %v = %v", edge, img.At(edge.X, edge.Y))
	}
	inside := image.Pt(int(m.Box.X+m.Box.W/2), int(m.Box.Y+m.Box.H/2))
	if !sameColor(img.At(inside.X, inside.Y), color.White) {
		t.Errorf("region interior at %v = %v", inside, img.At(inside.X, inside.Y))
	}

	list := page.Split.List
	thumbArea := image.Rect(list.Min.X, list.Min.Y, list.Min.X+layout.ThumbSize, list.Max.Y)
	if n := countDark(img, thumbArea); n < 64*64/2 {
		t.Errorf("thumbnail missing: %d dark pixels", n)
	}
}

func TestRenderQRCode(t *testing.T) {
	r := newRenderer(t)
	page := gridPage(t, 1, layout.Header{QR: "https://example.com/manual"})
	img, err := r.Render(context.Background(), page, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release(img)

	f := page.Footer
	corner := image.Rect(f.Max.X-layout.PadX-f.Dy(), f.Min.Y, f.Max.X-layout.PadX, f.Max.Y)
	if n := countDark(img, corner); n < 100 {
		t.Errorf("qr code not drawn: %d dark pixels", n)
	}
}

func TestRenderCancelled(t *testing.T) {
	r := newRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, gridPage(t, 2, layout.Header{}), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWrap(t *testing.T) {
	fonts, _ := LoadFonts(nil, nil)
	face := fonts.Face(24, false)
	lines := wrap(face, "một hai ba bốn năm sáu bảy tám chín mười\nmới", 150)
	if len(lines) < 3 {
		t.Fatalf("expected wrapping, got %q", lines)
	}
	for _, l := range lines {
		if measure(face, l) > 150 {
			t.Errorf("line %q is %dpx wide", l, measure(face, l))
		}
	}
	if lines[len(lines)-1] != "mới" {
		t.Errorf("explicit newline lost: %q", lines)
	}
	if got := wrap(face, "", 100); len(got) != 1 || got[0] != "" {
		t.Errorf("empty text = %q", got)
	}
	long := wrap(face, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 100)
	if len(long) < 2 {
		t.Errorf("long word not split: %q", long)
	}
}
