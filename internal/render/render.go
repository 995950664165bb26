// Package render rasterises layout pages. It is the "render element to
// image" capability used by the exporter: a page description goes in, an
// RGBA canvas of the preset size times the pixel multiplier comes out.
package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"sync"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/raster"
	"github.com/ivlev/shot2manual/internal/system"
)

var (
	titleColor  = color.RGBA{R: 0x00, G: 0x28, B: 0x65, A: 0xff}
	labelColor  = color.RGBA{R: 0xff, G: 0x65, B: 0x00, A: 0xff}
	regionColor = color.RGBA{R: 0xf4, G: 0x3f, B: 0x5e, A: 0xff}
	bezelColor  = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	bandColor   = color.RGBA{R: 0xdb, G: 0xea, B: 0xfe, A: 0xff}
	textColor   = color.NRGBA{A: 217} // black, 85%
	footerColor = color.NRGBA{A: 204} // black, 80%
	shadowColor = color.NRGBA{A: 56}
	thumbBg     = color.NRGBA{A: 13}
	thumbBorder = color.NRGBA{A: 26}
)

const (
	phoneAspect      = 2.05 // height / width of the phone frame
	watermarkOpacity = 0.30
)

// Renderer draws pages onto pooled canvases.
type Renderer struct {
	fonts *Fonts
	pool  *system.ImagePool

	mu sync.Mutex
	qr map[qrKey]image.Image
}

type qrKey struct {
	content string
	size    int
}

func New(fonts *Fonts, pool *system.ImagePool) *Renderer {
	if pool == nil {
		pool = system.DefaultPool()
	}
	return &Renderer{fonts: fonts, pool: pool, qr: make(map[qrKey]image.Image)}
}

// Release hands a canvas returned by Render back to the pool.
func (r *Renderer) Release(img *image.RGBA) {
	r.pool.Put(img)
}

// Size returns the canvas size of page at multiplier m.
func Size(page layout.Page, m float64) image.Point {
	return image.Pt(int(math.Round(float64(page.Width)*m)), int(math.Round(float64(page.Height)*m)))
}

// Render rasterises page at the given pixel multiplier (1, 2, 3, or a
// fractional ratio such as 1.25).
func (r *Renderer) Render(ctx context.Context, page layout.Page, multiplier float64) (*image.RGBA, error) {
	if multiplier <= 0 {
		multiplier = 1
	}
	size := Size(page, multiplier)
	dst := r.pool.Get(image.Rectangle{Max: size})
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	c := &canvas{dst: dst, m: multiplier, fonts: r.fonts}
	c.watermark(page)
	c.header(page)

	var err error
	if page.Split != nil {
		err = c.split(ctx, page.Split)
	} else {
		err = c.grid(ctx, page)
	}
	if err != nil {
		r.pool.Put(dst)
		return nil, err
	}

	c.footer(page)
	if page.QR != "" {
		if err := r.drawQR(c, page); err != nil {
			r.pool.Put(dst)
			return nil, err
		}
	}
	return dst, nil
}

func (r *Renderer) qrImage(content string, size int) (image.Image, error) {
	key := qrKey{content, size}
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.qr[key]; ok {
		return img, nil
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	img := q.Image(size)
	r.qr[key] = img
	return img, nil
}

func (r *Renderer) drawQR(c *canvas, page layout.Page) error {
	foot := c.rect(page.Footer)
	pad := c.px(4)
	side := foot.Dy() - 2*pad
	if side <= 0 {
		return nil
	}
	img, err := r.qrImage(page.QR, side)
	if err != nil {
		return err
	}
	x := c.dst.Bounds().Dx() - c.px(layout.PadX) - side
	at := image.Rect(x, foot.Min.Y+pad, x+side, foot.Min.Y+pad+side)
	raster.Scale(c.dst, at, img)
	return nil
}

// canvas scales page coordinates by the pixel multiplier while drawing.
type canvas struct {
	dst   *image.RGBA
	m     float64
	fonts *Fonts
}

func (c *canvas) f(v float64) float64 { return v * c.m }

func (c *canvas) px(v int) int { return int(math.Round(float64(v) * c.m)) }

func (c *canvas) rect(r image.Rectangle) image.Rectangle {
	return image.Rect(c.px(r.Min.X), c.px(r.Min.Y), c.px(r.Max.X), c.px(r.Max.Y))
}

func (c *canvas) box(b geometry.Box) geometry.Box {
	return geometry.Box{X: b.X * c.m, Y: b.Y * c.m, W: b.W * c.m, H: b.H * c.m}
}

func (c *canvas) watermark(page layout.Page) {
	if page.Watermark == nil || page.WatermarkRect.Empty() {
		return
	}
	wr := c.rect(page.WatermarkRect)
	tmp := image.NewRGBA(wr)
	xdraw.CatmullRom.Scale(tmp, wr, page.Watermark, page.Watermark.Bounds(), xdraw.Src, nil)
	alpha := image.NewUniform(color.Alpha{A: uint8(math.Round(255 * watermarkOpacity))})
	draw.DrawMask(c.dst, wr, tmp, wr.Min, alpha, image.Point{}, draw.Over)
}

func (c *canvas) header(page layout.Page) {
	hr := c.rect(page.Header)
	if page.HeaderImage != nil {
		raster.Scale(c.dst, hr, page.HeaderImage)
	} else {
		draw.Draw(c.dst, hr, image.NewUniform(bandColor), image.Point{}, draw.Src)
	}
	if page.Title == "" {
		return
	}

	face := c.fonts.Face(c.f(48), true)
	x := c.px(page.TitleOrigin.X)
	maxW := hr.Dx() - x - c.px(layout.PadX)
	lines := wrap(face, page.Title, maxW)
	lineH := int(c.f(48 * 1.25))
	asc, desc := lineMetrics(face)
	top := c.px(page.TitleOrigin.Y) - lineH*len(lines)/2
	for i, line := range lines {
		baseline := top + i*lineH + lineH/2 + (asc-desc)/2
		drawString(c.dst, face, shadowColor, x, baseline+c.px(1), line)
		drawString(c.dst, face, titleColor, x, baseline, line)
	}
}

func (c *canvas) footer(page layout.Page) {
	size := 20.0
	if page.Mode == layout.ModeWeb {
		size = 16
	}
	fr := c.rect(page.Footer)
	face := c.fonts.Face(c.f(size), false)
	drawCentered(c.dst, face, footerColor, (fr.Min.X+fr.Max.X)/2, (fr.Min.Y+fr.Max.Y)/2, page.FooterText)
}

func (c *canvas) grid(ctx context.Context, page layout.Page) error {
	for _, cell := range page.Cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cell(cell, page.StepLabel)
	}
	return nil
}

func (c *canvas) cell(cell layout.Cell, label string) {
	r := c.rect(cell.Rect)
	gap := c.f(24)
	labelH := c.f(40)
	descLineH := c.f(24 * 1.625)

	mw := c.f(float64(cell.MockupWidth))
	mh := mw * phoneAspect
	if room := float64(r.Dy()) - 2*gap - labelH - descLineH; mh > room {
		mh = math.Max(room, 0)
		mw = mh / phoneAspect
	}
	phone := geometry.Box{X: float64(r.Min.X) + (float64(r.Dx())-mw)/2, Y: float64(r.Min.Y), W: mw, H: mh}
	c.phone(phone, cell.Image)

	y := phone.Y + mh + gap
	labelFace := c.fonts.Face(c.f(36), true)
	drawCentered(c.dst, labelFace, labelColor, (r.Min.X+r.Max.X)/2, int(y+labelH/2), label+" "+strconv.Itoa(cell.Number)+":")
	y += labelH + gap

	descFace := c.fonts.Face(c.f(24), false)
	maxW := min(int(c.f(340)), r.Dx())
	for _, line := range wrap(descFace, cell.Description, maxW) {
		if y+descLineH > float64(r.Max.Y) {
			break
		}
		drawCentered(c.dst, descFace, textColor, (r.Min.X+r.Max.X)/2, int(y+descLineH/2), line)
		y += descLineH
	}
}

// phone draws a device frame with the screenshot inside it.
func (c *canvas) phone(b geometry.Box, img image.Image) {
	if b.W <= 0 || b.H <= 0 {
		return
	}
	raster.FillRoundRect(c.dst, shadowColor, b.X+c.f(12), b.Y+c.f(16), b.W, b.H, b.W*0.14)
	raster.FillRoundRect(c.dst, bezelColor, b.X, b.Y, b.W, b.H, b.W*0.14)
	if img == nil {
		return
	}

	ib := img.Bounds()
	sh := b.H * 0.96
	sw := sh * float64(ib.Dx()) / float64(max(1, ib.Dy()))
	if limit := b.W * 0.92; sw > limit {
		sw = limit
		sh = sw * float64(ib.Dy()) / float64(max(1, ib.Dx()))
	}
	screen := raster.RectOf(geometry.Box{X: b.X + (b.W-sw)/2, Y: b.Y + (b.H-sh)/2, W: sw, H: sh})
	if screen.Empty() {
		return
	}
	scaled := image.NewRGBA(screen)
	xdraw.CatmullRom.Scale(scaled, screen, img, ib, xdraw.Src, nil)
	mask := raster.Mask(screen, raster.RoundRect(float64(screen.Min.X), float64(screen.Min.Y),
		float64(screen.Dx()), float64(screen.Dy()), c.f(20)))
	draw.DrawMask(c.dst, screen, scaled, screen.Min, mask, screen.Min, draw.Over)

	pill := b.W * 0.3
	raster.FillRoundRect(c.dst, bezelColor, b.X+(b.W-pill)/2, float64(screen.Min.Y)+c.f(8), pill, c.f(14), c.f(7))
}

func (c *canvas) split(ctx context.Context, sp *layout.SplitPanel) error {
	if sp.Image != nil {
		raster.Scale(c.dst, raster.RectOf(c.box(sp.ImageBox)), sp.Image)
	}
	for _, mk := range sp.Markers {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.marker(mk)
	}
	return c.stepList(ctx, sp)
}

func (c *canvas) marker(mk layout.Marker) {
	b := c.box(mk.Box)
	raster.StrokeRoundRect(c.dst, regionColor, b.X, b.Y, b.W, b.H, c.f(mk.Radius), c.f(mk.Stroke))

	cx, cy, r := c.f(mk.Badge.X), c.f(mk.Badge.Y), c.f(mk.BadgeR)
	raster.FillCircle(c.dst, color.White, cx, cy, r)
	raster.StrokeCircle(c.dst, regionColor, cx, cy, r, c.f(mk.Stroke))
	face := c.fonts.Face(r, true)
	drawCentered(c.dst, face, regionColor, int(cx), int(cy), strconv.Itoa(mk.Index))
}

type listBlock struct {
	item  layout.ListItem
	title []string
	desc  []string
	h     float64
}

func (c *canvas) stepList(ctx context.Context, sp *layout.SplitPanel) error {
	list := c.rect(sp.List)
	thumb := c.f(layout.ThumbSize)
	textX := float64(list.Min.X) + thumb + c.f(16)
	textW := list.Max.X - int(textX)
	titleFace := c.fonts.Face(c.f(36), true)
	descFace := c.fonts.Face(c.f(24), false)
	titleH, descH, gap := c.f(40), c.f(24*1.625), c.f(48)

	blocks := make([]listBlock, 0, len(sp.Items))
	total := 0.0
	for _, it := range sp.Items {
		b := listBlock{item: it, title: wrap(titleFace, it.Title, textW)}
		if it.Desc != "" {
			b.desc = wrap(descFace, it.Desc, textW)
		}
		b.h = math.Max(thumb, c.f(20)+titleH*float64(len(b.title))+descH*float64(len(b.desc)))
		blocks = append(blocks, b)
		total += b.h
	}
	if len(blocks) > 1 {
		total += gap * float64(len(blocks)-1)
	}

	y := math.Max(float64(list.Min.Y), float64(list.Min.Y)+(float64(list.Dy())-total)/2)
	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.item.Thumb != nil {
			x0 := float64(list.Min.X)
			raster.FillRoundRect(c.dst, thumbBg, x0, y, thumb, thumb, c.f(8))
			raster.Contain(c.dst, raster.RectOf(geometry.Box{X: x0, Y: y, W: thumb, H: thumb}), b.item.Thumb)
			raster.StrokeRoundRect(c.dst, thumbBorder, x0, y, thumb, thumb, c.f(8), math.Max(1, c.m))
		}

		ty := y + c.f(20)
		asc, desc := lineMetrics(titleFace)
		for _, line := range b.title {
			drawString(c.dst, titleFace, labelColor, int(textX), int(ty+titleH/2)+(asc-desc)/2, line)
			ty += titleH
		}
		asc, desc = lineMetrics(descFace)
		for _, line := range b.desc {
			drawString(c.dst, descFace, textColor, int(textX), int(ty+descH/2)+(asc-desc)/2, line)
			ty += descH
		}
		y += b.h + gap
	}
	return nil
}
