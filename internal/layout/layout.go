// Package layout composes shots and stages into fixed-size page
// descriptions. It is pure: no pixels are touched here, every rectangle is in
// page pixels of the preset, and the renderer draws exactly what it is given.
package layout

import (
	"fmt"
	"image"
	"math"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/store"
)

// Page geometry shared by both layouts.
const (
	HeaderHeight      = 180
	TitleInset        = 240 + 24
	PadX              = 24
	PadY              = 16
	GridGap           = 16
	GridFooterHeight  = 60
	SplitFooterHeight = 50
	SplitGap          = 48
	ThumbSize         = 128

	gridChrome  = 260 // header + footer + bottom margin
	splitChrome = 220

	markerRadius = 20 // natural pixels of the stage image
	markerStroke = 8
	regionRadius = 12
)

// Header is the banner image and title repeated on every page.
type Header struct {
	Image     image.Image
	Title     string
	Watermark image.Image
	QR        string // encoded in a footer QR code when set
	StepLabel string // prefix of step labels, store.DefaultStepLabel when empty
}

func (h Header) label() string {
	if h.StepLabel == "" {
		return store.DefaultStepLabel
	}
	return h.StepLabel
}

// Page is the full description of one output page.
type Page struct {
	Mode   Mode
	Number int // 1-based
	Total  int
	Width  int
	Height int

	Header      image.Rectangle
	HeaderImage image.Image
	Title       string
	TitleOrigin image.Point // left edge, vertical centre of the title line

	Footer     image.Rectangle
	FooterText string
	QR         string
	StepLabel  string

	Watermark     image.Image
	WatermarkRect image.Rectangle

	Cells []Cell      // grid pages
	Split *SplitPanel // split pages
}

// Items returns the IDs of the shots or steps placed on the page.
func (p Page) Items() []string {
	var ids []string
	for _, c := range p.Cells {
		ids = append(ids, c.ShotID)
	}
	if p.Split != nil {
		for _, it := range p.Split.Items {
			ids = append(ids, it.StepID)
		}
	}
	return ids
}

// Cell is one shot on a grid page.
type Cell struct {
	ShotID      string
	Number      int
	Image       image.Image
	Description string
	Rect        image.Rectangle
	MockupWidth int
}

// SplitPanel is the stage image with its markers and the step list.
type SplitPanel struct {
	StageID string
	Image   image.Image
	NatW    int
	NatH    int

	Area     image.Rectangle // left column
	ImageBox geometry.Box    // stage image fitted into Area
	Scale    float64         // natural → page pixels
	Markers  []Marker

	List  image.Rectangle // right column
	Items []ListItem
}

// Marker is a region outline plus its numbered badge, in page pixels.
type Marker struct {
	Index  int
	Box    geometry.Box
	Radius float64 // corner radius of Box
	Stroke float64
	Badge  geometry.Point // badge centre
	BadgeR float64
}

// ListItem is one entry of the step list.
type ListItem struct {
	StepID string
	Index  int
	Title  string
	Desc   string
	Thumb  image.Image
}

func frame(m Mode, preset Preset, hdr Header, number, total, footerH, bodyH int) Page {
	p := Page{
		Mode:        m,
		Number:      number,
		Total:       total,
		Width:       preset.Width,
		Height:      preset.Height,
		Header:      image.Rect(0, 0, preset.Width, HeaderHeight),
		HeaderImage: hdr.Image,
		Title:       hdr.Title,
		TitleOrigin: image.Pt(TitleInset, HeaderHeight/2),
		Footer:      image.Rect(0, HeaderHeight+bodyH, preset.Width, HeaderHeight+bodyH+footerH),
		FooterText:  fmt.Sprintf("Trang %d/%d", number, total),
		QR:          hdr.QR,
		StepLabel:   hdr.label(),
	}
	if hdr.Watermark != nil {
		p.Watermark = hdr.Watermark
		p.WatermarkRect = watermarkRect(m, preset, hdr.Watermark.Bounds())
	}
	return p
}

// watermarkRect places the decoration so it overhangs the bottom right
// corner of the page.
func watermarkRect(m Mode, preset Preset, src image.Rectangle) image.Rectangle {
	w, right, bottom := int(math.Floor(float64(preset.Width)*0.42)), 80, 180
	if m == ModeWeb {
		w, bottom = 720, 160
	}
	if src.Dx() == 0 {
		return image.Rectangle{}
	}
	h := int(math.Round(float64(w) * float64(src.Dy()) / float64(src.Dx())))
	x := preset.Width + right - w
	y := preset.Height + bottom - h
	return image.Rect(x, y, x+w, y+h)
}

// Grid chunks shots into pages of preset.MaxCols×preset.MaxRows cells in
// list order. Step numbers are positional across pages.
func Grid(shots []store.Shot, hdr Header, preset Preset) []Page {
	per := preset.PerPage()
	total := (len(shots) + per - 1) / per
	bodyH := preset.Height - gridChrome
	mockup := min(280, (preset.Width-80)/max(1, preset.MaxCols)-24)

	pages := make([]Page, 0, total)
	for pi := 0; pi < total; pi++ {
		items := shots[pi*per : min((pi+1)*per, len(shots))]
		p := frame(ModeApp, preset, hdr, pi+1, total, GridFooterHeight, bodyH)

		cols := max(1, min(preset.MaxCols, len(items)))
		rows := (len(items) + cols - 1) / cols
		content := image.Rect(PadX, HeaderHeight+PadY, preset.Width-PadX, HeaderHeight+bodyH-PadY)
		cw := (content.Dx() - GridGap*(cols-1)) / cols
		rh := (content.Dy() - GridGap*(rows-1)) / rows

		for i, sh := range items {
			r, c := i/cols, i%cols
			x := content.Min.X + c*(cw+GridGap)
			y := content.Min.Y + r*(rh+GridGap)
			p.Cells = append(p.Cells, Cell{
				ShotID:      sh.ID,
				Number:      pi*per + i + 1,
				Image:       sh.Display(),
				Description: sh.Description,
				Rect:        image.Rect(x, y, x+cw, y+rh),
				MockupWidth: min(mockup, cw),
			})
		}
		pages = append(pages, p)
	}
	return pages
}

// Split emits, for every stage, its steps in chunks of maxPerPage. A stage
// without steps still gets exactly one page. Step numbers are the persisted
// indices and region overlays are mapped through the stage's natural size.
func Split(stages []store.Stage, hdr Header, preset Preset, maxPerPage int) []Page {
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPerPage
	}
	type chunk struct {
		stage store.Stage
		steps []store.WebStep
	}
	var chunks []chunk
	for _, st := range stages {
		for i := 0; i < len(st.Steps); i += maxPerPage {
			chunks = append(chunks, chunk{st, st.Steps[i:min(i+maxPerPage, len(st.Steps))]})
		}
		if len(st.Steps) == 0 {
			chunks = append(chunks, chunk{stage: st})
		}
	}

	bodyH := preset.Height - splitChrome
	content := image.Rect(PadX, HeaderHeight+PadY, preset.Width-PadX, HeaderHeight+bodyH-PadY)
	unit := float64(content.Dx()-11*SplitGap) / 12
	leftW := int(math.Round(7*unit + 6*SplitGap))
	area := image.Rect(content.Min.X, content.Min.Y, content.Min.X+leftW, content.Max.Y)
	list := image.Rect(area.Max.X+SplitGap, content.Min.Y, content.Max.X, content.Max.Y)

	pages := make([]Page, 0, len(chunks))
	for i, c := range chunks {
		p := frame(ModeWeb, preset, hdr, i+1, len(chunks), SplitFooterHeight, bodyH)
		p.Split = splitPanel(c.stage, c.steps, area, list, hdr.label())
		pages = append(pages, p)
	}
	return pages
}

func splitPanel(st store.Stage, steps []store.WebStep, area, list image.Rectangle, label string) *SplitPanel {
	natW, natH := st.NatW, st.NatH
	if natW <= 0 || natH <= 0 {
		natW, natH = 1000, 1000
	}
	box, scale := geometry.Fit(natW, natH, geometry.Box{
		X: float64(area.Min.X), Y: float64(area.Min.Y),
		W: float64(area.Dx()), H: float64(area.Dy()),
	})
	sp := &SplitPanel{
		StageID:  st.ID,
		Image:    st.Image,
		NatW:     natW,
		NatH:     natH,
		Area:     area,
		ImageBox: box,
		Scale:    scale,
		List:     list,
	}
	for _, step := range steps {
		b := step.Region.Within(natW, natH, box, scale)
		sp.Markers = append(sp.Markers, Marker{
			Index:  step.Index,
			Box:    b,
			Radius: regionRadius * scale,
			Stroke: markerStroke * scale,
			Badge:  geometry.Point{X: b.X + markerRadius*scale, Y: b.Y + markerRadius*scale},
			BadgeR: markerRadius * scale,
		})
		title := step.Title
		if title == "" {
			title = fmt.Sprintf("%s %d", label, step.Index)
		}
		sp.Items = append(sp.Items, ListItem{
			StepID: step.ID,
			Index:  step.Index,
			Title:  title,
			Desc:   step.Desc,
			Thumb:  step.Thumb,
		})
	}
	return sp
}
