package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// Document assembles page images into one multi-page file.
type Document interface {
	AddPage(w, h float64)
	AddImage(e Encoded, x, y, w, h float64) error
	Save(w io.Writer) error
}

// PDF is a Document backed by fpdf. Sizes are in points, one point per page
// pixel, so a page is exactly the preset size.
type PDF struct {
	pdf   *fpdf.Fpdf
	count int
}

func orientation(w, h float64) string {
	if w >= h {
		return "L"
	}
	return "P"
}

// fpdf swaps width and height for landscape pages, so sizes are always
// handed over portrait-first.
func portraitSize(w, h float64) fpdf.SizeType {
	return fpdf.SizeType{Wd: min(w, h), Ht: max(w, h)}
}

// NewPDF creates a document whose default page is w×h.
func NewPDF(w, h float64) *PDF {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation(w, h),
		UnitStr:        "pt",
		Size:           portraitSize(w, h),
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("shot2manual", true)
	return &PDF{pdf: pdf}
}

func (d *PDF) AddPage(w, h float64) {
	d.pdf.AddPageFormat(orientation(w, h), portraitSize(w, h))
}

func (d *PDF) AddImage(e Encoded, x, y, w, h float64) error {
	d.count++
	name := "page-" + strconv.Itoa(d.count)
	typ := "PNG"
	if e.Format == JPEG {
		typ = "JPG"
	}
	opts := fpdf.ImageOptions{ImageType: typ}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(e.Data))
	d.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("pdf page %d: %w", d.count, err)
	}
	return nil
}

func (d *PDF) Save(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}
