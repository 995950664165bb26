// Package source turns files on disk into screenshots ready for the store.
package source

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Source is a paged image container: a single screenshot, a directory of
// screenshots or a PDF whose pages are imported as screenshots.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	PageName(index int) string
	Close() error
}

// Open picks the Source implementation for path.
func Open(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// FitzPDFSource renders PDF pages with MuPDF.
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return f.doc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) PageName(index int) string {
	return pageName(f.path, index, f.PageCount())
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
