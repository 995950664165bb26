package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/shot2manual/internal/store"
)

var (
	// ErrNotImage is returned for data URIs that do not carry an image.
	ErrNotImage = errors.New("not an image data uri")
	// ErrTooLarge is returned for pages above Importer.MaxPixels.
	ErrTooLarge = errors.New("page too large")
)

// DefaultMaxPixels bounds one decoded screenshot (about 10000x10000).
const DefaultMaxPixels = 100_000_000

// Importer decodes a batch of files in parallel.
type Importer struct {
	Workers int
	DPI     int

	// MaxPixels caps the pixel count of one page. Larger pages are rejected
	// from their header, before decoding. Zero disables the check.
	MaxPixels int

	// OnError receives per-file failures. The file is dropped from the
	// batch either way.
	OnError func(path string, err error)
}

func NewImporter(workers, dpi int) *Importer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Importer{Workers: workers, DPI: dpi, MaxPixels: DefaultMaxPixels}
}

// Import decodes every path (image, directory, PDF or data URI) and returns
// the screenshots in input order. A file that fails to decode is reported
// and skipped; only cancellation fails the whole batch.
func (im *Importer) Import(ctx context.Context, paths []string) ([]store.Imported, error) {
	results, err := im.ImportEach(ctx, paths)
	if err != nil {
		return nil, err
	}
	var out []store.Imported
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}

// ImportEach is Import without flattening: results[i] holds the screenshots
// decoded from paths[i] and is nil when that path failed.
func (im *Importer) ImportEach(ctx context.Context, paths []string) ([][]store.Imported, error) {
	results := make([][]store.Imported, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, im.Workers))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items, err := im.load(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				im.report(path, err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (im *Importer) report(path string, err error) {
	if im.OnError != nil {
		im.OnError(path, err)
		return
	}
	log.Printf("[!] Пропуск %s: %v", shorten(path), err)
}

func (im *Importer) load(ctx context.Context, path string) ([]store.Imported, error) {
	if strings.HasPrefix(path, "data:") {
		img, err := DecodeDataURI(path)
		if err != nil {
			return nil, err
		}
		return []store.Imported{imported("", img)}, nil
	}

	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out := make([]store.Imported, 0, src.PageCount())
	for i := 0; i < src.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := im.checkSize(src, i); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		img, err := src.RenderPage(i, im.DPI)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, imported(src.PageName(i), img))
	}
	return out, nil
}

// checkSize compares the page size reported by the source with MaxPixels.
// PDF pages are measured in points and scaled to the render DPI.
func (im *Importer) checkSize(src Source, index int) error {
	if im.MaxPixels <= 0 {
		return nil
	}
	w, h, err := src.GetPageDimensions(index)
	if err != nil {
		return err
	}
	if _, ok := src.(*FitzPDFSource); ok {
		dpi := im.DPI
		if dpi <= 0 {
			dpi = DefaultDPI
		}
		scale := float64(dpi) / 72
		w, h = w*scale, h*scale
	}
	if w*h > float64(im.MaxPixels) {
		return fmt.Errorf("%w: %.0fx%.0f", ErrTooLarge, w, h)
	}
	return nil
}

func imported(name string, img image.Image) store.Imported {
	b := img.Bounds()
	return store.Imported{Name: name, Image: img, NatW: b.Dx(), NatH: b.Dy()}
}

// LoadImage decodes a single image from a file path or a data URI.
func LoadImage(src string) (image.Image, error) {
	if strings.HasPrefix(src, "data:") {
		return DecodeDataURI(src)
	}
	return decodeFile(src)
}

// DecodeDataURI decodes a base64 "data:image/...;base64," URI.
func DecodeDataURI(uri string) (image.Image, error) {
	head, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(head, "data:image/") || !strings.HasSuffix(head, ";base64") {
		return nil, ErrNotImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return img, nil
}

func shorten(path string) string {
	if strings.HasPrefix(path, "data:") && len(path) > 32 {
		return path[:32] + "…"
	}
	return path
}
