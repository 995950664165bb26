// Package export отрисовывает сверстанные страницы и сохраняет их как
// изображения и как один PDF. Страницы обрабатываются строго по очереди,
// в памяти живет только один полноразмерный холст.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/system"
)

var (
	// ErrExportInProgress возвращается, если экспорт уже идет.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrNoPages возвращается, если экспортировать нечего.
	ErrNoPages = errors.New("no pages to export")
)

// Rasterizer отрисовывает страницу в растр.
type Rasterizer interface {
	Render(ctx context.Context, page layout.Page, multiplier float64) (*image.RGBA, error)
	Release(img *image.RGBA)
}

// Options - параметры одного экспорта.
type Options struct {
	Mode       layout.Mode
	PixelRatio float64 // requested multiplier, 1, 2 or 3; 0 means 2
	Shrink     bool    // size-budgeted JPEG instead of lossless PNG
	MaxBytes   int     // per-page budget, MaxPageBytes when 0
	Images     bool    // save one file per page
	PDF        bool    // save the assembled document

	// Progress вызывается после каждой готовой страницы.
	Progress func(done, total int)
}

// Multiplier возвращает множитель плотности для отрисовки.
// В режиме сжатия он не больше 1.25.
func (o Options) Multiplier() float64 {
	m := o.PixelRatio
	if m <= 0 {
		m = 2
	}
	if o.Shrink {
		m = min(m, 1.25)
	}
	return m
}

// Result - итог завершенного экспорта.
type Result struct {
	Files    []string
	Pages    int
	Bytes    int64
	Attempts int // total encode attempts
	Duration time.Duration
}

// Exporter выполняет экспорт. Два экспорта одновременно не запускаются.
type Exporter struct {
	raster Rasterizer
	enc    Encoder
	sink   Sink
	newDoc func(w, h float64) Document

	running atomic.Bool
	// CheckMemory вызывается перед отрисовкой; nil отключает проверку.
	CheckMemory func(need uint64) error
}

func New(r Rasterizer, enc Encoder, sink Sink) *Exporter {
	if enc == nil {
		enc = NewStdEncoder()
	}
	return &Exporter{
		raster:      r,
		enc:         enc,
		sink:        sink,
		newDoc:      func(w, h float64) Document { return NewPDF(w, h) },
		CheckMemory: system.CheckMemory,
	}
}

// PageFileName возвращает имя файла страницы n (с единицы).
func PageFileName(m layout.Mode, n int, f Format) string {
	if m == layout.ModeWeb {
		return fmt.Sprintf("manual-web-%d.%s", n, f.Ext())
	}
	return fmt.Sprintf("manual-page-%d.%s", n, f.Ext())
}

// DocumentFileName возвращает имя итогового документа.
func DocumentFileName(m layout.Mode) string {
	if m == layout.ModeWeb {
		return "manual-web.pdf"
	}
	return "manual.pdf"
}

// Export по очереди отрисовывает, кодирует и сохраняет страницы. Ошибка
// останавливает экспорт: уже сохраненные страницы остаются на диске,
// документ не сохраняется.
func (e *Exporter) Export(ctx context.Context, pages []layout.Page, opts Options) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Result{}, ErrExportInProgress
	}
	defer e.running.Store(false)

	if len(pages) == 0 {
		return Result{}, ErrNoPages
	}
	if !opts.Images && !opts.PDF {
		opts.Images = true
	}
	start := time.Now()
	m := opts.Multiplier()

	if e.CheckMemory != nil {
		need := system.CanvasBytes(pages[0].Width, pages[0].Height, m) * 2
		if err := e.CheckMemory(need); err != nil {
			return Result{}, fmt.Errorf("export: %w", err)
		}
	}

	var doc Document
	if opts.PDF {
		doc = e.newDoc(float64(pages[0].Width), float64(pages[0].Height))
	}

	var res Result
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		enc, err := e.encodePage(ctx, page, m, opts)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", i+1, err)
		}
		res.Attempts += enc.Attempts

		if opts.Images {
			path, err := e.sink.Save(PageFileName(opts.Mode, i+1, enc.Format), enc.Data)
			if err != nil {
				return res, fmt.Errorf("save page %d: %w", i+1, err)
			}
			res.Files = append(res.Files, path)
			res.Bytes += int64(len(enc.Data))
		}
		if doc != nil {
			w, h := float64(page.Width), float64(page.Height)
			doc.AddPage(w, h)
			if err := doc.AddImage(enc, 0, 0, w, h); err != nil {
				return res, err
			}
		}
		res.Pages++
		if opts.Progress != nil {
			opts.Progress(i+1, len(pages))
		}
	}

	if doc != nil {
		var buf bytes.Buffer
		if err := doc.Save(&buf); err != nil {
			return res, err
		}
		path, err := e.sink.Save(DocumentFileName(opts.Mode), buf.Bytes())
		if err != nil {
			return res, fmt.Errorf("save document: %w", err)
		}
		res.Files = append(res.Files, path)
		res.Bytes += int64(buf.Len())
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (e *Exporter) encodePage(ctx context.Context, page layout.Page, m float64, opts Options) (Encoded, error) {
	img, err := e.raster.Render(ctx, page, m)
	if err != nil {
		return Encoded{}, fmt.Errorf("render: %w", err)
	}
	defer e.raster.Release(img)

	if opts.Shrink {
		return EncodeBudgeted(e.enc, img, opts.MaxBytes)
	}
	return EncodeLossless(e.enc, img)
}
