package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/shot2manual/internal/analyzer"
	"github.com/ivlev/shot2manual/internal/annotate"
	"github.com/ivlev/shot2manual/internal/config"
	"github.com/ivlev/shot2manual/internal/export"
	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/project"
	"github.com/ivlev/shot2manual/internal/render"
	"github.com/ivlev/shot2manual/internal/source"
	"github.com/ivlev/shot2manual/internal/store"
	"github.com/ivlev/shot2manual/internal/system"
)

// replayView - сторона квадратной области, в которой воспроизводятся
// записанные жесты. Точки хранятся нормализованными, размер может быть любым.
const replayView = 1000

// ManualProject превращает проект (или папку скриншотов) в страницы
// инструкции и экспортирует их.
type ManualProject struct {
	Config   *config.Config
	Project  *project.Project // nil when importing Config.InputPath ad hoc
	Store    *store.Store
	Importer *source.Importer
	Detector analyzer.Detector
	Renderer *render.Renderer
	Exporter *export.Exporter

	freehand *annotate.Freehand
	hotspot  *annotate.Hotspot
	stats    Stats
}

// Stats - замеры одного запуска.
type Stats struct {
	Shots, Stages, Steps, Pages int
	Import, Annotate, Export    time.Duration
	Result                      export.Result
}

func NewManualProject(cfg *config.Config, p *project.Project, sink export.Sink) (*ManualProject, error) {
	fonts, err := loadFonts(cfg.FontPath, cfg.BoldFontPath)
	if err != nil {
		return nil, err
	}
	det, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = export.DirSink{Dir: cfg.OutputDir}
	}

	st := store.New(cfg.StepLabel)
	renderer := render.New(fonts, system.DefaultPool())
	return &ManualProject{
		Config:   cfg,
		Project:  p,
		Store:    st,
		Importer: source.NewImporter(cfg.Workers, cfg.DPI),
		Detector: det,
		Renderer: renderer,
		Exporter: export.New(renderer, export.NewStdEncoder(), sink),
		freehand: annotate.NewFreehand(st, annotate.NewBaker(st)),
		hotspot:  annotate.NewHotspot(st),
	}, nil
}

func loadFonts(regular, bold string) (*render.Fonts, error) {
	read := func(path string) ([]byte, error) {
		if path == "" {
			return nil, nil
		}
		return os.ReadFile(path)
	}
	r, err := read(regular)
	if err != nil {
		return nil, fmt.Errorf("шрифт: %w", err)
	}
	b, err := read(bold)
	if err != nil {
		return nil, fmt.Errorf("жирный шрифт: %w", err)
	}
	return render.LoadFonts(r, b)
}

// Run выполняет импорт, воспроизведение разметки, верстку и экспорт.
func (p *ManualProject) Run(ctx context.Context) (export.Result, error) {
	startTime := time.Now()

	mode, preset, err := p.Config.Validate()
	if err != nil {
		return export.Result{}, err
	}

	fmt.Println("--- [PROJECT: SHOT2MANUAL] ---")
	fmt.Printf("[*] Режим: %s | Формат: %s (%dx%d)\n", mode, preset.Label, preset.Width, preset.Height)
	fmt.Println("-----------------------------")

	importStart := time.Now()
	if mode == layout.ModeWeb {
		err = p.importStages(ctx)
	} else {
		err = p.importShots(ctx)
	}
	if err != nil {
		return export.Result{}, err
	}
	p.stats.Import = time.Since(importStart)

	snap := p.Store.Snapshot()
	p.stats.Shots, p.stats.Stages = len(snap.Shots), len(snap.Stages)
	for _, st := range snap.Stages {
		p.stats.Steps += len(st.Steps)
	}
	if mode == layout.ModeApp && len(snap.Shots) == 0 || mode == layout.ModeWeb && len(snap.Stages) == 0 {
		return export.Result{}, fmt.Errorf("нет ни одного изображения для руководства")
	}

	hdr, err := p.header(mode)
	if err != nil {
		return export.Result{}, err
	}
	var pages []layout.Page
	if mode == layout.ModeWeb {
		pages = layout.Split(snap.Stages, hdr, preset, p.Config.MaxPerPage)
	} else {
		pages = layout.Grid(snap.Shots, hdr, preset)
	}
	p.stats.Pages = len(pages)
	fmt.Printf("[*] Страниц: %d | Скриншотов: %d | Этапов: %d | Шагов: %d\n",
		len(pages), p.stats.Shots, p.stats.Stages, p.stats.Steps)

	exportStart := time.Now()
	res, err := p.Exporter.Export(ctx, pages, export.Options{
		Mode:       mode,
		PixelRatio: p.Config.PixelRatio,
		Shrink:     p.Config.Shrink,
		Images:     p.Config.Images,
		PDF:        p.Config.PDF,
		Progress: func(done, total int) {
			fmt.Printf("[>] Ready: %d/%d\n", done, total)
		},
	})
	if err != nil {
		return res, fmt.Errorf("ошибка экспорта: %w", err)
	}
	p.stats.Export = time.Since(exportStart)
	p.stats.Result = res

	if p.Config.ShowStats {
		p.report(time.Since(startTime))
	}
	return res, nil
}

func (p *ManualProject) header(mode layout.Mode) (layout.Header, error) {
	hdr := layout.Header{
		Title:     p.Config.Title,
		QR:        p.Config.QRURL,
		StepLabel: p.Store.StepLabel(),
	}
	if hdr.Title == "" {
		hdr.Title = layout.DefaultTitle(mode)
	}
	var err error
	if p.Config.HeaderPath != "" {
		if hdr.Image, err = loadDecoration(p.Config.HeaderPath); err != nil {
			return hdr, fmt.Errorf("шапка: %w", err)
		}
	}
	if p.Config.WatermarkPath != "" {
		if hdr.Watermark, err = loadDecoration(p.Config.WatermarkPath); err != nil {
			return hdr, fmt.Errorf("водяной знак: %w", err)
		}
	}
	return hdr, nil
}

// loadDecoration загружает шапку или водяной знак. Вместо папки берется
// самое свежее изображение в ней.
func loadDecoration(path string) (image.Image, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if path, err = system.FindLatestImage(path); err != nil {
			return nil, err
		}
	}
	return source.LoadImage(path)
}

func (p *ManualProject) adhocInputs() ([]string, error) {
	if p.Config.InputPath == "" {
		return nil, errors.New("не указан ни проект, ни входной путь")
	}
	return []string{p.Config.InputPath}, nil
}

func (p *ManualProject) importShots(ctx context.Context) error {
	if p.Project == nil {
		inputs, err := p.adhocInputs()
		if err != nil {
			return err
		}
		items, err := p.Importer.Import(ctx, inputs)
		if err != nil {
			return err
		}
		p.Store.ImportShots(items)
		return nil
	}

	paths := make([]string, len(p.Project.Shots))
	for i, s := range p.Project.Shots {
		paths[i] = p.Project.Resolve(s.Src)
	}
	results, err := p.Importer.ImportEach(ctx, paths)
	if err != nil {
		return err
	}

	batch, owners := flatten(results)
	shots := p.Store.ImportShots(batch)

	annotateStart := time.Now()
	for j, shot := range shots {
		i := owners[j]
		if i < 0 {
			continue
		}
		if err := p.replayShot(ctx, shot, p.Project.Shots[i]); err != nil {
			return fmt.Errorf("скриншот %s: %w", p.Project.Shots[i].Src, err)
		}
	}
	p.stats.Annotate = time.Since(annotateStart)
	return nil
}

// flatten склеивает результаты импорта по файлам в одну пачку. owners[j] -
// номер входа, из которого пришел j-й скриншот, или -1, если вход дал
// несколько страниц: записанная разметка относится к одному скриншоту.
func flatten(results [][]store.Imported) ([]store.Imported, []int) {
	var batch []store.Imported
	var owners []int
	for i, items := range results {
		owner := i
		if len(items) != 1 {
			owner = -1
		}
		for range items {
			owners = append(owners, owner)
		}
		batch = append(batch, items...)
	}
	return batch, owners
}

// replayShot прогоняет записанные штрихи через аннотатор как события
// указателя на виртуальном экране.
func (p *ManualProject) replayShot(ctx context.Context, shot store.Shot, rec project.Shot) error {
	if rec.Description != "" {
		if err := p.Store.UpdateDescription(shot.ID, rec.Description); err != nil {
			return err
		}
	}
	natW, natH := shot.NaturalSize()
	view := geometry.FitBox(natW, natH, replayView, replayView)
	p.freehand.SetView(view)

	for _, stroke := range rec.Strokes {
		tool, err := geometry.ParseShapeType(stroke.Tool)
		if err != nil {
			return err
		}
		p.freehand.SetTool(tool)
		color := stroke.Color
		if color == "" {
			color = annotate.DefaultStrokeColor
		}
		p.freehand.SetColor(color)

		pts := stroke.Points
		if err := p.freehand.PointerDown(shot.ID, geometry.ToDisplay(pts[0], view)); err != nil {
			return err
		}
		for _, pt := range pts[1:] {
			if err := p.freehand.PointerMove(geometry.ToDisplay(pt, view)); err != nil {
				return err
			}
		}
		if _, err := p.freehand.PointerUp(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *ManualProject) importStages(ctx context.Context) error {
	var paths []string
	if p.Project == nil {
		inputs, err := p.adhocInputs()
		if err != nil {
			return err
		}
		paths = inputs
	} else {
		for _, s := range p.Project.Stages {
			paths = append(paths, p.Project.Resolve(s.Src))
		}
	}
	results, err := p.Importer.ImportEach(ctx, paths)
	if err != nil {
		return err
	}

	batch, owners := flatten(results)
	stages := p.Store.ImportStages(batch)

	annotateStart := time.Now()
	for j, st := range stages {
		if i := owners[j]; p.Project != nil && i >= 0 {
			rec := p.Project.Stages[i]
			if err := p.replayStage(st, rec); err != nil {
				return fmt.Errorf("этап %s: %w", rec.Src, err)
			}
		}
		if err := p.autoSteps(st.ID); err != nil {
			return err
		}
	}
	p.stats.Annotate = time.Since(annotateStart)
	return nil
}

// replayStage воспроизводит записанные выделения областей на этапе.
func (p *ManualProject) replayStage(st store.Stage, rec project.Stage) error {
	if err := p.Store.SelectStage(st.ID); err != nil {
		return err
	}
	view := geometry.FitBox(st.NatW, st.NatH, replayView, replayView)
	p.hotspot.SetView(view)

	for n, s := range rec.Steps {
		p.hotspot.PointerDown(st.ID, geometry.ToDisplay(s.From, view))
		p.hotspot.PointerMove(geometry.ToDisplay(s.To, view))
		step, ok, err := p.hotspot.PointerUp()
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("[!] Шаг %d этапа %s слишком мал и пропущен", n+1, st.Name)
			continue
		}
		if s.Title != "" {
			if err := p.hotspot.SetTitle(st.ID, step.ID, s.Title); err != nil {
				return err
			}
		}
		if s.Desc != "" {
			if err := p.hotspot.SetDesc(st.ID, step.ID, s.Desc); err != nil {
				return err
			}
		}
		if s.Thumb != "" {
			thumb, err := source.LoadImage(p.Project.Resolve(s.Thumb))
			if err != nil {
				log.Printf("[!] Миниатюра шага %d: %v", n+1, err)
				continue
			}
			if err := p.hotspot.SetThumb(st.ID, step.ID, thumb); err != nil {
				return err
			}
		}
	}
	return nil
}

// autoSteps заполняет этап без шагов найденными областями.
func (p *ManualProject) autoSteps(stageID string) error {
	if p.Config.AutoSteps <= 0 {
		return nil
	}
	snap := p.Store.Snapshot()
	st, _, ok := snap.Stage(stageID)
	if !ok || len(st.Steps) > 0 {
		return nil
	}
	regions, err := analyzer.SuggestRegions(p.Detector, st.Image, p.Config.AutoSteps)
	if err != nil {
		log.Printf("[!] Ошибка анализа этапа %s: %v", st.Name, err)
		return nil
	}
	for _, r := range regions {
		if _, _, err := p.Store.AddStep(stageID, r); err != nil {
			return err
		}
	}
	if len(regions) > 0 {
		fmt.Printf("[*] Этап %s: найдено шагов автоматически: %d\n", st.Name, len(regions))
	}
	return nil
}

// Stats возвращает замеры последнего Run.
func (p *ManualProject) Stats() Stats {
	return p.stats
}

func (p *ManualProject) report(total time.Duration) {
	s := p.stats
	pps := float64(s.Pages) / total.Seconds()
	hits, misses := system.DefaultPool().Stats()

	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Import: %.2fs\n"+
			"Annotate: %.2fs\n"+
			"Render+Export: %.2fs\n"+
			"Encode attempts: %d\n"+
			"Output: %.2f MB\n"+
			"Canvas pool: %d hits / %d misses\n"+
			"Pages/s: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), s.Import.Seconds(), s.Annotate.Seconds(),
		s.Export.Seconds(), s.Result.Attempts, float64(s.Result.Bytes)/(1<<20), hits, misses, pps,
	)

	input := p.Config.ProjectPath
	if input == "" {
		input = p.Config.InputPath
	}
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Pages: %d | Total: %.2fs | Import: %.2fs | Export: %.2fs | Pages/s: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(input),
		s.Pages,
		total.Seconds(),
		s.Import.Seconds(),
		s.Export.Seconds(),
		pps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
