package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ivlev/shot2manual/internal/config"
	"github.com/ivlev/shot2manual/internal/engine"
	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/project"
	"github.com/ivlev/shot2manual/internal/system"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/projects", "input/shots", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	projectPtr := flag.String("project", "", "Путь к YAML-проекту (по умолчанию: самый свежий в input/projects/)")
	inputPtr := flag.String("input", "", "Скриншот, папка со скриншотами или PDF (без проекта)")
	outputPtr := flag.String("output", "", "Папка результата (если пусто, генерируется автоматически в output/)")
	modePtr := flag.String("mode", "app", "Тип руководства: app (сетка телефонов) или web (этапы с шагами)")
	presetPtr := flag.String("preset", "", "Формат страницы: A4_P, A4_L, HD_16_9")
	maxPerPagePtr := flag.Int("max-per-page", layout.DefaultMaxPerPage, "Шагов на страницу в режиме web: 6, 8, 10, 12")
	titlePtr := flag.String("title", "", "Заголовок в шапке страницы")
	headerPtr := flag.String("header", "", "Картинка шапки")
	watermarkPtr := flag.String("watermark", "", "Картинка водяного знака")
	fontPtr := flag.String("font", "", "TTF/OTF шрифт для текста (по умолчанию Go Regular)")
	boldFontPtr := flag.String("font-bold", "", "Жирный TTF/OTF шрифт (по умолчанию Go Bold)")
	stepLabelPtr := flag.String("step-label", "", "Подпись шага (по умолчанию \"Bước\")")
	qrPtr := flag.String("qr", "", "URL для QR-кода в подвале страницы")
	ratioPtr := flag.Float64("pixel-ratio", 2, "Множитель разрешения: 1, 2 или 3")
	shrinkPtr := flag.Bool("shrink", true, "Сжимать страницы в JPEG до 1 МБ")
	pdfPtr := flag.Bool("pdf", true, "Собрать PDF")
	imagesPtr := flag.Bool("images", false, "Сохранить каждую страницу отдельным файлом")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки импорта")
	dpiPtr := flag.Int("dpi", 150, "DPI при импорте PDF")
	autoStepsPtr := flag.Int("auto-steps", 0, "Найти до N шагов на этапах без шагов (режим web)")
	detectorPtr := flag.String("detector", "contrast", "Детектор шагов: contrast, none")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &config.Config{
		ProjectPath:   *projectPtr,
		InputPath:     *inputPtr,
		OutputDir:     *outputPtr,
		Mode:          *modePtr,
		Preset:        *presetPtr,
		MaxPerPage:    *maxPerPagePtr,
		Title:         *titlePtr,
		HeaderPath:    *headerPtr,
		WatermarkPath: *watermarkPtr,
		FontPath:      *fontPtr,
		BoldFontPath:  *boldFontPtr,
		StepLabel:     *stepLabelPtr,
		QRURL:         *qrPtr,
		PixelRatio:    *ratioPtr,
		Shrink:        *shrinkPtr,
		PDF:           *pdfPtr,
		Images:        *imagesPtr,
		Workers:       *workersPtr,
		DPI:           *dpiPtr,
		AutoSteps:     *autoStepsPtr,
		Detector:      *detectorPtr,
		ShowStats:     *statsPtr,
		BuildVersion:  buildVersion,
		Set:           set,
	}

	if cfg.ProjectPath == "" && cfg.InputPath == "" {
		latest, err := project.FindLatest("input/projects")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите проект в input/projects/ или укажите -input", err)
		}
		cfg.ProjectPath = latest
		fmt.Printf("[*] Выбран проект: %s\n", cfg.ProjectPath)
	}

	var proj *project.Project
	if cfg.ProjectPath != "" {
		p, err := project.Read(cfg.ProjectPath)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения проекта: %v", err)
		}
		proj = p
		cfg.Apply(proj)
	}

	if cfg.OutputDir == "" {
		nameSource := cfg.ProjectPath
		if nameSource == "" {
			nameSource = cfg.InputPath
		}
		baseName := filepath.Base(nameSource)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputDir = filepath.Join("output", fmt.Sprintf("%s_%s", cleanName, timestamp))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manual, err := engine.NewManualProject(cfg, proj, nil)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации: %v", err)
	}
	res, err := manual.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	for _, f := range res.Files {
		fmt.Printf("[*] Файл: %s\n", f)
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputDir)
}
