package system

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// ImageExtensions перечисляет форматы, которые умеет импортировать source.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// InitResourceLimits поднимает лимит открытых файлов: импорт большой пачки
// скриншотов открывает их параллельно.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}
	if rLimit.Cur >= 2048 {
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
		return
	}
	fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatest возвращает самый свежий файл с одним из расширений exts.
// Если path указывает на файл, поиск идет в его папке.
func FindLatest(path string, exts ...string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	dir := path
	if !fi.IsDir() {
		dir = filepath.Dir(path)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(exts, ", "))
	}
	return latestFile, nil
}

// FindLatestImage возвращает самое свежее изображение в папке.
func FindLatestImage(path string) (string, error) {
	return FindLatest(path, ImageExtensions...)
}

// ListImages возвращает изображения папки в лексикографическом порядке,
// то есть в порядке имен файлов скриншотов.
func ListImages(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if !f.IsDir() && hasExt(f.Name(), ImageExtensions) {
			out = append(out, filepath.Join(dir, f.Name()))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("в папке %s не найдено изображений", dir)
	}
	return out, nil
}

// CanvasBytes оценивает размер RGBA-холста страницы w×h при множителе m.
func CanvasBytes(w, h int, m float64) uint64 {
	return uint64(float64(w)*m) * uint64(float64(h)*m) * 4
}

// CheckMemory проверяет, что свободной памяти хватает на need байт.
// Ошибка чтения статистики не считается отказом.
func CheckMemory(need uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[!] Не удалось получить статистику памяти: %v", err)
		return nil
	}
	if vm.Available < need {
		return fmt.Errorf("недостаточно памяти: нужно %d МБ, доступно %d МБ", need>>20, vm.Available>>20)
	}
	return nil
}
