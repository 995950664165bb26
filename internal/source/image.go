package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/shot2manual/internal/system"
)

// DefaultDPI is used when PDF pages are rasterised without an explicit DPI.
const DefaultDPI = 150

// ImageSource serves one image file or every image in a directory, sorted
// by name.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	paths := []string{path}
	if fi.IsDir() {
		if paths, err = system.ListImages(path); err != nil {
			return nil, err
		}
	}
	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) GetPageDimensions(index int) (float64, float64, error) {
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", filepath.Base(s.paths[index]), err)
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes the image at index. Raster files have no DPI, so dpi
// is ignored.
func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	return decodeFile(s.paths[index])
}

func (s *ImageSource) PageName(index int) string {
	return filepath.Base(s.paths[index])
}

func (s *ImageSource) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func pageName(path string, index, total int) string {
	base := filepath.Base(path)
	if total <= 1 {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-" + strconv.Itoa(index+1)
}
