package config

import (
	"fmt"

	"github.com/ivlev/shot2manual/internal/layout"
	"github.com/ivlev/shot2manual/internal/project"
)

type Config struct {
	ProjectPath   string
	InputPath     string
	OutputDir     string
	Mode          string
	Preset        string
	MaxPerPage    int
	Title         string
	HeaderPath    string
	WatermarkPath string
	FontPath      string
	BoldFontPath  string
	StepLabel     string
	QRURL         string
	PixelRatio    float64
	Shrink        bool
	PDF           bool
	Images        bool
	Workers       int
	DPI           int
	AutoSteps     int
	Detector      string
	ShowStats     bool
	BuildVersion  string

	// Set holds the names of flags given explicitly on the command line.
	// Project values never override them.
	Set map[string]bool
}

// Apply fills the fields the user did not set on the command line from the
// project file.
func (c *Config) Apply(p *project.Project) {
	use := func(flag string, empty bool) bool { return !c.Set[flag] && !empty }

	if use("mode", p.Mode == "") {
		c.Mode = p.Mode
	}
	if use("title", p.Title == "") {
		c.Title = p.Title
	}
	if use("header", p.Header == "") {
		c.HeaderPath = p.Resolve(p.Header)
	}
	if use("watermark", p.Watermark == "") {
		c.WatermarkPath = p.Resolve(p.Watermark)
	}
	if use("preset", p.Preset == "") {
		c.Preset = p.Preset
	}
	if use("max-per-page", p.MaxPerPage == 0) {
		c.MaxPerPage = p.MaxPerPage
	}
	if use("step-label", p.StepLabel == "") {
		c.StepLabel = p.StepLabel
	}
	if use("qr", p.QRURL == "") {
		c.QRURL = p.QRURL
	}
}

// Validate resolves and checks the layout related fields.
func (c *Config) Validate() (layout.Mode, layout.Preset, error) {
	mode, err := layout.ParseMode(c.Mode)
	if err != nil {
		return "", layout.Preset{}, err
	}
	preset, err := layout.LookupPreset(mode, c.Preset)
	if err != nil {
		return "", layout.Preset{}, err
	}
	if mode == layout.ModeWeb && !layout.ValidMaxPerPage(c.MaxPerPage) {
		return "", layout.Preset{}, fmt.Errorf("max-per-page must be one of %v, got %d", layout.MaxPerPageOptions, c.MaxPerPage)
	}
	switch c.PixelRatio {
	case 1, 2, 3:
	default:
		return "", layout.Preset{}, fmt.Errorf("pixel-ratio must be 1, 2 or 3, got %v", c.PixelRatio)
	}
	return mode, preset, nil
}
