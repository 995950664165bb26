package layout

import (
	"fmt"
	"strings"
)

// Mode selects the manual type and with it the layout algorithm.
type Mode string

const (
	ModeApp Mode = "app" // freehand shots on a grid
	ModeWeb Mode = "web" // hotspot stages in a split layout
)

// ParseMode validates a mode name. Empty means app.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeApp, ModeWeb:
		return m, nil
	case "":
		return ModeApp, nil
	default:
		return "", fmt.Errorf("unknown mode: %s", s)
	}
}

// Preset is a fixed output page size and, for grid pages, its capacity.
type Preset struct {
	Key     string
	Label   string
	Width   int
	Height  int
	MaxCols int
	MaxRows int
}

// PerPage is the number of grid cells on one page.
func (p Preset) PerPage() int {
	return max(1, p.MaxCols*p.MaxRows)
}

var AppPresets = []Preset{
	{Key: "A4_P", Label: "A4 dọc (1240×1754)", Width: 1240, Height: 1754, MaxCols: 3, MaxRows: 2},
	{Key: "A4_L", Label: "A4 ngang (1754×1240)", Width: 1754, Height: 1240, MaxCols: 4, MaxRows: 1},
	{Key: "HD_16_9", Label: "16:9 (1920×1080)", Width: 1920, Height: 1080, MaxCols: 5, MaxRows: 1},
}

var WebPresets = []Preset{
	{Key: "A4_L", Label: "A4 ngang (1754×1240)", Width: 1754, Height: 1240},
	{Key: "HD_16_9", Label: "16:9 (1920×1080)", Width: 1920, Height: 1080},
}

// MaxPerPageOptions are the accepted split page capacities.
var MaxPerPageOptions = []int{6, 8, 10, 12}

const DefaultMaxPerPage = 8

// DefaultTitle returns the header title used when a project sets none.
func DefaultTitle(m Mode) string {
	if m == ModeWeb {
		return "HƯỚNG DẪN SỬ DỤNG (WEB)"
	}
	return "HƯỚNG DẪN SỬ DỤNG (APP)"
}

// DefaultPreset returns the preset selected when a project names none.
func DefaultPreset(m Mode) Preset {
	if m == ModeWeb {
		return WebPresets[1]
	}
	return AppPresets[2]
}

// LookupPreset finds a preset by key for the given mode. An empty key
// selects the default preset.
func LookupPreset(m Mode, key string) (Preset, error) {
	if key == "" {
		return DefaultPreset(m), nil
	}
	list := AppPresets
	if m == ModeWeb {
		list = WebPresets
	}
	for _, p := range list {
		if strings.EqualFold(p.Key, key) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("preset %q is not available in %s mode", key, m)
}

// ValidMaxPerPage reports whether n is one of MaxPerPageOptions.
func ValidMaxPerPage(n int) bool {
	for _, v := range MaxPerPageOptions {
		if v == n {
			return true
		}
	}
	return false
}
