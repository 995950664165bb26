package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Fonts holds the parsed regular and bold typefaces and caches faces by
// pixel size.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

// LoadFonts parses TrueType/OpenType data. Nil data selects the Go fonts.
func LoadFonts(regular, bold []byte) (*Fonts, error) {
	if regular == nil {
		regular = goregular.TTF
	}
	if bold == nil {
		bold = gobold.TTF
	}
	r, err := opentype.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	b, err := opentype.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{regular: r, bold: b, faces: make(map[faceKey]font.Face)}, nil
}

// Face returns a face of size pixels.
func (f *Fonts) Face(size float64, bold bool) font.Face {
	key := faceKey{bold: bold, size: math.Round(size*4) / 4}
	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		face = basicfont.Face7x13
	}
	f.faces[key] = face
	return face
}

func measure(face font.Face, s string) int {
	return (&font.Drawer{Face: face}).MeasureString(s).Ceil()
}

// lineMetrics returns ascent and descent in pixels.
func lineMetrics(face font.Face) (int, int) {
	m := face.Metrics()
	return m.Ascent.Ceil(), m.Descent.Ceil()
}

func drawString(dst *image.RGBA, face font.Face, col color.Color, x, baseline int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

// drawCentered draws s horizontally centred on cx with its line box
// vertically centred on cy.
func drawCentered(dst *image.RGBA, face font.Face, col color.Color, cx, cy int, s string) {
	asc, desc := lineMetrics(face)
	drawString(dst, face, col, cx-measure(face, s)/2, cy+(asc-desc)/2, s)
}

// wrap breaks text into lines no wider than maxW. Explicit newlines are
// kept; a single word wider than maxW is split by runes.
func wrap(face font.Face, text string, maxW int) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := ""
		for _, w := range words {
			cand := w
			if cur != "" {
				cand = cur + " " + w
			}
			if measure(face, cand) <= maxW {
				cur = cand
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
			}
			cur = ""
			for _, piece := range splitWord(face, w, maxW) {
				if cur != "" {
					lines = append(lines, cur)
				}
				cur = piece
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

func splitWord(face font.Face, w string, maxW int) []string {
	if measure(face, w) <= maxW {
		return []string{w}
	}
	var out []string
	cur := ""
	for _, r := range w {
		if cur != "" && measure(face, cur+string(r)) > maxW {
			out = append(out, cur)
			cur = ""
		}
		cur += string(r)
	}
	return append(out, cur)
}
