// Package project reads and writes manual projects: the list of screenshots
// with their annotations, stored as YAML next to the images.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/system"
)

// Project describes one manual.
type Project struct {
	Mode       string `yaml:"mode"`
	Title      string `yaml:"title,omitempty"`
	Header     string `yaml:"header,omitempty"`
	Preset     string `yaml:"preset,omitempty"`
	MaxPerPage int    `yaml:"max_per_page,omitempty"`
	StepLabel  string `yaml:"step_label,omitempty"`
	QRURL      string `yaml:"qr_url,omitempty"`
	Watermark  string `yaml:"watermark,omitempty"`

	Shots  []Shot  `yaml:"shots,omitempty"`
	Stages []Stage `yaml:"stages,omitempty"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// Shot is an app-mode screenshot with its freehand strokes.
type Shot struct {
	Src         string   `yaml:"src"`
	Description string   `yaml:"description,omitempty"`
	Strokes     []Stroke `yaml:"strokes,omitempty"`
}

// Stroke is one recorded pointer gesture. Points are normalized to the
// screenshot: the first is the press, the last the release.
type Stroke struct {
	Tool   string           `yaml:"tool"`
	Color  string           `yaml:"color,omitempty"`
	Points []geometry.Point `yaml:"points,flow"`
}

// Stage is a web-mode page with its hotspot steps.
type Stage struct {
	Src   string `yaml:"src"`
	Name  string `yaml:"name,omitempty"`
	Steps []Step `yaml:"steps,omitempty"`
}

// Step is one hotspot drag plus its texts.
type Step struct {
	From  geometry.Point `yaml:"from,flow"`
	To    geometry.Point `yaml:"to,flow"`
	Title string         `yaml:"title,omitempty"`
	Desc  string         `yaml:"desc,omitempty"`
	Thumb string         `yaml:"thumb,omitempty"`
}

// Read parses the project file at path.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	p.Dir = filepath.Dir(path)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &p, nil
}

// Write stores p at path.
func Write(p *Project, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate checks the parts of the project that cannot be recovered from
// at run time.
func (p *Project) Validate() error {
	switch p.Mode {
	case "", "app", "web":
	default:
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	for i, s := range p.Shots {
		if s.Src == "" {
			return fmt.Errorf("shot %d: src is empty", i+1)
		}
		for j, st := range s.Strokes {
			if _, err := geometry.ParseShapeType(st.Tool); err != nil {
				return fmt.Errorf("shot %d stroke %d: %w", i+1, j+1, err)
			}
			if len(st.Points) == 0 {
				return fmt.Errorf("shot %d stroke %d: no points", i+1, j+1)
			}
		}
	}
	for i, s := range p.Stages {
		if s.Src == "" {
			return fmt.Errorf("stage %d: src is empty", i+1)
		}
	}
	return nil
}

// Resolve returns src as a path usable from the working directory. Data
// URIs and absolute paths are returned unchanged.
func (p *Project) Resolve(src string) string {
	if src == "" || strings.HasPrefix(src, "data:") || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(p.Dir, src)
}

// ErrNoProject is returned by FindLatest when dir has no project file.
var ErrNoProject = errors.New("no project file found")

// FindLatest returns the most recently modified *.yaml or *.yml file in dir.
func FindLatest(dir string) (string, error) {
	path, err := system.FindLatest(dir, ".yaml", ".yml")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoProject, err)
	}
	return path, nil
}
