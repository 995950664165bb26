// Package store owns the shots, stages and steps of a manual.
//
// Every mutation builds a fresh Snapshot and publishes it atomically, so a
// reader (compositor, exporter) holding a snapshot never observes a partially
// updated collection.
package store

import (
	"image"

	"github.com/ivlev/shot2manual/internal/geometry"
)

// Shot is one screenshot of the freehand (APP) manual.
//
// A shot holds either pending vector shapes or a baked raster with no shapes.
type Shot struct {
	ID          string
	Name        string
	Src         image.Image
	Annotated   image.Image // Baked image, supersedes Src for display once set
	Description string
	Shapes      []geometry.Shape
}

// Display returns the image currently shown for the shot.
func (s Shot) Display() image.Image {
	if s.Annotated != nil {
		return s.Annotated
	}
	return s.Src
}

// NaturalSize returns the pixel size of the displayed image.
func (s Shot) NaturalSize() (int, int) {
	img := s.Display()
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func (s Shot) clone() Shot {
	s.Shapes = append([]geometry.Shape(nil), s.Shapes...)
	return s
}

// WebStep is a numbered hotspot on a stage.
type WebStep struct {
	ID          string
	Index       int // 1-based, dense within its stage
	Region      geometry.Region
	Title       string
	TitleCustom bool // Set once the user edits the title
	Desc        string
	Thumb       image.Image
}

// Stage is one screenshot of the hotspot (WEB) manual.
//
// NatW and NatH are captured at import and every region is interpreted
// against them.
type Stage struct {
	ID    string
	Name  string
	Image image.Image
	NatW  int
	NatH  int
	Steps []WebStep
}

func (s Stage) clone() Stage {
	s.Steps = append([]WebStep(nil), s.Steps...)
	return s
}

// Snapshot is an immutable view of the store. Callers must not modify the
// slices it exposes.
type Snapshot struct {
	Shots        []Shot
	Stages       []Stage
	Current      int // Selected shot index, -1 when there are no shots
	CurrentStage string
}

// Selected returns the current shot index, or false if nothing is selected.
func (s *Snapshot) Selected() (int, bool) {
	if s.Current < 0 || s.Current >= len(s.Shots) {
		return 0, false
	}
	return s.Current, true
}

// Shot looks up a shot by ID.
func (s *Snapshot) Shot(id string) (Shot, int, bool) {
	for i, sh := range s.Shots {
		if sh.ID == id {
			return sh, i, true
		}
	}
	return Shot{}, -1, false
}

// Stage looks up a stage by ID.
func (s *Snapshot) Stage(id string) (Stage, int, bool) {
	for i, st := range s.Stages {
		if st.ID == id {
			return st, i, true
		}
	}
	return Stage{}, -1, false
}

func (s *Snapshot) copy() *Snapshot {
	next := &Snapshot{
		Shots:        make([]Shot, len(s.Shots)),
		Stages:       make([]Stage, len(s.Stages)),
		Current:      s.Current,
		CurrentStage: s.CurrentStage,
	}
	copy(next.Shots, s.Shots)
	copy(next.Stages, s.Stages)
	return next
}
