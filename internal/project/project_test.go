package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/shot2manual/internal/geometry"
)

const sample = `mode: web
title: Đăng ký tài khoản
preset: A4_L
max_per_page: 6
stages:
  - src: stages/login.png
    name: Login
    steps:
      - from: {x: 0.1, y: 0.2}
        to: {x: 0.4, y: 0.3}
        title: Nhập email
      - from: {x: 0.5, y: 0.5}
        to: {x: 0.6, y: 0.6}
shots:
  - src: /abs/home.png
    description: Màn hình chính
    strokes:
      - tool: arrow
        color: "#22c55e"
        points: [{x: 0.1, y: 0.1}, {x: 0.3, y: 0.3}]
`

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Mode != "web" || p.Preset != "A4_L" || p.MaxPerPage != 6 {
		t.Errorf("header fields: %+v", p)
	}
	want := []Step{
		{From: geometry.Point{X: 0.1, Y: 0.2}, To: geometry.Point{X: 0.4, Y: 0.3}, Title: "Nhập email"},
		{From: geometry.Point{X: 0.5, Y: 0.5}, To: geometry.Point{X: 0.6, Y: 0.6}},
	}
	if diff := cmp.Diff(want, p.Stages[0].Steps); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
	if got := p.Resolve(p.Stages[0].Src); got != filepath.Join(dir, "stages", "login.png") {
		t.Errorf("relative src resolved to %s", got)
	}
	if got := p.Resolve(p.Shots[0].Src); got != "/abs/home.png" {
		t.Errorf("absolute src resolved to %s", got)
	}
	if got := p.Resolve("data:image/png;base64,AAAA"); !strings.HasPrefix(got, "data:") {
		t.Errorf("data uri resolved to %s", got)
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	in := &Project{
		Mode:  "app",
		Title: "Manual",
		Shots: []Shot{{
			Src:         "a.png",
			Description: "Bước đầu",
			Strokes: []Stroke{{Tool: "rect", Color: "#ef4444", Points: []geometry.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}}}},
		}},
	}
	if err := Write(in, path); err != nil {
		t.Fatal(err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	out.Dir = ""
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestReadRejects(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"unknown mode", "mode: tablet\n"},
		{"unknown field", "mode: app\ncolour: red\n"},
		{"empty src", "shots:\n  - description: x\n"},
		{"bad tool", "shots:\n  - src: a.png\n    strokes:\n      - tool: star\n        points: [{x: 0, y: 0}]\n"},
		{"no points", "shots:\n  - src: a.png\n    strokes:\n      - tool: rect\n"},
		{"stage src", "stages:\n  - name: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.yaml")
			os.WriteFile(path, []byte(tt.body), 0o644)
			if _, err := Read(path); err == nil {
				t.Error("expected error")
			} else {
				t.Logf("%v", err)
			}
		})
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindLatest(dir); !errors.Is(err, ErrNoProject) {
		t.Errorf("empty dir: %v", err)
	}

	old := filepath.Join(dir, "old.yaml")
	recent := filepath.Join(dir, "new.yml")
	os.WriteFile(old, []byte("mode: app\n"), 0o644)
	os.WriteFile(recent, []byte("mode: web\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "shot.png"), nil, 0o644)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	got, err := FindLatest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != recent {
		t.Errorf("FindLatest = %s, want %s", got, recent)
	}
}
