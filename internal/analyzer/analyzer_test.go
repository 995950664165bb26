package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createTestImage(w, h int, boxes ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range boxes {
		draw.Draw(img, r, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	}
	return img
}

func TestContrastDetector(t *testing.T) {
	img := createTestImage(200, 200, image.Rect(50, 50, 150, 150))

	detector := NewContrastDetector()
	blocks, err := detector.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}

	block := blocks[0]
	if block.Rect.Dx() < 80 || block.Rect.Dy() < 80 {
		t.Errorf("Block too small: %v", block.Rect)
	}
	if !block.Rect.Overlaps(image.Rect(50, 50, 150, 150)) {
		t.Errorf("block %v misses the square", block.Rect)
	}

	for i, b := range blocks {
		t.Logf("Block %d: %v (type: %s, confidence: %.2f)", i, b.Rect, b.Type, b.Confidence)
	}
}

func TestContrastDetectorDownscales(t *testing.T) {
	img := createTestImage(2400, 600, image.Rect(1200, 300, 1600, 340))
	blocks, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("blocks = %v", blocks)
	}
	r := blocks[0].Rect
	if r.Min.X < 1170 || r.Min.X > 1210 || r.Max.X < 1590 || r.Max.X > 1630 {
		t.Errorf("block not mapped back to full resolution: %v", r)
	}
	if blocks[0].Type != "control" {
		t.Errorf("wide short block classified as %q", blocks[0].Type)
	}
}

func TestContrastDetectorIgnoresFlatAndTiny(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"flat", createTestImage(100, 100)},
		{"speck", createTestImage(100, 100, image.Rect(40, 40, 42, 42))},
		{"empty", image.NewGray(image.Rectangle{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := NewContrastDetector().Detect(tt.img)
			if err != nil || len(blocks) != 0 {
				t.Errorf("got %v, %v", blocks, err)
			}
		})
	}
}

func TestReadingOrder(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(300, 105, 350, 130), // row 2, right
		image.Rect(10, 100, 60, 120),   // row 2, left
		image.Rect(200, 12, 260, 40),   // row 1, right
		image.Rect(20, 0, 80, 30),      // row 1, left
		image.Rect(0, 400, 50, 450),    // row 3
	}
	ReadingOrder(rects)
	var got []int
	for _, r := range rects {
		got = append(got, r.Min.X)
	}
	if diff := cmp.Diff([]int{20, 200, 10, 300, 0}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestSuggestRegions(t *testing.T) {
	img := createTestImage(400, 400,
		image.Rect(220, 40, 360, 80),
		image.Rect(40, 45, 180, 85),
		image.Rect(40, 240, 360, 300),
	)
	d := NewContrastDetector()

	regions, err := SuggestRegions(d, img, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 3 {
		t.Fatalf("regions = %+v", regions)
	}
	if regions[0].X > regions[1].X || regions[2].Y < regions[1].Y {
		t.Errorf("not in reading order: %+v", regions)
	}
	for _, r := range regions {
		if !r.Valid() || r.X < 0 || r.Y < 0 || r.X+r.W > 1 || r.Y+r.H > 1 {
			t.Errorf("bad region %+v", r)
		}
	}

	capped, _ := SuggestRegions(d, img, 2)
	if diff := cmp.Diff(regions[:2], capped); diff != "" {
		t.Errorf("capped (-want +got):\n%s", diff)
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"", false}, // default
		{"none", false},
		{"ocr", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}
