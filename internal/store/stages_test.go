package store

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/shot2manual/internal/geometry"
)

type indexed struct {
	Index int
	Title string
}

func stepsOf(t *testing.T, s *Store, stageID string) []indexed {
	t.Helper()
	st, _, ok := s.Snapshot().Stage(stageID)
	if !ok {
		t.Fatalf("stage %s missing", stageID)
	}
	var out []indexed
	for _, step := range st.Steps {
		out = append(out, indexed{step.Index, step.Title})
	}
	return out
}

var validRegion = geometry.Region{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}

func TestImportStagesCapturesNaturalSize(t *testing.T) {
	s := newTestStore()
	imgs := images(2)
	imgs[1].NatW, imgs[1].NatH = 0, 0 // falls back to the decoded bounds
	stages := s.ImportStages(imgs)

	if stages[0].NatW != 40 || stages[0].NatH != 20 {
		t.Errorf("stage 0 size %dx%d", stages[0].NatW, stages[0].NatH)
	}
	if stages[1].NatW != 40 || stages[1].NatH != 20 {
		t.Errorf("stage 1 size %dx%d", stages[1].NatW, stages[1].NatH)
	}
	if s.Snapshot().CurrentStage != stages[0].ID {
		t.Error("first imported stage should be current")
	}
}

func TestAddStepRejectsTinyRegion(t *testing.T) {
	s := newTestStore()
	stage := s.ImportStages(images(1))[0]

	tiny := geometry.RegionFromDrag(geometry.Point{X: 0.5, Y: 0.5}, geometry.Point{X: 0.505, Y: 0.503})
	if _, ok, err := s.AddStep(stage.ID, tiny); ok || err != nil {
		t.Fatalf("tiny region accepted: ok=%v err=%v", ok, err)
	}

	good := geometry.RegionFromDrag(geometry.Point{X: 0.5, Y: 0.5}, geometry.Point{X: 0.52, Y: 0.52})
	step, ok, err := s.AddStep(stage.ID, good)
	if !ok || err != nil {
		t.Fatalf("valid region rejected: ok=%v err=%v", ok, err)
	}
	if step.Index != 1 || step.Title != "Bước 1" || step.Desc != "" || step.Thumb != nil {
		t.Errorf("unexpected step %+v", step)
	}
}

func TestDeleteStepRenumbers(t *testing.T) {
	s := newTestStore()
	stage := s.ImportStages(images(1))[0]
	var ids []string
	for i := 0; i < 3; i++ {
		step, _, err := s.AddStep(stage.ID, validRegion)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, step.ID)
	}
	if err := s.UpdateStepTitle(stage.ID, ids[2], "Custom"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteStep(stage.ID, ids[0]); err != nil {
		t.Fatal(err)
	}

	want := []indexed{{1, "Bước 1"}, {2, "Custom"}}
	if diff := cmp.Diff(want, stepsOf(t, s, stage.ID)); diff != "" {
		t.Errorf("steps after delete (-want +got):\n%s", diff)
	}
}

func TestCustomTitlePrefixResync(t *testing.T) {
	s := newTestStore()
	stage := s.ImportStages(images(1))[0]
	a, _, _ := s.AddStep(stage.ID, validRegion)
	b, _, _ := s.AddStep(stage.ID, validRegion)
	_ = s.UpdateStepTitle(stage.ID, b.ID, "Bước 2: Đăng nhập")

	if err := s.MoveStep(stage.ID, b.ID, Up); err != nil {
		t.Fatal(err)
	}
	want := []indexed{{1, "Bước 1: Đăng nhập"}, {2, "Bước 2"}}
	if diff := cmp.Diff(want, stepsOf(t, s, stage.ID)); diff != "" {
		t.Errorf("steps after move (-want +got):\n%s", diff)
	}
	_ = a
}

func TestMoveStepClampedAtEnds(t *testing.T) {
	s := newTestStore()
	stage := s.ImportStages(images(1))[0]
	first, _, _ := s.AddStep(stage.ID, validRegion)
	last, _, _ := s.AddStep(stage.ID, validRegion)

	before := stepsOf(t, s, stage.ID)
	_ = s.MoveStep(stage.ID, first.ID, Up)
	_ = s.MoveStep(stage.ID, last.ID, Down)
	if diff := cmp.Diff(before, stepsOf(t, s, stage.ID)); diff != "" {
		t.Errorf("edge moves changed steps:\n%s", diff)
	}

	if err := s.MoveStep(stage.ID, "nope", Up); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenumberingDensity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	s := newTestStore()
	stage := s.ImportStages(images(1))[0]

	for op := 0; op < 500; op++ {
		st, _, _ := s.Snapshot().Stage(stage.ID)
		switch k := r.Intn(4); {
		case k == 0 || len(st.Steps) == 0:
			if _, _, err := s.AddStep(stage.ID, validRegion); err != nil {
				t.Fatal(err)
			}
		case k == 1:
			_ = s.DeleteStep(stage.ID, st.Steps[r.Intn(len(st.Steps))].ID)
		case k == 2:
			_ = s.MoveStep(stage.ID, st.Steps[r.Intn(len(st.Steps))].ID, Up)
		default:
			_ = s.MoveStep(stage.ID, st.Steps[r.Intn(len(st.Steps))].ID, Down)
		}

		st, _, _ = s.Snapshot().Stage(stage.ID)
		for i, step := range st.Steps {
			if step.Index != i+1 {
				t.Fatalf("op %d: step at position %d has index %d", op, i, step.Index)
			}
			if !step.TitleCustom && step.Title != s.defaultTitle(i+1) {
				t.Fatalf("op %d: default title %q out of sync with index %d", op, step.Title, step.Index)
			}
		}
	}
}

func TestRemoveStageMovesCurrent(t *testing.T) {
	s := newTestStore()
	stages := s.ImportStages(images(3))
	_ = s.SelectStage(stages[1].ID)

	if err := s.RemoveStage(stages[0].ID); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().CurrentStage != stages[1].ID {
		t.Error("removing another stage must keep the current one")
	}
	if err := s.RemoveStage(stages[1].ID); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().CurrentStage != stages[2].ID {
		t.Errorf("current = %s, want %s", s.Snapshot().CurrentStage, stages[2].ID)
	}
	_ = s.RemoveStage(stages[2].ID)
	if s.Snapshot().CurrentStage != "" {
		t.Error("no stage should be current")
	}
}

func TestLocalizedLabel(t *testing.T) {
	s := New("Step")
	stage := s.ImportStages(images(1))[0]
	step, _, _ := s.AddStep(stage.ID, validRegion)
	if step.Title != "Step 1" {
		t.Errorf("title = %q", step.Title)
	}
}
