package store

import (
	"fmt"
	"image"
	"regexp"
	"strconv"

	"github.com/ivlev/shot2manual/internal/geometry"
)

// DefaultStepLabel is the prefix of generated step titles.
const DefaultStepLabel = "Bước"

// Direction of a step move.
type Direction int

const (
	Up Direction = iota
	Down
)

// ImportStages appends one stage per image. NatW/NatH are taken from the
// import boundary and never recomputed. The first import selects the first
// stage.
func (s *Store) ImportStages(images []Imported) []Stage {
	added := make([]Stage, 0, len(images))
	for _, im := range images {
		w, h := im.NatW, im.NatH
		if (w == 0 || h == 0) && im.Image != nil {
			w, h = im.Image.Bounds().Dx(), im.Image.Bounds().Dy()
		}
		added = append(added, Stage{ID: s.newID(), Name: im.Name, Image: im.Image, NatW: w, NatH: h})
	}
	if len(added) == 0 {
		return nil
	}
	_ = s.update(func(next *Snapshot) error {
		next.Stages = append(next.Stages, added...)
		if next.CurrentStage == "" {
			next.CurrentStage = added[0].ID
		}
		return nil
	})
	return added
}

// SelectStage makes the stage with the given ID current.
func (s *Store) SelectStage(id string) error {
	return s.update(func(next *Snapshot) error {
		if _, _, ok := next.Stage(id); !ok {
			return fmt.Errorf("select stage %s: %w", id, ErrNotFound)
		}
		next.CurrentStage = id
		return nil
	})
}

// RemoveStage deletes a stage. If it was current, the first remaining stage
// becomes current.
func (s *Store) RemoveStage(id string) error {
	return s.update(func(next *Snapshot) error {
		_, idx, ok := next.Stage(id)
		if !ok {
			return fmt.Errorf("remove stage %s: %w", id, ErrNotFound)
		}
		next.Stages = append(next.Stages[:idx:idx], next.Stages[idx+1:]...)
		if next.CurrentStage == id {
			next.CurrentStage = ""
			if len(next.Stages) > 0 {
				next.CurrentStage = next.Stages[0].ID
			}
		}
		return nil
	})
}

// AddStep appends a step for region on a stage. Regions below
// geometry.MinRegionSize are ignored and reported with ok == false.
func (s *Store) AddStep(stageID string, region geometry.Region) (step WebStep, ok bool, err error) {
	if !region.Valid() {
		return WebStep{}, false, nil
	}
	err = s.mutateStage(stageID, func(st *Stage) error {
		idx := len(st.Steps) + 1
		step = WebStep{
			ID:     s.newID(),
			Index:  idx,
			Region: region,
			Title:  s.defaultTitle(idx),
		}
		st.Steps = append(st.Steps, step)
		return nil
	})
	if err != nil {
		return WebStep{}, false, err
	}
	return step, true, nil
}

// MoveStep swaps a step with its neighbour. Moving the first step up or the
// last step down is a no-op.
func (s *Store) MoveStep(stageID, stepID string, dir Direction) error {
	return s.mutateStage(stageID, func(st *Stage) error {
		idx := stepIndex(st.Steps, stepID)
		if idx < 0 {
			return fmt.Errorf("move step %s: %w", stepID, ErrNotFound)
		}
		to := idx - 1
		if dir == Down {
			to = idx + 1
		}
		if to < 0 || to >= len(st.Steps) {
			return nil
		}
		st.Steps[idx], st.Steps[to] = st.Steps[to], st.Steps[idx]
		s.renumber(st.Steps)
		return nil
	})
}

// DeleteStep removes a step and renumbers the rest.
func (s *Store) DeleteStep(stageID, stepID string) error {
	return s.mutateStage(stageID, func(st *Stage) error {
		idx := stepIndex(st.Steps, stepID)
		if idx < 0 {
			return fmt.Errorf("delete step %s: %w", stepID, ErrNotFound)
		}
		st.Steps = append(st.Steps[:idx:idx], st.Steps[idx+1:]...)
		s.renumber(st.Steps)
		return nil
	})
}

// UpdateStepTitle sets a user supplied title. From then on renumbering only
// touches a leading "{label} N" prefix of it.
func (s *Store) UpdateStepTitle(stageID, stepID, title string) error {
	return s.mutateStep(stageID, stepID, func(st *WebStep) {
		st.Title = title
		st.TitleCustom = true
	})
}

// UpdateStepDesc sets the description of a step.
func (s *Store) UpdateStepDesc(stageID, stepID, desc string) error {
	return s.mutateStep(stageID, stepID, func(st *WebStep) {
		st.Desc = desc
	})
}

// SetStepThumb attaches a thumbnail image to a step; nil removes it.
func (s *Store) SetStepThumb(stageID, stepID string, thumb image.Image) error {
	return s.mutateStep(stageID, stepID, func(st *WebStep) {
		st.Thumb = thumb
	})
}

func (s *Store) mutateStep(stageID, stepID string, fn func(st *WebStep)) error {
	return s.mutateStage(stageID, func(st *Stage) error {
		idx := stepIndex(st.Steps, stepID)
		if idx < 0 {
			return fmt.Errorf("step %s: %w", stepID, ErrNotFound)
		}
		fn(&st.Steps[idx])
		return nil
	})
}

func (s *Store) mutateStage(id string, fn func(st *Stage) error) error {
	return s.update(func(next *Snapshot) error {
		st, idx, ok := next.Stage(id)
		if !ok {
			return fmt.Errorf("stage %s: %w", id, ErrNotFound)
		}
		st = st.clone()
		if err := fn(&st); err != nil {
			return err
		}
		next.Stages[idx] = st
		return nil
	})
}

func stepIndex(steps []WebStep, id string) int {
	for i, st := range steps {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) defaultTitle(index int) string {
	return s.label + " " + strconv.Itoa(index)
}

// renumber assigns indices 1..N in list order and resyncs titles.
func (s *Store) renumber(steps []WebStep) {
	prefix := regexp.MustCompile(`^` + regexp.QuoteMeta(s.label) + `\s+\d+`)
	for i := range steps {
		idx := i + 1
		steps[i].Index = idx
		if !steps[i].TitleCustom {
			steps[i].Title = s.defaultTitle(idx)
			continue
		}
		steps[i].Title = prefix.ReplaceAllLiteralString(steps[i].Title, s.defaultTitle(idx))
	}
}
