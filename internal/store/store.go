package store

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ivlev/shot2manual/internal/geometry"
)

// ErrNotFound is returned when an ID does not match any entity.
var ErrNotFound = errors.New("not found")

// Imported is an already decoded image handed over by the import boundary.
type Imported struct {
	Name  string
	Image image.Image
	NatW  int
	NatH  int
}

// Store is the single owner of all entities.
type Store struct {
	mu    sync.Mutex // Serializes mutators
	snap  atomic.Pointer[Snapshot]
	label string
	newID func() string
}

// New creates an empty store. stepLabel is the localized prefix of default
// step titles ("Bước", "Step", ...).
func New(stepLabel string) *Store {
	if stepLabel == "" {
		stepLabel = DefaultStepLabel
	}
	s := &Store{
		label: stepLabel,
		newID: func() string { return uuid.New().String() },
	}
	s.snap.Store(&Snapshot{Current: -1})
	return s
}

// Snapshot returns the current immutable state.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// StepLabel returns the prefix used for default step titles.
func (s *Store) StepLabel() string {
	return s.label
}

// update applies fn to a copy of the current snapshot and publishes it if fn
// succeeds.
func (s *Store) update(fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Load().copy()
	if err := fn(next); err != nil {
		return err
	}
	s.snap.Store(next)
	return nil
}

// ImportShots appends one shot per image in the given order. The whole batch
// is a single state transition. The first import selects the first shot.
func (s *Store) ImportShots(images []Imported) []Shot {
	added := make([]Shot, 0, len(images))
	for _, im := range images {
		added = append(added, Shot{ID: s.newID(), Name: im.Name, Src: im.Image})
	}
	if len(added) == 0 {
		return nil
	}
	_ = s.update(func(next *Snapshot) error {
		next.Shots = append(next.Shots, added...)
		if next.Current < 0 {
			next.Current = 0
		}
		return nil
	})
	return added
}

// Select makes the shot at index i current.
func (s *Store) Select(i int) error {
	return s.update(func(next *Snapshot) error {
		if i < 0 || i >= len(next.Shots) {
			return fmt.Errorf("select shot %d: %w", i, ErrNotFound)
		}
		next.Current = i
		return nil
	})
}

// UpdateDescription replaces the description of a shot.
func (s *Store) UpdateDescription(id, text string) error {
	return s.mutateShot(id, func(sh *Shot) error {
		sh.Description = text
		return nil
	})
}

// DeleteShot removes a shot and keeps the selection index in range.
func (s *Store) DeleteShot(id string) error {
	return s.update(func(next *Snapshot) error {
		_, idx, ok := next.Shot(id)
		if !ok {
			return fmt.Errorf("delete shot %s: %w", id, ErrNotFound)
		}
		next.Shots = append(next.Shots[:idx:idx], next.Shots[idx+1:]...)
		next.Current = selectionAfterDelete(next.Current, idx, len(next.Shots))
		return nil
	})
}

func selectionAfterDelete(current, deleted, remaining int) int {
	if remaining == 0 {
		return -1
	}
	if deleted <= current {
		current--
		if current < 0 {
			current = 0
		}
	}
	if current >= remaining {
		current = remaining - 1
	}
	return current
}

// ResetShot drops the baked image and pending shapes. It is idempotent.
func (s *Store) ResetShot(id string) error {
	return s.mutateShot(id, func(sh *Shot) error {
		sh.Annotated = nil
		sh.Shapes = nil
		return nil
	})
}

// AppendShape adds a shape on top of the shot's pending shapes.
func (s *Store) AppendShape(id string, shape geometry.Shape) error {
	return s.mutateShot(id, func(sh *Shot) error {
		sh.Shapes = append(sh.Shapes, shape)
		return nil
	})
}

// UpdateLastShape moves the end point of the most recent shape. It is a no-op
// when the shot has no shapes.
func (s *Store) UpdateLastShape(id string, end geometry.Point) error {
	return s.mutateShot(id, func(sh *Shot) error {
		if len(sh.Shapes) == 0 {
			return nil
		}
		last := len(sh.Shapes) - 1
		sh.Shapes[last] = sh.Shapes[last].WithEnd(end)
		return nil
	})
}

// SetBaked stores a flattened image and clears the shapes that were burned
// into it. Only the first n shapes are removed, so a shape appended while the
// bake was running survives.
func (s *Store) SetBaked(id string, img image.Image, n int) error {
	return s.mutateShot(id, func(sh *Shot) error {
		if n > len(sh.Shapes) {
			n = len(sh.Shapes)
		}
		sh.Annotated = img
		sh.Shapes = sh.Shapes[n:]
		if len(sh.Shapes) == 0 {
			sh.Shapes = nil
		}
		return nil
	})
}

func (s *Store) mutateShot(id string, fn func(sh *Shot) error) error {
	return s.update(func(next *Snapshot) error {
		sh, idx, ok := next.Shot(id)
		if !ok {
			return fmt.Errorf("shot %s: %w", id, ErrNotFound)
		}
		sh = sh.clone()
		if err := fn(&sh); err != nil {
			return err
		}
		next.Shots[idx] = sh
		return nil
	})
}
