package annotate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/store"
)

// ErrStrokeActive is returned by PointerDown while a stroke is being drawn.
var ErrStrokeActive = errors.New("stroke already active")

// State of a freehand annotator.
type State int

const (
	Idle State = iota
	Drawing
	Baking
)

func (s State) String() string {
	switch s {
	case Drawing:
		return "drawing"
	case Baking:
		return "baking"
	default:
		return "idle"
	}
}

// Freehand turns pointer gestures on a displayed shot into shapes and bakes
// them when the gesture ends.
//
// Pointer positions are in display pixels; view is the rectangle the shot is
// currently drawn into.
type Freehand struct {
	mu    sync.Mutex
	store *store.Store
	baker *Baker
	view  geometry.Box
	tool  geometry.ShapeType
	color string
	state State
	shot  string
	newID func() string
}

// DefaultStrokeColor is the colour of new strokes until SetColor is called.
const DefaultStrokeColor = "#ef4444"

func NewFreehand(st *store.Store, baker *Baker) *Freehand {
	return &Freehand{
		store: st,
		baker: baker,
		tool:  geometry.ShapeRect,
		color: DefaultStrokeColor,
		newID: func() string { return uuid.New().String() },
	}
}

// SetView sets the display rectangle of the shot.
func (f *Freehand) SetView(box geometry.Box) {
	f.mu.Lock()
	f.view = box
	f.mu.Unlock()
}

// SetTool selects the shape created by the next stroke.
func (f *Freehand) SetTool(t geometry.ShapeType) {
	f.mu.Lock()
	f.tool = t
	f.mu.Unlock()
}

// SetColor selects the colour of the next stroke.
func (f *Freehand) SetColor(c string) {
	f.mu.Lock()
	f.color = c
	f.mu.Unlock()
}

// State returns the current state.
func (f *Freehand) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Freehand) inside(p geometry.Point) bool {
	v := f.view
	return !v.Empty() && p.X >= v.X && p.X <= v.X+v.W && p.Y >= v.Y && p.Y <= v.Y+v.H
}

// PointerDown starts a stroke on shotID. A press outside the view is ignored.
func (f *Freehand) PointerDown(shotID string, p geometry.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.state == Baking || f.baker.InFlight(shotID):
		return ErrBakeInFlight
	case f.state == Drawing:
		return ErrStrokeActive
	}
	if !f.inside(p) {
		return nil
	}
	shape := geometry.NewShape(f.newID(), f.tool, f.color, geometry.ToNormalized(p, f.view))
	if err := f.store.AppendShape(shotID, shape); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("pointer down on %s: %w", shotID, ErrNoShot)
		}
		return err
	}
	f.state = Drawing
	f.shot = shotID
	return nil
}

// PointerMove updates the end point of the active stroke. Positions outside
// the view are clamped to its edge.
func (f *Freehand) PointerMove(p geometry.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Drawing {
		return nil
	}
	return f.store.UpdateLastShape(f.shot, geometry.ToNormalized(p, f.view))
}

// PointerUp ends the stroke and bakes the shot. It returns the new annotated
// image, or nil if no stroke was active.
func (f *Freehand) PointerUp(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	if f.state != Drawing {
		f.mu.Unlock()
		return nil, nil
	}
	f.state = Baking
	shotID := f.shot
	f.mu.Unlock()

	img, err := f.baker.Bake(ctx, shotID)

	f.mu.Lock()
	f.state = Idle
	f.shot = ""
	f.mu.Unlock()
	return img, err
}

// PointerLeave behaves like PointerUp.
func (f *Freehand) PointerLeave(ctx context.Context) (image.Image, error) {
	return f.PointerUp(ctx)
}

// Reset discards the baked image and pending shapes of a shot.
func (f *Freehand) Reset(shotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baker.InFlight(shotID) || (f.state != Idle && f.shot == shotID) {
		return ErrBakeInFlight
	}
	if err := f.store.ResetShot(shotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reset %s: %w", shotID, ErrNoShot)
		}
		return err
	}
	return nil
}
