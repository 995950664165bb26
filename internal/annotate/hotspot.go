package annotate

import (
	"image"
	"sync"

	"github.com/ivlev/shot2manual/internal/geometry"
	"github.com/ivlev/shot2manual/internal/store"
)

// Hotspot turns rectangular drags on a stage into numbered steps.
type Hotspot struct {
	mu       sync.Mutex
	store    *store.Store
	view     geometry.Box
	dragging bool
	stage    string
	anchor   geometry.Point
	cur      geometry.Point
}

func NewHotspot(st *store.Store) *Hotspot {
	return &Hotspot{store: st}
}

// SetView sets the display rectangle of the stage image.
func (h *Hotspot) SetView(box geometry.Box) {
	h.mu.Lock()
	h.view = box
	h.mu.Unlock()
}

// PointerDown anchors a drag on stageID. Presses outside the view are ignored.
func (h *Hotspot) PointerDown(stageID string, p geometry.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := h.view
	if v.Empty() || p.X < v.X || p.X > v.X+v.W || p.Y < v.Y || p.Y > v.Y+v.H {
		return
	}
	n := geometry.ToNormalized(p, v)
	h.dragging = true
	h.stage = stageID
	h.anchor, h.cur = n, n
}

// PointerMove updates the transient rectangle.
func (h *Hotspot) PointerMove(p geometry.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dragging {
		h.cur = geometry.ToNormalized(p, h.view)
	}
}

// Transient returns the rectangle being dragged, if any.
func (h *Hotspot) Transient() (geometry.Region, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dragging {
		return geometry.Region{}, false
	}
	return geometry.RegionFromDrag(h.anchor, h.cur), true
}

// PointerUp commits the drag. Regions below the minimum size are discarded
// and reported with ok == false.
func (h *Hotspot) PointerUp() (step store.WebStep, ok bool, err error) {
	h.mu.Lock()
	if !h.dragging {
		h.mu.Unlock()
		return store.WebStep{}, false, nil
	}
	region := geometry.RegionFromDrag(h.anchor, h.cur)
	stageID := h.stage
	h.dragging = false
	h.stage = ""
	h.mu.Unlock()

	return h.store.AddStep(stageID, region)
}

// PointerLeave behaves like PointerUp.
func (h *Hotspot) PointerLeave() (store.WebStep, bool, error) {
	return h.PointerUp()
}

func (h *Hotspot) Move(stageID, stepID string, dir store.Direction) error {
	return h.store.MoveStep(stageID, stepID, dir)
}

func (h *Hotspot) Delete(stageID, stepID string) error {
	return h.store.DeleteStep(stageID, stepID)
}

func (h *Hotspot) SetTitle(stageID, stepID, title string) error {
	return h.store.UpdateStepTitle(stageID, stepID, title)
}

func (h *Hotspot) SetDesc(stageID, stepID, desc string) error {
	return h.store.UpdateStepDesc(stageID, stepID, desc)
}

func (h *Hotspot) SetThumb(stageID, stepID string, thumb image.Image) error {
	return h.store.SetStepThumb(stageID, stepID, thumb)
}
