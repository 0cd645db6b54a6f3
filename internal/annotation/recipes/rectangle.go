package recipes

import (
	"fmt"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
)

// Rectangle edits the track's bounds directly. It owns the default
// (empty) shape key: a finished rectangle replaces the feature's bounds
// rather than growing them.
type Rectangle struct {
	bus    *Bus
	active bool
}

// NewRectangle creates a rectangle recipe publishing on bus.
func NewRectangle(bus *Bus) *Rectangle {
	return &Rectangle{bus: bus}
}

func (r *Rectangle) Name() string { return "rectangle" }

func (r *Rectangle) Active() bool { return r.active }

func (r *Rectangle) Activate() {
	r.active = true
	if r.bus != nil {
		r.bus.Publish(Activation{Recipe: r, EditingType: "rectangle", SelectedKey: ""})
	}
}

func (r *Rectangle) Deactivate() { r.active = false }

// Update turns a drawn quad into a bounds replacement. In-progress
// events grow the bounds instead so the rectangle stays visible while
// dragging.
func (r *Rectangle) Update(event UpdateEvent, frame int, track *annotation.Track, shapes []annotation.Shape, key string) (Result, error) {
	if !r.active || key != "" {
		return Result{}, nil
	}
	if len(shapes) != 1 || shapes[0].Kind != annotation.ShapePolygon {
		return Result{}, nil
	}
	if len(shapes[0].Points) < 3 {
		return Result{}, fmt.Errorf("rectangle update needs at least 3 points, got %d", len(shapes[0].Points))
	}

	poly := annotation.Polygon(shapes[0].Points)
	res := Result{}
	if event == EventEditing {
		res.UnionWithoutBounds = []annotation.Polygon{poly}
		res.Done = true
	} else {
		res.Union = []annotation.Polygon{poly}
	}
	return res, nil
}

// DeletePoint is meaningless for a plain rectangle.
func (r *Rectangle) DeletePoint(frame int, track *annotation.Track, handle int, key, editingType string) (bool, error) {
	return false, nil
}

// Delete clears the bounds by deleting the whole feature at frame.
func (r *Rectangle) Delete(frame int, track *annotation.Track, key, editingType string) (bool, error) {
	if !r.active || key != "" || editingType != "rectangle" {
		return false, nil
	}
	// Only recorded frames can be deleted; interpolated features have no
	// stored counterpart.
	if _, interpolated, ok := track.GetFeature(frame); !ok || interpolated {
		return false, nil
	}
	track.DeleteFeature(frame)
	return true, nil
}
