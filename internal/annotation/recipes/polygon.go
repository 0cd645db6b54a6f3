package recipes

import (
	"fmt"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
)

// PolygonRecipe edits a free-form polygon under the default key. While
// the user is drawing, the polygon grows the feature bounds; a finished
// polygon replaces them, so tightening a loose box is possible.
type PolygonRecipe struct {
	bus    *Bus
	active bool
}

// NewPolygon creates a polygon recipe publishing on bus.
func NewPolygon(bus *Bus) *PolygonRecipe {
	return &PolygonRecipe{bus: bus}
}

func (p *PolygonRecipe) Name() string { return "polygon" }

func (p *PolygonRecipe) Active() bool { return p.active }

func (p *PolygonRecipe) Activate() {
	p.active = true
	if p.bus != nil {
		p.bus.Publish(Activation{Recipe: p, EditingType: "polygon", SelectedKey: ""})
	}
}

func (p *PolygonRecipe) Deactivate() { p.active = false }

func (p *PolygonRecipe) Update(event UpdateEvent, frame int, track *annotation.Track, shapes []annotation.Shape, key string) (Result, error) {
	if !p.active || key != "" {
		return Result{}, nil
	}
	if len(shapes) != 1 || shapes[0].Kind != annotation.ShapePolygon {
		return Result{}, nil
	}
	pts := shapes[0].Points
	if len(pts) < 3 {
		return Result{}, fmt.Errorf("polygon update needs at least 3 points, got %d", len(pts))
	}

	shape := shapes[0].Clone()
	shape.Key = ""
	poly := annotation.Polygon(pts)

	res := Result{Data: map[string][]annotation.Shape{"": {shape}}}
	if event == EventEditing {
		res.UnionWithoutBounds = []annotation.Polygon{poly}
		res.Done = true
	} else {
		res.Union = []annotation.Polygon{poly}
	}
	return res, nil
}

// DeletePoint removes one vertex. A polygon below 3 vertices collapses,
// so the whole shape is removed instead.
func (p *PolygonRecipe) DeletePoint(frame int, track *annotation.Track, handle int, key, editingType string) (bool, error) {
	if !p.active || key != "" || editingType != "polygon" {
		return false, nil
	}
	f, interpolated, ok := track.GetFeature(frame)
	if !ok || interpolated {
		return false, nil
	}
	shapes := f.ShapesForKey("")
	if len(shapes) == 0 || shapes[0].Kind != annotation.ShapePolygon {
		return false, nil
	}
	pts := shapes[0].Points
	if handle < 0 || handle >= len(pts) {
		return false, fmt.Errorf("polygon handle %d out of range [0,%d)", handle, len(pts))
	}
	if len(pts)-1 < 3 {
		track.RemoveShapes(frame, "")
		return true, nil
	}
	shape := shapes[0].Clone()
	shape.Points = append(shape.Points[:handle], shape.Points[handle+1:]...)
	track.SetFeature(annotation.Feature{Frame: frame, Keyframe: f.Keyframe, Interpolate: f.Interpolate}, shape)
	return true, nil
}

// Delete removes the polygon shape, leaving the bounds in place.
func (p *PolygonRecipe) Delete(frame int, track *annotation.Track, key, editingType string) (bool, error) {
	if !p.active || key != "" || editingType != "polygon" {
		return false, nil
	}
	return track.RemoveShapes(frame, ""), nil
}
