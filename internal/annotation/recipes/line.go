package recipes

import (
	"fmt"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	"gonum.org/v1/gonum/spatial/r2"
)

// LineKey is the shape key the line recipe owns.
const LineKey = "line"

// linePadding is the half-size of the square grown around each endpoint
// so a bare line still contributes visible bounds.
const linePadding = 5.0

// LineRecipe edits a two-point direction line (for example head/tail of
// an animal) under its own key. Placing the first point switches the
// selected key to the line layer; the second point completes the edit.
type LineRecipe struct {
	bus    *Bus
	active bool
}

// NewLine creates a line recipe publishing on bus.
func NewLine(bus *Bus) *LineRecipe {
	return &LineRecipe{bus: bus}
}

func (l *LineRecipe) Name() string { return "line" }

func (l *LineRecipe) Active() bool { return l.active }

func (l *LineRecipe) Activate() {
	l.active = true
	if l.bus != nil {
		l.bus.Publish(Activation{Recipe: l, EditingType: "line", SelectedKey: LineKey})
	}
}

func (l *LineRecipe) Deactivate() { l.active = false }

func (l *LineRecipe) Update(event UpdateEvent, frame int, track *annotation.Track, shapes []annotation.Shape, key string) (Result, error) {
	if !l.active {
		return Result{}, nil
	}
	if key != "" && key != LineKey {
		return Result{}, nil
	}
	if len(shapes) != 1 || shapes[0].Kind != annotation.ShapeLine {
		return Result{}, nil
	}
	pts := shapes[0].Points
	if len(pts) == 0 || len(pts) > 2 {
		return Result{}, fmt.Errorf("line update needs 1 or 2 points, got %d", len(pts))
	}

	shape := shapes[0].Clone()
	shape.Key = LineKey
	res := Result{Data: map[string][]annotation.Shape{LineKey: {shape}}}

	// First point placed from the default layer: claim the selected key
	// so subsequent events route to the line layer.
	if key == "" {
		selected := LineKey
		res.NewSelectedKey = &selected
	}

	if len(pts) == 2 && event == EventEditing {
		res.Union = []annotation.Polygon{padSquare(pts[0]), padSquare(pts[1])}
		res.Done = true
	}
	return res, nil
}

// padSquare returns a small square polygon centred on p.
func padSquare(p r2.Vec) annotation.Polygon {
	return annotation.Polygon{
		{X: p.X - linePadding, Y: p.Y - linePadding},
		{X: p.X + linePadding, Y: p.Y - linePadding},
		{X: p.X + linePadding, Y: p.Y + linePadding},
		{X: p.X - linePadding, Y: p.Y + linePadding},
	}
}

// DeletePoint removes one endpoint; a one-point line is not meaningful,
// so the remaining point survives as the new first point only when two
// points existed.
func (l *LineRecipe) DeletePoint(frame int, track *annotation.Track, handle int, key, editingType string) (bool, error) {
	if !l.active || key != LineKey || editingType != "line" {
		return false, nil
	}
	f, interpolated, ok := track.GetFeature(frame)
	if !ok || interpolated {
		return false, nil
	}
	shapes := f.ShapesForKey(LineKey)
	if len(shapes) == 0 {
		return false, nil
	}
	pts := shapes[0].Points
	if handle < 0 || handle >= len(pts) {
		return false, fmt.Errorf("line handle %d out of range [0,%d)", handle, len(pts))
	}
	if len(pts) <= 1 {
		track.RemoveShapes(frame, LineKey)
		return true, nil
	}
	shape := shapes[0].Clone()
	shape.Points = append(shape.Points[:handle], shape.Points[handle+1:]...)
	track.SetFeature(annotation.Feature{Frame: frame, Keyframe: f.Keyframe, Interpolate: f.Interpolate}, shape)
	return true, nil
}

// Delete removes the whole line shape.
func (l *LineRecipe) Delete(frame int, track *annotation.Track, key, editingType string) (bool, error) {
	if !l.active || key != LineKey || editingType != "line" {
		return false, nil
	}
	return track.RemoveShapes(frame, LineKey), nil
}
