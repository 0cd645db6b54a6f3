package recipes

import (
	"testing"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	"gonum.org/v1/gonum/spatial/r2"
)

func quad(x, y, w, h float64) annotation.Shape {
	return annotation.Shape{
		Kind: annotation.ShapePolygon,
		Points: []r2.Vec{
			{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
		},
	}
}

func TestBusScopedSubscription(t *testing.T) {
	bus := NewBus()
	var got []Activation
	unsub := bus.Subscribe(func(a Activation) { got = append(got, a) })

	rect := NewRectangle(bus)
	rect.Activate()
	if len(got) != 1 || got[0].EditingType != "rectangle" {
		t.Fatalf("activation events = %+v, want one rectangle activation", got)
	}

	unsub()
	rect.Activate()
	if len(got) != 1 {
		t.Errorf("listener fired after unsubscribe")
	}
}

func TestRectangleUpdate(t *testing.T) {
	rect := NewRectangle(NewBus())
	track := annotation.NewTrack(1, 0, "vehicle")

	// Inactive recipes contribute nothing.
	res, err := rect.Update(EventEditing, 0, track, []annotation.Shape{quad(0, 0, 10, 10)}, "")
	if err != nil || !res.Empty() {
		t.Fatalf("inactive recipe contributed: %+v err=%v", res, err)
	}

	rect.Activate()
	res, err = rect.Update(EventEditing, 0, track, []annotation.Shape{quad(0, 0, 10, 10)}, "")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(res.UnionWithoutBounds) != 1 || !res.Done {
		t.Errorf("editing event should replace bounds and complete, got %+v", res)
	}

	res, err = rect.Update(EventInProgress, 0, track, []annotation.Shape{quad(0, 0, 10, 10)}, "")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(res.Union) != 1 || res.Done {
		t.Errorf("in-progress event should grow bounds and stay open, got %+v", res)
	}

	// Degenerate shape is an error, not a silent no-op.
	bad := annotation.Shape{Kind: annotation.ShapePolygon, Points: []r2.Vec{{X: 0, Y: 0}}}
	if _, err := rect.Update(EventEditing, 0, track, []annotation.Shape{bad}, ""); err == nil {
		t.Error("degenerate polygon should fail")
	}
}

func TestPolygonUpdateAndDeletePoint(t *testing.T) {
	poly := NewPolygon(NewBus())
	poly.Activate()
	track := annotation.NewTrack(1, 0, "vehicle")

	shape := annotation.Shape{
		Kind:   annotation.ShapePolygon,
		Points: []r2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
	}
	res, err := poly.Update(EventEditing, 0, track, []annotation.Shape{shape}, "")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(res.Data[""]) != 1 {
		t.Fatalf("polygon should own the default key, got %+v", res.Data)
	}
	if len(res.UnionWithoutBounds) != 1 || !res.Done {
		t.Errorf("finished polygon should replace bounds, got %+v", res)
	}

	// Apply the shape, then delete one vertex.
	track.SetFeature(annotation.Feature{Frame: 0, Keyframe: true}, res.Data[""]...)
	changed, err := poly.DeletePoint(0, track, 1, "", "polygon")
	if err != nil || !changed {
		t.Fatalf("DeletePoint = (%v, %v), want change", changed, err)
	}
	f, _, _ := track.GetFeature(0)
	if got := len(f.ShapesForKey("")[0].Points); got != 3 {
		t.Errorf("polygon has %d points after vertex delete, want 3", got)
	}

	// Deleting below 3 vertices removes the shape entirely.
	if _, err := poly.DeletePoint(0, track, 0, "", "polygon"); err != nil {
		t.Fatalf("DeletePoint failed: %v", err)
	}
	f, _, _ = track.GetFeature(0)
	if len(f.ShapesForKey("")) != 0 {
		t.Errorf("collapsed polygon should have been removed")
	}

	// Out-of-range handle is an error.
	track.SetFeature(annotation.Feature{Frame: 0, Keyframe: true}, shape)
	if _, err := poly.DeletePoint(0, track, 99, "", "polygon"); err == nil {
		t.Error("out-of-range handle should fail")
	}
}

func TestLineRecipeFlow(t *testing.T) {
	line := NewLine(NewBus())
	line.Activate()
	track := annotation.NewTrack(1, 0, "fish")

	// First point from the default layer claims the selected key.
	first := annotation.Shape{Kind: annotation.ShapeLine, Points: []r2.Vec{{X: 3, Y: 4}}}
	res, err := line.Update(EventInProgress, 0, track, []annotation.Shape{first}, "")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if res.NewSelectedKey == nil || *res.NewSelectedKey != LineKey {
		t.Fatalf("first point should claim selected key, got %+v", res.NewSelectedKey)
	}
	if res.Done {
		t.Error("one-point line must not complete")
	}

	// Second point completes and pads bounds around both endpoints.
	both := annotation.Shape{Kind: annotation.ShapeLine, Points: []r2.Vec{{X: 3, Y: 4}, {X: 30, Y: 40}}}
	res, err = line.Update(EventEditing, 0, track, []annotation.Shape{both}, LineKey)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !res.Done || len(res.Union) != 2 {
		t.Fatalf("completed line should pad both endpoints, got %+v", res)
	}
	if res.NewSelectedKey != nil {
		t.Error("update on the line layer itself must not re-claim the key")
	}
	bounds := annotation.BoundsOfPolygons(res.Union)
	if bounds == nil || !bounds.Contains(r2.Vec{X: 3, Y: 4}) || !bounds.Contains(r2.Vec{X: 30, Y: 40}) {
		t.Errorf("padded bounds %+v should contain both endpoints", bounds)
	}

	// Delete the whole shape.
	track.SetFeature(annotation.Feature{Frame: 0, Keyframe: true}, res.Data[LineKey]...)
	changed, err := line.Delete(0, track, LineKey, "line")
	if err != nil || !changed {
		t.Fatalf("Delete = (%v, %v), want change", changed, err)
	}
	f, _, _ := track.GetFeature(0)
	if len(f.ShapesForKey(LineKey)) != 0 {
		t.Error("line shape should be gone after Delete")
	}
}
