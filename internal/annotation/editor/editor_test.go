package editor

import (
	"errors"
	"testing"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	"github.com/kestrel-vision/trackstudio/internal/annotation/recipes"
	"github.com/kestrel-vision/trackstudio/internal/config"
	"gonum.org/v1/gonum/spatial/r2"
)

type fakePlayback struct {
	frame int
}

func (p *fakePlayback) CurrentFrame() int { return p.frame }
func (p *fakePlayback) Seek(frame int)    { p.frame = frame }
func (p *fakePlayback) NextFrame()        { p.frame++ }

type fakePrompter struct {
	answer bool
	calls  []PromptOptions
}

func (p *fakePrompter) Confirm(opts PromptOptions) bool {
	p.calls = append(p.calls, opts)
	return p.answer
}

func rect(x, y, w, h float64) annotation.Rect {
	return annotation.Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

func quadShape(x, y, w, h float64) annotation.Shape {
	return annotation.Shape{Kind: annotation.ShapePolygon, Points: []r2.Vec{
		{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
	}}
}

func newTestEditor(t *testing.T, settings *config.SessionConfig, rs ...recipes.Recipe) (*Editor, *annotation.Store, *fakePlayback, *fakePrompter) {
	t.Helper()
	store := annotation.NewStore("main", "aux")
	playback := &fakePlayback{}
	prompter := &fakePrompter{answer: true}
	e := New(store, settings, playback, prompter, nil, "main", rs...)
	t.Cleanup(e.Close)
	return e, store, playback, prompter
}

func TestStateProgression(t *testing.T) {
	e, store, playback, _ := newTestEditor(t, config.DefaultSessionConfig())

	if got := e.State(); got != StateDisabled {
		t.Fatalf("state with no selection = %v, want disabled", got)
	}

	track, err := e.AddTrackOrDetection(nil)
	if err != nil {
		t.Fatalf("AddTrackOrDetection: %v", err)
	}
	if got := e.State(); got != StateCreating {
		t.Fatalf("state with selected empty track = %v, want creating", got)
	}

	if err := e.UpdateRectBounds(playback.CurrentFrame(), rect(0, 0, 10, 10)); err != nil {
		t.Fatalf("UpdateRectBounds: %v", err)
	}
	// Track mode with auto-advance moved playback past the keyframe.
	playback.Seek(0)
	if got := e.State(); got != StateEditing {
		t.Fatalf("state with bounds at current frame = %v, want editing", got)
	}

	stored, err := store.GetTrack(track.ID, "main")
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	f, _, ok := stored.GetFeature(0)
	if !ok || f.Bounds == nil {
		t.Fatal("expected stored bounds at frame 0")
	}
}

func TestTrackModeAutoAdvance(t *testing.T) {
	e, _, playback, _ := newTestEditor(t, config.DefaultSessionConfig())

	if _, err := e.AddTrackOrDetection(nil); err != nil {
		t.Fatalf("AddTrackOrDetection: %v", err)
	}
	if err := e.UpdateRectBounds(0, rect(0, 0, 5, 5)); err != nil {
		t.Fatalf("UpdateRectBounds: %v", err)
	}
	if playback.CurrentFrame() != 1 {
		t.Fatalf("frame after first keyframe = %d, want 1", playback.CurrentFrame())
	}
	// Still creating: the next keyframe advances again.
	if err := e.UpdateRectBounds(1, rect(1, 1, 5, 5)); err != nil {
		t.Fatalf("UpdateRectBounds: %v", err)
	}
	if playback.CurrentFrame() != 2 {
		t.Fatalf("frame after second keyframe = %d, want 2", playback.CurrentFrame())
	}
}

func TestDetectionContinuousCreate(t *testing.T) {
	settings := config.DefaultSessionConfig()
	settings.NewTrackMode = ptr(config.ModeDetection)
	settings.ContinuousCreate = ptr(true)
	e, store, playback, _ := newTestEditor(t, settings)

	first, err := e.AddTrackOrDetection(nil)
	if err != nil {
		t.Fatalf("AddTrackOrDetection: %v", err)
	}
	if err := e.UpdateRectBounds(0, rect(0, 0, 5, 5)); err != nil {
		t.Fatalf("UpdateRectBounds: %v", err)
	}
	if playback.CurrentFrame() != 0 {
		t.Fatalf("detection mode advanced playback to %d", playback.CurrentFrame())
	}
	sel, ok := e.Selection()
	if !ok {
		t.Fatal("no selection after continuous create")
	}
	if sel == first.ID {
		t.Fatal("continuous create kept the finished detection selected")
	}
	if store.TrackCount("main") != 2 {
		t.Fatalf("track count = %d, want 2", store.TrackCount("main"))
	}

	// The detection keyframe never interpolates.
	stored, err := store.GetTrack(first.ID, "main")
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	f, _, _ := stored.GetFeature(0)
	if f.Interpolate {
		t.Fatal("detection keyframe marked interpolating")
	}
}

func TestDeselectingEmptyTrackRemovesIt(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	track, err := e.AddTrackOrDetection(nil)
	if err != nil {
		t.Fatalf("AddTrackOrDetection: %v", err)
	}
	if err := e.SelectTrack(nil, false); err != nil {
		t.Fatalf("SelectTrack(nil): %v", err)
	}
	if store.GetPossibleTrack(track.ID, "main") != nil {
		t.Fatal("empty track survived deselection")
	}
}

func TestEscapeClearsOverlaysAndEmptySelection(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	track, err := e.AddTrackOrDetection(nil)
	if err != nil {
		t.Fatalf("AddTrackOrDetection: %v", err)
	}
	e.ToggleMerge()
	e.Escape()

	if e.MergePending() {
		t.Fatal("merge still pending after escape")
	}
	if _, ok := e.Selection(); ok {
		t.Fatal("selection survived escape")
	}
	if store.GetPossibleTrack(track.ID, "main") != nil {
		t.Fatal("empty track survived escape")
	}
}

func TestEscapeKeepsTrackWithFeatures(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	track := seedTrack(t, store, "main", 0, 10)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.Escape()

	if _, ok := e.Selection(); ok {
		t.Fatal("selection survived escape")
	}
	if store.GetPossibleTrack(track.ID, "main") == nil {
		t.Fatal("escape removed a track with features")
	}
}

func seedTrack(t *testing.T, store *annotation.Store, camera string, begin, end int) *annotation.Track {
	t.Helper()
	track, err := store.AddTrack(begin, "unknown", camera, nil, nil)
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	b := rect(0, 0, 10, 10)
	track.SetFeature(annotation.Feature{Frame: begin, Bounds: &b, Keyframe: true})
	if end != begin {
		b2 := rect(5, 5, 10, 10)
		track.SetFeature(annotation.Feature{Frame: end, Bounds: &b2, Keyframe: true})
	}
	return track
}

func TestMergeFlow(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	a := seedTrack(t, store, "main", 0, 10)
	b := seedTrack(t, store, "main", 20, 30)

	if err := e.SelectTrack(&a.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.ToggleMerge()
	if e.Editing() {
		t.Fatal("editing stayed on in merge mode")
	}
	// Selection during merge collects the candidate instead.
	if err := e.SelectTrack(&b.ID, true); err != nil {
		t.Fatalf("SelectTrack candidate: %v", err)
	}
	got := e.MergeCandidates()
	if len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("candidates = %v, want [%d %d]", got, a.ID, b.ID)
	}

	if err := e.CommitMerge(); err != nil {
		t.Fatalf("CommitMerge: %v", err)
	}
	merged, err := store.GetTrack(a.ID, "main")
	if err != nil {
		t.Fatalf("GetTrack after merge: %v", err)
	}
	if merged.Begin != 0 || merged.End != 30 {
		t.Fatalf("merged range = [%d,%d], want [0,30]", merged.Begin, merged.End)
	}
	if store.GetPossibleTrack(b.ID, "main") != nil {
		t.Fatal("absorbed track still present")
	}
	if e.MergePending() {
		t.Fatal("merge mode still active after commit")
	}
	if sel, ok := e.Selection(); !ok || sel != a.ID {
		t.Fatalf("selection after merge = %v/%v, want %d", sel, ok, a.ID)
	}
	if e.Editing() {
		t.Fatal("editing enabled after merge")
	}
}

func TestCommitMergeTooFewCandidates(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	a := seedTrack(t, store, "main", 0, 10)
	if err := e.SelectTrack(&a.ID, false); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.ToggleMerge()

	err := e.CommitMerge()
	var ise *annotation.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("CommitMerge with 1 candidate = %v, want InvalidStateError", err)
	}
	if store.TrackCount("main") != 1 {
		t.Fatal("failed merge mutated the store")
	}
}

func TestCommitMergeRejectsOverlap(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	a := seedTrack(t, store, "main", 0, 10)
	b := seedTrack(t, store, "main", 5, 15)

	if err := e.SelectTrack(&a.ID, false); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.ToggleMerge()
	if err := e.SelectTrack(&b.ID, false); err != nil {
		t.Fatalf("SelectTrack candidate: %v", err)
	}

	err := e.CommitMerge()
	var ce *annotation.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("CommitMerge with overlap = %v, want ConflictError", err)
	}
	if store.GetPossibleTrack(b.ID, "main") == nil {
		t.Fatal("rejected merge mutated the store")
	}
}

func TestMergeAcrossCamerasMaterializesPrimary(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	a := seedTrack(t, store, "main", 0, 10)
	b := seedTrack(t, store, "aux", 20, 30)

	if err := e.SelectTrack(&a.ID, false); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.ToggleMerge()
	if err := e.SelectTrack(&b.ID, false); err != nil {
		t.Fatalf("SelectTrack candidate: %v", err)
	}
	if err := e.CommitMerge(); err != nil {
		t.Fatalf("CommitMerge: %v", err)
	}

	cameras := store.CamerasForTrack(a.ID)
	if len(cameras) != 2 {
		t.Fatalf("cameras for merged track = %v, want both", cameras)
	}
	aux, err := store.GetTrack(a.ID, "aux")
	if err != nil {
		t.Fatalf("GetTrack aux: %v", err)
	}
	if aux.Begin != 20 || aux.End != 30 {
		t.Fatalf("aux range = [%d,%d], want [20,30]", aux.Begin, aux.End)
	}
	if store.GetPossibleTrack(b.ID, "aux") != nil {
		t.Fatal("absorbed aux track still present")
	}
}

func TestLinkingFlow(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	main := seedTrack(t, store, "main", 0, 10)
	aux := seedTrack(t, store, "aux", 20, 30)

	if err := e.StartLinking("aux"); err == nil {
		t.Fatal("StartLinking without selection succeeded")
	}
	if err := e.SelectTrack(&main.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if err := e.StartLinking("nope"); err == nil {
		t.Fatal("StartLinking with unknown camera succeeded")
	}
	if err := e.StartLinking("aux"); err != nil {
		t.Fatalf("StartLinking: %v", err)
	}
	if e.Editing() {
		t.Fatal("editing stayed on while linking")
	}

	// Selecting while linking resolves the target instead.
	if err := e.SelectTrack(&aux.ID, false); err != nil {
		t.Fatalf("resolve via SelectTrack: %v", err)
	}
	if target, ok := e.LinkTarget(); !ok || target != aux.ID {
		t.Fatalf("link target = %v/%v, want %d", target, ok, aux.ID)
	}

	if err := e.CommitLink(); err != nil {
		t.Fatalf("CommitLink: %v", err)
	}
	if e.LinkingActive() {
		t.Fatal("linking still active after commit")
	}
	cameras := store.CamerasForTrack(main.ID)
	if len(cameras) != 2 {
		t.Fatalf("cameras after link = %v, want both", cameras)
	}
	if store.GetPossibleTrack(aux.ID, "aux") != nil {
		t.Fatal("linked track kept its old id")
	}
}

func TestResolveLinkRejectsMultiCameraTarget(t *testing.T) {
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig())

	main := seedTrack(t, store, "main", 0, 10)
	aux := seedTrack(t, store, "aux", 20, 30)
	// Spread the candidate over both cameras.
	if _, err := store.AddTrack(40, "unknown", "main", nil, &aux.ID); err != nil {
		t.Fatalf("AddTrack override: %v", err)
	}

	if err := e.SelectTrack(&main.ID, false); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if err := e.StartLinking("aux"); err != nil {
		t.Fatalf("StartLinking: %v", err)
	}
	err := e.ResolveLink(aux.ID)
	var ce *annotation.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("ResolveLink multi-camera = %v, want ConflictError", err)
	}
	if !e.LinkingActive() {
		t.Fatal("failed resolve closed the linking overlay")
	}

	err = e.ResolveLink(annotation.TrackID(999))
	var nfe *annotation.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("ResolveLink missing = %v, want NotFoundError", err)
	}
}

func TestDeleteTrackPromptGating(t *testing.T) {
	e, store, _, prompter := newTestEditor(t, config.DefaultSessionConfig())

	track := seedTrack(t, store, "main", 0, 10)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	prompter.answer = false
	if err := e.DeleteTrack(track.ID); err != nil {
		t.Fatalf("declined delete returned error: %v", err)
	}
	if len(prompter.calls) != 1 {
		t.Fatalf("prompt calls = %d, want 1", len(prompter.calls))
	}
	if store.GetPossibleTrack(track.ID, "main") == nil {
		t.Fatal("declined delete removed the track")
	}

	prompter.answer = true
	if err := e.DeleteTrack(track.ID); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if store.GetPossibleTrack(track.ID, "main") != nil {
		t.Fatal("confirmed delete kept the track")
	}
	if _, ok := e.Selection(); ok {
		t.Fatal("selection survived deleting the selected track")
	}
}

func TestDeleteTrackWithoutPrompt(t *testing.T) {
	settings := config.DefaultSessionConfig()
	settings.PromptBeforeDelete = ptr(false)
	e, store, _, prompter := newTestEditor(t, settings)

	track := seedTrack(t, store, "main", 0, 10)
	if err := e.DeleteTrack(track.ID); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if len(prompter.calls) != 0 {
		t.Fatal("prompt fired with prompting disabled")
	}

	var nfe *annotation.NotFoundError
	if err := e.DeleteTrack(track.ID); !errors.As(err, &nfe) {
		t.Fatalf("deleting a missing track = %v, want NotFoundError", err)
	}
}

func TestUpdateGeometryWithRectangleRecipe(t *testing.T) {
	bus := recipes.NewBus()
	rectRecipe := recipes.NewRectangle(bus)
	rectRecipe.Activate()
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig(), rectRecipe)

	track := seedTrack(t, store, "main", 0, 0)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	interrupted := false
	err := e.UpdateGeometry(recipes.EventInProgress, 0,
		[]annotation.Shape{quadShape(0, 0, 50, 50)}, "",
		func() { interrupted = true })
	if err != nil {
		t.Fatalf("UpdateGeometry in-progress: %v", err)
	}
	if !interrupted {
		t.Fatal("in-progress geometry change did not suppress the interrupt")
	}

	if err := e.UpdateGeometry(recipes.EventEditing, 0,
		[]annotation.Shape{quadShape(10, 10, 20, 20)}, "", nil); err != nil {
		t.Fatalf("UpdateGeometry editing: %v", err)
	}
	f, _, ok := track.GetFeature(0)
	if !ok || f.Bounds == nil {
		t.Fatal("expected bounds after editing event")
	}
	if f.Bounds.MinX != 10 || f.Bounds.MaxX != 30 {
		t.Fatalf("bounds = %+v, want replaced x range [10,30]", *f.Bounds)
	}
}

func TestUpdateGeometryDuplicateKeyConflict(t *testing.T) {
	bus := recipes.NewBus()
	p1 := recipes.NewPolygon(bus)
	p2 := recipes.NewPolygon(bus)
	p1.Activate()
	p2.Activate()
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig(), p1, p2)

	track := seedTrack(t, store, "main", 0, 0)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	err := e.UpdateGeometry(recipes.EventEditing, 0,
		[]annotation.Shape{quadShape(0, 0, 10, 10)}, "", nil)
	var ce *annotation.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("duplicate data key = %v, want ConflictError", err)
	}
	f, _, _ := track.GetFeature(0)
	if len(f.ShapesForKey("")) != 0 {
		t.Fatal("rejected update wrote shapes")
	}
}

// typeSwitchRecipe always claims the editing type, to exercise the
// conflict arbitration when two recipes contend for one mode switch.
type typeSwitchRecipe struct {
	name   string
	active bool
}

func (r *typeSwitchRecipe) Name() string { return r.name }
func (r *typeSwitchRecipe) Active() bool { return r.active }
func (r *typeSwitchRecipe) Activate()    { r.active = true }
func (r *typeSwitchRecipe) Deactivate()  { r.active = false }

func (r *typeSwitchRecipe) Update(event recipes.UpdateEvent, frame int, track *annotation.Track, shapes []annotation.Shape, key string) (recipes.Result, error) {
	if !r.active {
		return recipes.Result{}, nil
	}
	return recipes.Result{NewType: r.name, Done: true}, nil
}

func (r *typeSwitchRecipe) DeletePoint(frame int, track *annotation.Track, handle int, key, editingType string) (bool, error) {
	return false, nil
}

func (r *typeSwitchRecipe) Delete(frame int, track *annotation.Track, key, editingType string) (bool, error) {
	return false, nil
}

func TestUpdateGeometryTypeSwitchConflict(t *testing.T) {
	r1 := &typeSwitchRecipe{name: "head"}
	r2 := &typeSwitchRecipe{name: "tail"}
	r1.Activate()
	r2.Activate()
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig(), r1, r2)

	track := seedTrack(t, store, "main", 0, 0)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	err := e.UpdateGeometry(recipes.EventEditing, 0, nil, "", nil)
	var ce *annotation.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("two type switches = %v, want ConflictError", err)
	}
	if got := e.EditingType(); got != "rectangle" {
		t.Fatalf("editing type after rejected update = %q, want rectangle", got)
	}
}

func TestUpdateGeometrySingleTypeSwitch(t *testing.T) {
	r1 := &typeSwitchRecipe{name: "head"}
	r1.Activate()
	other := &typeSwitchRecipe{name: "idle"}
	other.active = false
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig(), r1, other)

	track := seedTrack(t, store, "main", 0, 0)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	if err := e.UpdateGeometry(recipes.EventInProgress, 0, nil, "", nil); err != nil {
		t.Fatalf("UpdateGeometry: %v", err)
	}
	if got := e.EditingType(); got != "head" {
		t.Fatalf("editing type = %q, want head", got)
	}
}

func TestLineRecipeModeSwitchSetsSelectedKey(t *testing.T) {
	bus := recipes.NewBus()
	line := recipes.NewLine(bus)
	line.Activate()
	e, store, _, _ := newTestEditor(t, config.DefaultSessionConfig(), line)

	track := seedTrack(t, store, "main", 0, 0)
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}

	start := annotation.Shape{Kind: annotation.ShapeLine, Points: []r2.Vec{{X: 5, Y: 5}}}
	if err := e.UpdateGeometry(recipes.EventInProgress, 0,
		[]annotation.Shape{start}, "", nil); err != nil {
		t.Fatalf("UpdateGeometry first point: %v", err)
	}
	if got := e.SelectedKey(); got != recipes.LineKey {
		t.Fatalf("selected key = %q, want %q", got, recipes.LineKey)
	}
}

func TestDeletePointTouchesStore(t *testing.T) {
	bus := recipes.NewBus()
	poly := recipes.NewPolygon(bus)
	store := annotation.NewStore("main", "aux")
	playback := &fakePlayback{}
	e := New(store, config.DefaultSessionConfig(), playback, nil, bus, "main", poly)
	t.Cleanup(e.Close)
	// Activating through the bus switches the editing type to polygon.
	poly.Activate()

	track := seedTrack(t, store, "main", 0, 0)
	track.SetFeature(annotation.Feature{Frame: 0}, annotation.Shape{
		Kind: annotation.ShapePolygon,
		Points: []r2.Vec{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 5, Y: 15},
		},
	})
	if err := e.SelectTrack(&track.ID, true); err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	e.SelectFeatureHandle(4, "")

	before := store.Revision()
	if err := e.DeletePoint(); err != nil {
		t.Fatalf("DeletePoint: %v", err)
	}
	if store.Revision() == before {
		t.Fatal("DeletePoint did not bump the store revision")
	}
	f, _, _ := track.GetFeature(0)
	if got := len(f.ShapesForKey("")[0].Points); got != 4 {
		t.Fatalf("points after delete = %d, want 4", got)
	}
	if e.SelectedFeatureHandle() != -1 {
		t.Fatal("handle not cleared after delete")
	}
}

func ptr[T any](v T) *T { return &v }
