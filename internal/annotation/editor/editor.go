package editor

import (
	"fmt"
	"sync"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
	"github.com/kestrel-vision/trackstudio/internal/annotation/recipes"
	"github.com/kestrel-vision/trackstudio/internal/config"
	"github.com/kestrel-vision/trackstudio/internal/monitoring"
)

// State is the effective editing mode, derived from the authoritative
// session fields on every read.
type State string

const (
	// StateDisabled: no selection, or the selected track does not exist
	// on the current camera.
	StateDisabled State = "disabled"
	// StateCreating: the selected track has no shape of the current
	// editing type on the current frame yet.
	StateCreating State = "creating"
	// StateEditing: the current editing type's shape exists on the
	// current frame.
	StateEditing State = "editing"
)

// linkState is the linking overlay: associating the selected track with
// a track id that exists on exactly one other camera.
type linkState struct {
	active bool
	camera string
	target *annotation.TrackID
}

// Editor coordinates selection, the editing/merge/linking state machine,
// and recipe dispatch for geometry updates. One editor owns one session.
type Editor struct {
	mu sync.Mutex

	store    *annotation.Store
	settings *config.SessionConfig
	playback Playback
	prompter Prompter
	recipes  []recipes.Recipe

	selection      *annotation.TrackID
	editing        bool
	selectedCamera string

	editingType           string
	visibleTypes          map[string]bool
	selectedFeatureHandle int
	selectedKey           string

	mergeCandidates []annotation.TrackID
	linking         linkState

	// creating drives the post-add-advance logic: it is raised by
	// AddTrackOrDetection and lowered when the configured creation flow
	// completes.
	creating bool

	unsubscribe func()
}

// New creates an editor over the store, wiring the recipes' activation
// bus for the editor's lifetime. camera is the initially selected
// camera. Close releases the bus subscription.
func New(store *annotation.Store, settings *config.SessionConfig, playback Playback, prompter Prompter, bus *recipes.Bus, camera string, rs ...recipes.Recipe) *Editor {
	if prompter == nil {
		prompter = alwaysConfirm{}
	}
	e := &Editor{
		store:                 store,
		settings:              settings,
		playback:              playback,
		prompter:              prompter,
		recipes:               rs,
		selectedCamera:        camera,
		editingType:           "rectangle",
		visibleTypes:          map[string]bool{"rectangle": true, "polygon": true, "line": true},
		selectedFeatureHandle: -1,
	}
	if bus != nil {
		e.unsubscribe = bus.Subscribe(e.handleActivation)
	}
	return e
}

// Close releases the activation subscription. The editor must not be
// used afterwards.
func (e *Editor) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// handleActivation reacts to a recipe activating: switch the editing
// type and selected key, deactivate every other recipe.
func (e *Editor) handleActivation(a recipes.Activation) {
	e.mu.Lock()
	e.editingType = a.EditingType
	e.selectedKey = a.SelectedKey
	e.selectedFeatureHandle = -1
	others := make([]recipes.Recipe, 0, len(e.recipes))
	for _, r := range e.recipes {
		if r != a.Recipe {
			others = append(others, r)
		}
	}
	e.mu.Unlock()
	for _, r := range others {
		r.Deactivate()
	}
}

// Selection returns the selected track id, if any.
func (e *Editor) Selection() (annotation.TrackID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection == nil {
		return 0, false
	}
	return *e.selection, true
}

// Editing reports whether geometry editing is enabled for the selection.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// SelectedCamera returns the camera user actions currently target.
func (e *Editor) SelectedCamera() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedCamera
}

// SetSelectedCamera switches the target camera. Unknown cameras fail
// with InvalidState.
func (e *Editor) SetSelectedCamera(camera string) error {
	if !e.store.HasCamera(camera) {
		return &annotation.InvalidStateError{Op: "SetSelectedCamera", Reason: fmt.Sprintf("unknown camera %q", camera)}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedCamera = camera
	return nil
}

// EditingType returns the current editing type.
func (e *Editor) EditingType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editingType
}

// SelectedKey returns the shape key edits currently target.
func (e *Editor) SelectedKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedKey
}

// VisibleTypes returns the set of editing types rendered by the client.
func (e *Editor) VisibleTypes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.visibleTypes))
	for t, visible := range e.visibleTypes {
		if visible {
			out = append(out, t)
		}
	}
	return out
}

// SetVisibleTypes replaces the visible editing types.
func (e *Editor) SetVisibleTypes(types ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibleTypes = make(map[string]bool, len(types))
	for _, t := range types {
		e.visibleTypes[t] = true
	}
}

// SelectFeatureHandle records the selected geometry handle (-1 clears)
// and the shape key it belongs to.
func (e *Editor) SelectFeatureHandle(handle int, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectedFeatureHandle = handle
	e.selectedKey = key
}

// SelectedFeatureHandle returns the selected handle, -1 when none.
func (e *Editor) SelectedFeatureHandle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedFeatureHandle
}

// MergeCandidates returns the ordered merge candidate set. A non-empty
// set means merge mode is active.
func (e *Editor) MergeCandidates() []annotation.TrackID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]annotation.TrackID, len(e.mergeCandidates))
	copy(out, e.mergeCandidates)
	return out
}

// MergePending reports whether merge mode is active.
func (e *Editor) MergePending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mergeCandidates) > 0
}

// LinkingActive reports whether the linking overlay is active.
func (e *Editor) LinkingActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.linking.active
}

// LinkTarget returns the resolved link target, if any.
func (e *Editor) LinkTarget() (annotation.TrackID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.linking.target == nil {
		return 0, false
	}
	return *e.linking.target, true
}

// State derives the effective editing mode from the session fields and
// the current frame. Merge and linking overlays are reported separately
// via MergePending and LinkingActive.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Editor) stateLocked() State {
	if e.selection == nil {
		return StateDisabled
	}
	track := e.store.GetPossibleTrack(*e.selection, e.selectedCamera)
	if track == nil {
		return StateDisabled
	}
	f, _, ok := track.GetFeature(e.playback.CurrentFrame())
	if !ok {
		return StateCreating
	}
	if e.editingType == "rectangle" {
		if f.Bounds == nil {
			return StateCreating
		}
		return StateEditing
	}
	if len(f.ShapesForKey(e.selectedKey)) == 0 {
		return StateCreating
	}
	return StateEditing
}

// SelectTrack applies a user selection. While merge is pending the id is
// appended to the candidate set instead (no selection change); while
// linking is active the id is resolved as the link target instead. In
// both overlay cases the method returns early without touching the
// normal selection. Deselecting (or switching away from) an empty track
// removes it so empty tracks never survive deselection.
func (e *Editor) SelectTrack(id *annotation.TrackID, edit bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.mergeCandidates) > 0 && id != nil {
		for _, c := range e.mergeCandidates {
			if c == *id {
				return nil
			}
		}
		e.mergeCandidates = append(e.mergeCandidates, *id)
		return nil
	}
	if e.linking.active && id != nil {
		return e.resolveLinkLocked(*id)
	}

	prev := e.selection
	e.selection = id
	e.editing = id != nil && edit
	e.selectedFeatureHandle = -1
	e.creating = false

	if prev != nil && (id == nil || *id != *prev) {
		e.removeIfEmptyLocked(*prev)
	}
	return nil
}

// removeIfEmptyLocked deletes a track left without any feature.
func (e *Editor) removeIfEmptyLocked(id annotation.TrackID) {
	for _, track := range e.store.GetAllTracksForID(id) {
		if track.FeatureCount() > 0 {
			return
		}
	}
	for _, camera := range e.store.CamerasForTrack(id) {
		// Ignore the error: the track was just listed.
		_ = e.store.RemoveTrack(id, camera)
	}
}

// Escape clears merge and linking state and the selection. A selected
// track with no features is removed on the way out.
func (e *Editor) Escape() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mergeCandidates = nil
	e.linking = linkState{}
	e.creating = false
	e.selectedFeatureHandle = -1

	if e.selection != nil {
		id := *e.selection
		e.selection = nil
		e.editing = false
		e.removeIfEmptyLocked(id)
	}
}

// AddTrackOrDetection creates a track at the current frame on the
// selected camera, selects it with editing enabled, and raises the
// creating flag that drives the post-add-advance logic. overrideID
// materializes an existing multi-camera track id on this camera.
func (e *Editor) AddTrackOrDetection(overrideID *annotation.TrackID) (*annotation.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addTrackLocked(overrideID)
}

func (e *Editor) addTrackLocked(overrideID *annotation.TrackID) (*annotation.Track, error) {
	frame := e.playback.CurrentFrame()
	track, err := e.store.AddTrack(frame, e.settings.GetNewTrackType(), e.selectedCamera, e.selection, overrideID)
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	id := track.ID
	e.selection = &id
	e.editing = true
	e.creating = true
	e.selectedFeatureHandle = -1
	e.selectedKey = ""
	return track, nil
}

// selectedTrackLocked resolves the selection on the current camera.
func (e *Editor) selectedTrackLocked(op string) (*annotation.Track, error) {
	if e.selection == nil {
		return nil, &annotation.InvalidStateError{Op: op, Reason: "no track selected"}
	}
	track, err := e.store.GetTrack(*e.selection, e.selectedCamera)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return track, nil
}

// UpdateRectBounds writes the bounds keyframe for the selected track at
// frame. Interpolation policy: new tracks use the configured default
// (detections never interpolate), existing tracks use their computed
// eligibility. Runs the post-add-advance logic afterwards.
func (e *Editor) UpdateRectBounds(frame int, bounds annotation.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.selectedTrackLocked("UpdateRectBounds")
	if err != nil {
		return err
	}

	eligible, _ := track.CanInterpolate(frame)
	interpolate := eligible
	if track.FeatureCount() == 0 {
		if e.settings.GetNewTrackMode() == config.ModeDetection {
			interpolate = false
		} else {
			interpolate = e.settings.GetInterpolateOnCreate()
		}
	}

	track.SetFeature(annotation.Feature{
		Frame:       frame,
		Bounds:      &bounds,
		Keyframe:    true,
		Interpolate: interpolate,
	})

	e.postAddAdvanceLocked()
	return nil
}

// UpdateGeometry fans a geometry event out to every recipe and applies
// the aggregated result as a single feature write. Two recipes writing
// the same data key, or more than one setting NewType or NewSelectedKey,
// is a Conflict: the whole update is aborted and the track is left
// untouched. When contributions changed geometry without a mode switch,
// preventInterrupt is invoked instead of applying one (suppresses an
// editor redraw glitch). After a finished edit (event == editing, or
// every contributing recipe reported Done) the post-add-advance logic
// runs.
func (e *Editor) UpdateGeometry(event recipes.UpdateEvent, frame int, shapes []annotation.Shape, key string, preventInterrupt func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.selectedTrackLocked("UpdateGeometry")
	if err != nil {
		return err
	}

	agg := recipes.Result{Data: make(map[string][]annotation.Shape)}
	owners := make(map[string]string) // data key -> recipe name
	var typeOwner recipes.Recipe
	allDone := true
	contributed := false

	for _, r := range e.recipes {
		res, err := r.Update(event, frame, track, shapes, key)
		if err != nil {
			return fmt.Errorf("recipe %s: %w", r.Name(), err)
		}
		if res.Empty() {
			continue
		}
		contributed = true
		allDone = allDone && res.Done

		for k, v := range res.Data {
			if prev, dup := owners[k]; dup {
				return &annotation.ConflictError{
					Reason: fmt.Sprintf("recipes %q and %q both wrote key %q", prev, r.Name(), k),
				}
			}
			owners[k] = r.Name()
			agg.Data[k] = v
		}
		agg.Union = append(agg.Union, res.Union...)
		agg.UnionWithoutBounds = append(agg.UnionWithoutBounds, res.UnionWithoutBounds...)

		if res.NewType != "" {
			if agg.NewType != "" {
				return &annotation.ConflictError{
					Reason: fmt.Sprintf("recipes %q and %q both set the editing type", typeOwner.Name(), r.Name()),
				}
			}
			agg.NewType = res.NewType
			typeOwner = r
		}
		if res.NewSelectedKey != nil {
			if agg.NewSelectedKey != nil {
				return &annotation.ConflictError{
					Reason: fmt.Sprintf("recipe %q set an already-claimed selected key", r.Name()),
				}
			}
			agg.NewSelectedKey = res.NewSelectedKey
		}
	}

	geometryChanged := len(agg.Data) > 0 || len(agg.Union) > 0 || len(agg.UnionWithoutBounds) > 0
	modeSwitch := agg.NewType != "" || agg.NewSelectedKey != nil

	if geometryChanged && !modeSwitch && preventInterrupt != nil {
		preventInterrupt()
	}
	if modeSwitch {
		if agg.NewSelectedKey != nil {
			e.selectedKey = *agg.NewSelectedKey
		}
		if agg.NewType != "" {
			e.editingType = agg.NewType
			for _, r := range e.recipes {
				if r != typeOwner {
					r.Deactivate()
				}
			}
		}
	}

	if geometryChanged {
		e.applyGeometryLocked(track, frame, agg)
	}

	if event == recipes.EventEditing || (contributed && allDone) {
		e.postAddAdvanceLocked()
	}
	return nil
}

// applyGeometryLocked merges the aggregated recipe result into one
// feature write: UnionWithoutBounds polygons replace the existing
// bounds, Union polygons grow them, and Data shapes are upserted per
// key.
func (e *Editor) applyGeometryLocked(track *annotation.Track, frame int, agg recipes.Result) {
	var base *annotation.Rect
	keyframe := true
	interpolate := false
	if f, interpolated, ok := track.GetFeature(frame); ok && !interpolated {
		base = f.Bounds
		interpolate = f.Interpolate
	}

	bounds := base
	if len(agg.UnionWithoutBounds) > 0 {
		bounds = annotation.BoundsOfPolygons(agg.UnionWithoutBounds)
	}
	bounds = annotation.UnionPolygons(bounds, agg.Union)

	var shapes []annotation.Shape
	for k, ss := range agg.Data {
		for _, s := range ss {
			s.Key = k
			shapes = append(shapes, s)
		}
	}

	track.SetFeature(annotation.Feature{
		Frame:       frame,
		Bounds:      bounds,
		Keyframe:    keyframe,
		Interpolate: interpolate,
	}, shapes...)
}

// postAddAdvanceLocked runs the configured continuation after a created
// keyframe: Track mode with auto-advance steps playback one frame and
// stays in creating mode; Detection mode with continuous create starts
// the next detection immediately; otherwise creating mode ends.
func (e *Editor) postAddAdvanceLocked() {
	if !e.creating {
		return
	}
	mode := e.settings.GetNewTrackMode()
	switch {
	case mode == config.ModeTrack && e.settings.GetAdvanceFrameOnCreate():
		e.playback.NextFrame()
	case mode == config.ModeDetection && e.settings.GetContinuousCreate():
		if _, err := e.addTrackLocked(nil); err != nil {
			// Creation of the follow-up detection failed; end the flow
			// rather than looping on the error.
			e.creating = false
		}
	default:
		e.creating = false
	}
}

// ToggleMerge enters merge mode seeded with the current selection (and
// forces editing off), or leaves merge mode clearing the candidate set.
func (e *Editor) ToggleMerge() []annotation.TrackID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.mergeCandidates) == 0 {
		if e.selection != nil {
			e.mergeCandidates = []annotation.TrackID{*e.selection}
			e.editing = false
		}
	} else {
		e.mergeCandidates = nil
	}
	out := make([]annotation.TrackID, len(e.mergeCandidates))
	copy(out, e.mergeCandidates)
	return out
}

// CommitMerge merges every candidate into the first candidate's track on
// every camera, removes the absorbed tracks, exits merge mode, and
// selects the surviving track without editing.
//
// Fewer than two candidates is an InvalidState with no mutation.
// Candidates whose frame ranges overlap are rejected with Conflict
// before any mutation (policy for the otherwise-unspecified overlap
// case: reject rather than interleave).
func (e *Editor) CommitMerge() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.mergeCandidates) < 2 {
		return &annotation.InvalidStateError{Op: "CommitMerge", Reason: fmt.Sprintf("need at least 2 candidates, have %d", len(e.mergeCandidates))}
	}

	// Validate all candidates up front: every one must exist and no two
	// composite ranges may overlap.
	type span struct {
		id         annotation.TrackID
		begin, end int
	}
	spans := make([]span, 0, len(e.mergeCandidates))
	for _, id := range e.mergeCandidates {
		merged, err := e.store.GetMergedTrack(id)
		if err != nil {
			return fmt.Errorf("merge candidate: %w", err)
		}
		spans = append(spans, span{id: id, begin: merged.Begin, end: merged.End})
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].begin <= spans[j].end && spans[i].end >= spans[j].begin {
				return &annotation.ConflictError{
					Reason: fmt.Sprintf("merge candidates %d and %d have overlapping frame ranges", spans[i].id, spans[j].id),
				}
			}
		}
	}

	primary := e.mergeCandidates[0]
	for _, camera := range e.store.Cameras() {
		primaryTrack := e.store.GetPossibleTrack(primary, camera)
		for _, id := range e.mergeCandidates[1:] {
			candidate := e.store.GetPossibleTrack(id, camera)
			if candidate == nil {
				continue
			}
			if primaryTrack == nil {
				adopted, err := e.store.AddTrack(candidate.Begin, candidate.Type(), camera, nil, &primary)
				if err != nil {
					return fmt.Errorf("materialize merge target on %q: %w", camera, err)
				}
				primaryTrack = adopted
			}
			primaryTrack.Merge(candidate)
			if err := e.store.RemoveTrack(id, camera); err != nil {
				return fmt.Errorf("remove merged track: %w", err)
			}
		}
	}

	monitoring.Logf("merged %d tracks into track %d", len(e.mergeCandidates), primary)
	e.mergeCandidates = nil
	e.selection = &primary
	e.editing = false
	return nil
}

// StartLinking enters the linking overlay targeting the given camera.
// Requires a current selection and a known camera; both are caller
// preconditions and fail with InvalidState.
func (e *Editor) StartLinking(camera string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selection == nil {
		return &annotation.InvalidStateError{Op: "StartLinking", Reason: "no track selected"}
	}
	if !e.store.HasCamera(camera) {
		return &annotation.InvalidStateError{Op: "StartLinking", Reason: fmt.Sprintf("unknown camera %q", camera)}
	}
	e.linking = linkState{active: true, camera: camera}
	e.editing = false
	return nil
}

// ResolveLink resolves a candidate id as the link target. The id must
// exist on exactly one camera — the linking camera — otherwise the
// conflict is surfaced to the caller and the overlay stays open.
func (e *Editor) ResolveLink(id annotation.TrackID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLinkLocked(id)
}

func (e *Editor) resolveLinkLocked(id annotation.TrackID) error {
	if !e.linking.active {
		return &annotation.InvalidStateError{Op: "ResolveLink", Reason: "linking not active"}
	}
	cameras := e.store.CamerasForTrack(id)
	if len(cameras) == 0 {
		return &annotation.NotFoundError{ID: id}
	}
	if len(cameras) > 1 {
		return &annotation.ConflictError{
			Reason: fmt.Sprintf("track %d exists on %d cameras; linking requires a single-camera track", id, len(cameras)),
		}
	}
	if cameras[0] != e.linking.camera {
		return &annotation.ConflictError{
			Reason: fmt.Sprintf("track %d lives on camera %q, not the linking camera %q", id, cameras[0], e.linking.camera),
		}
	}
	e.linking.target = &id
	return nil
}

// CommitLink re-registers the resolved target track under the selected
// track's id on the linking camera, making the selection a multi-camera
// track, then clears the linking overlay.
func (e *Editor) CommitLink() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.linking.active || e.linking.target == nil {
		return &annotation.InvalidStateError{Op: "CommitLink", Reason: "no resolved link target"}
	}
	if e.selection == nil {
		return &annotation.InvalidStateError{Op: "CommitLink", Reason: "no track selected"}
	}
	primary := *e.selection
	targetID := *e.linking.target
	camera := e.linking.camera

	if e.store.GetPossibleTrack(primary, camera) != nil {
		return &annotation.ConflictError{
			Reason: fmt.Sprintf("track %d already exists on camera %q", primary, camera),
		}
	}
	target, err := e.store.GetTrack(targetID, camera)
	if err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	adopted, err := e.store.AddTrack(target.Begin, target.Type(), camera, nil, &primary)
	if err != nil {
		return fmt.Errorf("materialize link on %q: %w", camera, err)
	}
	adopted.Merge(target)
	if err := e.store.RemoveTrack(targetID, camera); err != nil {
		return fmt.Errorf("remove linked track: %w", err)
	}

	monitoring.Logf("linked track %d on camera %q into track %d", targetID, camera, primary)
	e.linking = linkState{}
	return nil
}

// StopLinking clears the linking overlay unconditionally.
func (e *Editor) StopLinking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.linking = linkState{}
}

// DeleteTrack removes the track from every camera holding it, gated by
// the confirmation prompt when configured. A declined prompt is a
// normal negative result: no error, no mutation.
func (e *Editor) DeleteTrack(id annotation.TrackID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cameras := e.store.CamerasForTrack(id)
	if len(cameras) == 0 {
		return &annotation.NotFoundError{ID: id}
	}

	if e.settings.GetPromptBeforeDelete() {
		ok := e.prompter.Confirm(PromptOptions{
			Title:          "Delete track",
			Text:           fmt.Sprintf("Delete track %d? This cannot be undone.", id),
			PositiveButton: "Delete",
			NegativeButton: "Cancel",
		})
		if !ok {
			return nil
		}
	}

	for _, camera := range cameras {
		if err := e.store.RemoveTrack(id, camera); err != nil {
			return fmt.Errorf("delete track: %w", err)
		}
	}
	monitoring.Logf("deleted track %d from %d cameras", id, len(cameras))
	if e.selection != nil && *e.selection == id {
		e.selection = nil
		e.editing = false
	}
	for i, c := range e.mergeCandidates {
		if c == id {
			e.mergeCandidates = append(e.mergeCandidates[:i], e.mergeCandidates[i+1:]...)
			break
		}
	}
	return nil
}

// DeletePoint removes the selected geometry handle via the active
// recipe, then fires the store's manual invalidation signal: the edit
// happened through the recipe, outside the editor's own writes.
func (e *Editor) DeletePoint() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.selectedTrackLocked("DeletePoint")
	if err != nil {
		return err
	}
	frame := e.playback.CurrentFrame()
	for _, r := range e.recipes {
		if !r.Active() {
			continue
		}
		changed, err := r.DeletePoint(frame, track, e.selectedFeatureHandle, e.selectedKey, e.editingType)
		if err != nil {
			return fmt.Errorf("recipe %s: %w", r.Name(), err)
		}
		if changed {
			e.selectedFeatureHandle = -1
			e.store.Touch()
			return nil
		}
	}
	return nil
}

// DeleteShape removes the whole shape under the selected key via the
// active recipe.
func (e *Editor) DeleteShape() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, err := e.selectedTrackLocked("DeleteShape")
	if err != nil {
		return err
	}
	frame := e.playback.CurrentFrame()
	for _, r := range e.recipes {
		if !r.Active() {
			continue
		}
		changed, err := r.Delete(frame, track, e.selectedKey, e.editingType)
		if err != nil {
			return fmt.Errorf("recipe %s: %w", r.Name(), err)
		}
		if changed {
			e.selectedFeatureHandle = -1
			e.store.Touch()
			return nil
		}
	}
	return nil
}

// SeekToTrack seeks playback to the start of the track's merged range
// across all cameras.
func (e *Editor) SeekToTrack(id annotation.TrackID) error {
	merged, err := e.store.GetMergedTrack(id)
	if err != nil {
		return fmt.Errorf("seek to track: %w", err)
	}
	e.playback.Seek(merged.Begin)
	return nil
}
