package annotation

import (
	"sort"
	"sync"
)

// cameraView is one camera's slice of the track table: the id map, the
// TrackID-ordered view, and the interval index over frame ranges. All
// three are maintained together on every structural mutation.
type cameraView struct {
	tracks  map[TrackID]*Track
	ordered []*Track
	index   intervalIndex
}

// Store owns the tracks of an annotation session across all cameras.
//
// Tracks are keyed by (TrackID, camera): the same TrackID may exist on
// multiple cameras as independent Track values, which is the unit that
// cross-camera merge and linking reason about. Every structural mutation
// (add, remove, feature/type/attribute change) bumps the revision counter
// and fires the registered change listeners so dependent views recompute.
//
// The single annotation session is single-user, but the store is lock
// guarded so read-side consumers (persistence, charts) can snapshot it
// while the editor mutates.
type Store struct {
	mu        sync.RWMutex
	nextID    TrackID
	cameras   map[string]*cameraView
	revision  int64
	listeners map[int]func()
	nextSub   int
}

// NewStore creates an empty store with the given session cameras
// registered. Cameras can also appear implicitly via AddTrack.
func NewStore(cameras ...string) *Store {
	s := &Store{
		nextID:    1,
		cameras:   make(map[string]*cameraView),
		listeners: make(map[int]func()),
	}
	for _, name := range cameras {
		s.cameras[name] = &cameraView{tracks: make(map[TrackID]*Track)}
	}
	return s
}

// OnChange registers a change listener and returns its unsubscribe
// function. Listeners fire after every structural mutation and after
// Touch.
func (s *Store) OnChange(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Revision returns the invalidation counter. It increments on every
// mutation and on Touch; derived state must be recomputed whenever it
// moves.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Touch is the manual dirty signal for state mutated through a side
// channel (recipe-mediated geometry edits) where no direct store write
// would otherwise trigger recomputation.
func (s *Store) Touch() {
	s.mu.Lock()
	s.revision++
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// snapshotListenersLocked copies the listener set so it can be fired
// after the lock is released.
func (s *Store) snapshotListenersLocked() []func() {
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func (s *Store) ensureCameraLocked(name string) *cameraView {
	cam, ok := s.cameras[name]
	if !ok {
		cam = &cameraView{tracks: make(map[TrackID]*Track)}
		s.cameras[name] = cam
	}
	return cam
}

// HasCamera reports whether the camera is part of the session.
func (s *Store) HasCamera(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cameras[name]
	return ok
}

// Cameras returns the session's camera names, sorted.
func (s *Store) Cameras() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.cameras))
	for name := range s.cameras {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddTrack creates a track at frame on the given camera and registers it
// in the camera map, the ordered view, and the interval index.
//
// afterID is an ordering hint: the new id is chosen past it so the track
// sorts after the one it follows. overrideID reuses an explicit id — the
// path used to materialize a multi-camera track on a new camera — and
// fails with DuplicateIDError when that id already exists on the camera.
func (s *Store) AddTrack(frame int, initialType, camera string, afterID, overrideID *TrackID) (*Track, error) {
	s.mu.Lock()
	cam := s.ensureCameraLocked(camera)

	var id TrackID
	if overrideID != nil {
		if _, exists := cam.tracks[*overrideID]; exists {
			s.mu.Unlock()
			return nil, &DuplicateIDError{ID: *overrideID, Camera: camera}
		}
		id = *overrideID
	} else {
		id = s.nextID
		if afterID != nil && *afterID >= id {
			id = *afterID + 1
		}
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}

	track := NewTrack(id, frame, initialType)
	track.notify = func(tr *Track) { s.trackChanged(camera, tr) }
	cam.tracks[id] = track
	s.insertOrderedLocked(cam, track)
	cam.index.insert(id, track.Begin, track.End)

	s.revision++
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return track, nil
}

// insertOrderedLocked places the track into the camera's ordered view
// preserving ascending TrackID order.
func (s *Store) insertOrderedLocked(cam *cameraView, track *Track) {
	i := sort.Search(len(cam.ordered), func(i int) bool {
		return cam.ordered[i].ID >= track.ID
	})
	cam.ordered = append(cam.ordered, nil)
	copy(cam.ordered[i+1:], cam.ordered[i:])
	cam.ordered[i] = track
}

// RemoveTrack deletes the track from the camera's map, ordered view, and
// interval index. Fails with NotFoundError when absent.
func (s *Store) RemoveTrack(id TrackID, camera string) error {
	s.mu.Lock()
	cam, ok := s.cameras[camera]
	if !ok {
		s.mu.Unlock()
		return &NotFoundError{ID: id, Camera: camera}
	}
	track, ok := cam.tracks[id]
	if !ok {
		s.mu.Unlock()
		return &NotFoundError{ID: id, Camera: camera}
	}
	track.notify = nil
	delete(cam.tracks, id)
	i := sort.Search(len(cam.ordered), func(i int) bool {
		return cam.ordered[i].ID >= id
	})
	if i < len(cam.ordered) && cam.ordered[i].ID == id {
		cam.ordered = append(cam.ordered[:i], cam.ordered[i+1:]...)
	}
	cam.index.remove(id)

	s.revision++
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

// trackChanged re-indexes a mutated track and fires the change
// listeners. It is installed as the track's notify hook at registration.
func (s *Store) trackChanged(camera string, track *Track) {
	s.mu.Lock()
	if cam, ok := s.cameras[camera]; ok {
		if _, present := cam.tracks[track.ID]; present {
			cam.index.insert(track.ID, track.Begin, track.End)
		}
	}
	s.revision++
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// GetTrack returns the track for (id, camera), failing with
// NotFoundError naming both when absent.
func (s *Store) GetTrack(id TrackID, camera string) (*Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cam, ok := s.cameras[camera]; ok {
		if track, ok := cam.tracks[id]; ok {
			return track, nil
		}
	}
	return nil, &NotFoundError{ID: id, Camera: camera}
}

// GetPossibleTrack is the non-throwing variant of GetTrack: nil when the
// track is absent.
func (s *Store) GetPossibleTrack(id TrackID, camera string) *Track {
	track, err := s.GetTrack(id, camera)
	if err != nil {
		return nil
	}
	return track
}

// GetAnyTrack returns the track for id from any camera holding it,
// searching cameras in sorted order for determinism.
func (s *Store) GetAnyTrack(id TrackID) (*Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.sortedCamerasLocked() {
		if track, ok := s.cameras[name].tracks[id]; ok {
			return track, nil
		}
	}
	return nil, &NotFoundError{ID: id}
}

// GetAllTracksForID returns one track per camera holding id, in sorted
// camera order.
func (s *Store) GetAllTracksForID(id TrackID) []*Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Track
	for _, name := range s.sortedCamerasLocked() {
		if track, ok := s.cameras[name].tracks[id]; ok {
			out = append(out, track)
		}
	}
	return out
}

// CamerasForTrack returns the sorted camera names holding id.
func (s *Store) CamerasForTrack(id TrackID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, name := range s.sortedCamerasLocked() {
		if _, ok := s.cameras[name].tracks[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *Store) sortedCamerasLocked() []string {
	names := make([]string, 0, len(s.cameras))
	for name := range s.cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMergedTrack returns a read-only composite track spanning the union
// of frame ranges across all cameras holding id, for UI purposes such as
// seeking. The composite is detached: mutating it does not touch the
// store. Fails with NotFoundError when no camera holds the id.
func (s *Store) GetMergedTrack(id TrackID) (*Track, error) {
	parts := s.GetAllTracksForID(id)
	if len(parts) == 0 {
		return nil, &NotFoundError{ID: id}
	}
	merged := NewTrack(id, parts[0].Begin, parts[0].Type())
	merged.Merge(parts...)
	return merged, nil
}

// QueryInterval returns the ids of every track on any camera whose
// inclusive [Begin, End] range overlaps [begin, end], sorted and
// deduplicated. This is the basis for timeline and seek UIs.
func (s *Store) QueryInterval(begin, end int) []TrackID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []TrackID
	for _, cam := range s.cameras {
		ids = cam.index.overlapping(begin, end, ids)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	var last TrackID = -1
	for _, id := range ids {
		if id != last {
			out = append(out, id)
			last = id
		}
	}
	return out
}

// QueryIntervalCamera is QueryInterval restricted to one camera.
func (s *Store) QueryIntervalCamera(camera string, begin, end int) []TrackID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cam, ok := s.cameras[camera]
	if !ok {
		return nil
	}
	ids := cam.index.overlapping(begin, end, nil)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OrderedTracks returns the camera's tracks in ascending TrackID order.
func (s *Store) OrderedTracks(camera string) []*Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cam, ok := s.cameras[camera]
	if !ok {
		return nil
	}
	out := make([]*Track, len(cam.ordered))
	copy(out, cam.ordered)
	return out
}

// TrackCount returns the number of tracks on the camera.
func (s *Store) TrackCount(camera string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cam, ok := s.cameras[camera]
	if !ok {
		return 0
	}
	return len(cam.tracks)
}
