package annotation

import (
	"sort"
)

// TrackID identifies a track within a Store. IDs are assigned
// monotonically and never reused after removal within a session. The same
// ID may exist on multiple cameras; that pair of (ID, camera) is the unit
// of storage.
type TrackID int64

// ConfidencePair is one (type, score) classification entry. Pairs are
// kept ordered highest-score first; the first pair is the track's primary
// type.
type ConfidencePair struct {
	Type  string
	Score float64
}

// Feature is the geometry recorded for a track at one frame: optional
// axis-aligned bounds plus any number of keyed interchange shapes.
type Feature struct {
	Frame       int
	Bounds      *Rect
	Shapes      []Shape
	Keyframe    bool
	Interpolate bool
}

// clone deep-copies the feature.
func (f *Feature) clone() *Feature {
	out := &Feature{Frame: f.Frame, Keyframe: f.Keyframe, Interpolate: f.Interpolate}
	if f.Bounds != nil {
		b := *f.Bounds
		out.Bounds = &b
	}
	for _, s := range f.Shapes {
		out.Shapes = append(out.Shapes, s.Clone())
	}
	return out
}

// ShapesForKey returns the shapes attached under the given key.
func (f *Feature) ShapesForKey(key string) []Shape {
	var out []Shape
	for _, s := range f.Shapes {
		if s.Key == key {
			out = append(out, s)
		}
	}
	return out
}

// Track is one tracked object's annotation on a single camera: identity,
// inclusive frame range, per-frame features, classification pairs, and
// free-form attributes.
//
// Begin and End always reflect the minimum and maximum frame holding a
// feature. A track with zero features keeps Begin == End at its creation
// frame; such a track is transient and is removed by the editor if it
// survives past the current user action.
type Track struct {
	ID    TrackID
	Begin int
	End   int

	features        map[int]*Feature
	frames          []int // sorted keys of features
	confidencePairs []ConfidencePair
	attributes      map[string]any

	// notify is set by the owning store at registration; every mutation
	// fires it so dependent views recompute and the interval index is
	// maintained.
	notify func(*Track)
}

// NewTrack creates a track at the given frame with a single confidence
// pair for the initial type. No feature is recorded yet.
func NewTrack(id TrackID, frame int, trackType string) *Track {
	return &Track{
		ID:              id,
		Begin:           frame,
		End:             frame,
		features:        make(map[int]*Feature),
		confidencePairs: []ConfidencePair{{Type: trackType, Score: 1}},
		attributes:      make(map[string]any),
	}
}

func (t *Track) changed() {
	if t.notify != nil {
		t.notify(t)
	}
}

// FeatureCount returns the number of frames holding a feature.
func (t *Track) FeatureCount() int { return len(t.features) }

// Frames returns the sorted frames holding a feature.
func (t *Track) Frames() []int {
	out := make([]int, len(t.frames))
	copy(out, t.frames)
	return out
}

// Type returns the primary (highest-score) type, or "" for a track with
// no confidence pairs.
func (t *Track) Type() string {
	if len(t.confidencePairs) == 0 {
		return ""
	}
	return t.confidencePairs[0].Type
}

// ConfidencePairs returns a copy of the ordered confidence pairs.
func (t *Track) ConfidencePairs() []ConfidencePair {
	out := make([]ConfidencePair, len(t.confidencePairs))
	copy(out, t.confidencePairs)
	return out
}

// SetConfidencePairs replaces all confidence pairs, re-sorting highest
// score first.
func (t *Track) SetConfidencePairs(pairs []ConfidencePair) {
	t.confidencePairs = make([]ConfidencePair, len(pairs))
	copy(t.confidencePairs, pairs)
	sort.SliceStable(t.confidencePairs, func(i, j int) bool {
		return t.confidencePairs[i].Score > t.confidencePairs[j].Score
	})
	t.changed()
}

// SetConfidence records a score for trackType, keeping the higher score
// when the type already has one.
func (t *Track) SetConfidence(trackType string, score float64) {
	t.mergeConfidencePair(ConfidencePair{Type: trackType, Score: score})
	t.changed()
}

// SetType reassigns the primary confidence pair, preserving secondary
// pairs.
func (t *Track) SetType(trackType string) {
	if len(t.confidencePairs) == 0 {
		t.confidencePairs = []ConfidencePair{{Type: trackType, Score: 1}}
	} else {
		t.confidencePairs[0] = ConfidencePair{Type: trackType, Score: t.confidencePairs[0].Score}
	}
	t.changed()
}

// Attribute returns the named attribute value.
func (t *Track) Attribute(key string) (any, bool) {
	v, ok := t.attributes[key]
	return v, ok
}

// Attributes returns a copy of the attribute map.
func (t *Track) Attributes() map[string]any {
	out := make(map[string]any, len(t.attributes))
	for k, v := range t.attributes {
		out[k] = v
	}
	return out
}

// SetAttribute sets a free-form attribute on the track.
func (t *Track) SetAttribute(key string, value any) {
	t.attributes[key] = value
	t.changed()
}

// SetFeature merges f into the feature at f.Frame, creating it when
// absent. Nil Bounds leaves existing bounds untouched; Keyframe and
// Interpolate are always assigned. Shapes passed alongside are upserted
// by (key, kind), replacing any existing shapes with the same key.
func (t *Track) SetFeature(f Feature, shapes ...Shape) {
	existing, ok := t.features[f.Frame]
	if !ok {
		existing = &Feature{Frame: f.Frame}
		t.features[f.Frame] = existing
		t.insertFrame(f.Frame)
	}
	if f.Bounds != nil {
		b := *f.Bounds
		existing.Bounds = &b
	}
	existing.Keyframe = f.Keyframe
	existing.Interpolate = f.Interpolate

	for _, s := range append(f.Shapes, shapes...) {
		t.upsertShape(existing, s)
	}

	t.recalcRange()
	t.changed()
}

// upsertShape replaces the first shape with the same key or appends.
func (t *Track) upsertShape(f *Feature, s Shape) {
	for i := range f.Shapes {
		if f.Shapes[i].Key == s.Key {
			f.Shapes[i] = s.Clone()
			return
		}
	}
	f.Shapes = append(f.Shapes, s.Clone())
}

// RemoveShapes deletes all shapes under the given key from the feature at
// frame. Reports whether anything was removed.
func (t *Track) RemoveShapes(frame int, key string) bool {
	f, ok := t.features[frame]
	if !ok {
		return false
	}
	kept := f.Shapes[:0]
	removed := false
	for _, s := range f.Shapes {
		if s.Key == key {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	f.Shapes = kept
	if removed {
		t.changed()
	}
	return removed
}

// DeleteFeature removes the feature at frame, if any, and recomputes the
// frame range.
func (t *Track) DeleteFeature(frame int) {
	if _, ok := t.features[frame]; !ok {
		return
	}
	delete(t.features, frame)
	i := sort.SearchInts(t.frames, frame)
	t.frames = append(t.frames[:i], t.frames[i+1:]...)
	t.recalcRange()
	t.changed()
}

// GetFeature returns the feature visible at frame. For a frame with a
// recorded feature it returns that feature with interpolated == false.
// For a frame inside the track's range between two features with
// interpolation enabled it synthesizes an interpolated feature and
// returns interpolated == true. Otherwise ok is false.
func (t *Track) GetFeature(frame int) (f *Feature, interpolated, ok bool) {
	if exact, found := t.features[frame]; found {
		return exact, false, true
	}
	prev, next := t.surrounding(frame)
	if prev == nil || next == nil || !prev.Interpolate {
		return nil, false, false
	}
	if prev.Bounds == nil || next.Bounds == nil {
		return nil, false, false
	}
	span := float64(next.Frame - prev.Frame)
	tfrac := float64(frame-prev.Frame) / span
	bounds := interpolateRect(*prev.Bounds, *next.Bounds, tfrac)
	return &Feature{
		Frame:       frame,
		Bounds:      &bounds,
		Keyframe:    false,
		Interpolate: true,
	}, true, true
}

// CanInterpolate reports whether the position at frame is eligible for
// interpolation, along with the surrounding recorded features (prev then
// next, either possibly nil).
func (t *Track) CanInterpolate(frame int) (bool, []*Feature) {
	prev, next := t.surrounding(frame)
	eligible := (prev != nil && prev.Interpolate) || (next != nil && next.Interpolate)
	return eligible, []*Feature{prev, next}
}

// surrounding returns the nearest recorded features strictly before and
// strictly after frame.
func (t *Track) surrounding(frame int) (prev, next *Feature) {
	i := sort.SearchInts(t.frames, frame)
	if i > 0 {
		prev = t.features[t.frames[i-1]]
	}
	j := i
	if j < len(t.frames) && t.frames[j] == frame {
		j++
	}
	if j < len(t.frames) {
		next = t.features[t.frames[j]]
	}
	return prev, next
}

// Merge absorbs the other tracks' features, confidence pairs, and
// attributes. Frames already present on the receiver win; the caller is
// expected to have rejected overlapping ranges beforehand. The other
// tracks are left untouched; removing them from the store is the
// caller's job.
func (t *Track) Merge(others ...*Track) {
	for _, other := range others {
		if other == nil || other == t {
			continue
		}
		for frame, f := range other.features {
			if _, exists := t.features[frame]; exists {
				continue
			}
			t.features[frame] = f.clone()
			t.insertFrame(frame)
		}
		for _, pair := range other.confidencePairs {
			t.mergeConfidencePair(pair)
		}
		for k, v := range other.attributes {
			if _, exists := t.attributes[k]; !exists {
				t.attributes[k] = v
			}
		}
	}
	t.recalcRange()
	t.changed()
}

// mergeConfidencePair keeps the higher score per type and re-sorts
// highest first.
func (t *Track) mergeConfidencePair(pair ConfidencePair) {
	for i := range t.confidencePairs {
		if t.confidencePairs[i].Type == pair.Type {
			if pair.Score > t.confidencePairs[i].Score {
				t.confidencePairs[i].Score = pair.Score
			}
			return
		}
	}
	t.confidencePairs = append(t.confidencePairs, pair)
	sort.SliceStable(t.confidencePairs, func(i, j int) bool {
		return t.confidencePairs[i].Score > t.confidencePairs[j].Score
	})
}

func (t *Track) insertFrame(frame int) {
	i := sort.SearchInts(t.frames, frame)
	if i < len(t.frames) && t.frames[i] == frame {
		return
	}
	t.frames = append(t.frames, 0)
	copy(t.frames[i+1:], t.frames[i:])
	t.frames[i] = frame
}

// recalcRange restores the Begin/End invariant from the recorded frames.
// A track with zero features keeps its current (creation) frame.
func (t *Track) recalcRange() {
	if len(t.frames) == 0 {
		return
	}
	t.Begin = t.frames[0]
	t.End = t.frames[len(t.frames)-1]
}

// Overlaps reports whether the track's inclusive frame range intersects
// [begin, end].
func (t *Track) Overlaps(begin, end int) bool {
	return t.Begin <= end && t.End >= begin
}
