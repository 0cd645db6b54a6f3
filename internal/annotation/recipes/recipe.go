package recipes

import (
	"sync"

	"github.com/kestrel-vision/trackstudio/internal/annotation"
)

// UpdateEvent classifies a geometry update: in-progress events arrive
// while the user is still drawing, editing events carry a finished shape.
type UpdateEvent string

const (
	EventInProgress UpdateEvent = "in-progress"
	EventEditing    UpdateEvent = "editing"
)

// Result is one recipe's contribution to a geometry update. The editor
// aggregates the results of every recipe into a single feature write:
// Data entries are upserted per key, Union polygons grow the existing
// bounds, UnionWithoutBounds polygons replace them. NewType and
// NewSelectedKey request a mode switch; at most one recipe per call may
// set either, and at most one may own a given Data key.
type Result struct {
	Data               map[string][]annotation.Shape
	Union              []annotation.Polygon
	UnionWithoutBounds []annotation.Polygon
	NewType            string  // editing type to switch to; "" means no switch
	NewSelectedKey     *string // selected key to switch to; nil means no switch
	Done               bool    // the recipe considers this edit complete
}

// Empty reports whether the result carries no contribution at all.
func (r Result) Empty() bool {
	return len(r.Data) == 0 && len(r.Union) == 0 && len(r.UnionWithoutBounds) == 0 &&
		r.NewType == "" && r.NewSelectedKey == nil
}

// Recipe is a polymorphic geometry-editing strategy. Implementations are
// stateless per call apart from their activation flag and must not
// mutate the track from Update; deletions (DeletePoint, Delete) are
// commanded mutations and may edit the track, after which the editor
// fires the store's manual invalidation signal.
type Recipe interface {
	Name() string
	Active() bool
	Activate()
	Deactivate()

	Update(event UpdateEvent, frame int, track *annotation.Track, shapes []annotation.Shape, key string) (Result, error)
	DeletePoint(frame int, track *annotation.Track, handle int, key, editingType string) (bool, error)
	Delete(frame int, track *annotation.Track, key, editingType string) (bool, error)
}

// Activation is the event a recipe publishes when it activates: the
// editor switches to the carried editing type and selected key and
// deactivates every other recipe.
type Activation struct {
	Recipe      Recipe
	EditingType string
	SelectedKey string
}

// Bus is a scoped activation dispatcher. The editor owns one Bus,
// subscribes for its lifetime, and releases the subscription at
// teardown; there are no ambient global listeners.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]func(Activation)
	nextSub int
}

// NewBus creates an empty activation bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Activation))}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Bus) Subscribe(fn func(Activation)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the activation to every subscriber.
func (b *Bus) Publish(a Activation) {
	b.mu.Lock()
	fns := make([]func(Activation), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(a)
	}
}
