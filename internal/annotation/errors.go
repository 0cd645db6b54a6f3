package annotation

import "fmt"

// NotFoundError reports a lookup for a track that does not exist. Camera
// is empty when the lookup spanned all cameras.
type NotFoundError struct {
	ID     TrackID
	Camera string
}

func (e *NotFoundError) Error() string {
	if e.Camera == "" {
		return fmt.Sprintf("track %d not found on any camera", e.ID)
	}
	return fmt.Sprintf("track %d not found on camera %q", e.ID, e.Camera)
}

// DuplicateIDError reports an AddTrack override that collides with an
// existing track on the same camera.
type DuplicateIDError struct {
	ID     TrackID
	Camera string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("track %d already exists on camera %q", e.ID, e.Camera)
}

// ConflictError reports two contributors claiming the same output in a
// single operation: recipes writing the same key or mode field, merge
// candidates with overlapping frame ranges, or a link target that exists
// on more than one camera.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// InvalidStateError reports an operation invoked without its
// preconditions. These are caller errors: UI affordances are expected to
// prevent them, but they must fail loudly rather than corrupt state.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: invalid state: %s", e.Op, e.Reason)
}
