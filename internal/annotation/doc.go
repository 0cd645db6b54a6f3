// Package annotation owns the domain model of an annotation session:
// tracks, per-frame features, interchange geometry, and the track store.
//
// Responsibilities: track identity and lifecycle, frame-range bookkeeping,
// the per-camera interval index, and change notification for dependent
// views. Key types: Track, Feature, Store.
//
// Dependency rule: this package must not depend on the editor or on any
// recipe implementation. No SQL/database code is allowed here; persistence
// lives in storage/sqlite.
package annotation
