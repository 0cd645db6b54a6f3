// Package editor owns the annotation session's editing state machine:
// selection, the creating/editing lifecycle, merge and linking overlays,
// and recipe dispatch for geometry updates.
//
// All user-driven events enter here. The editor resolves the affected
// track through the store, fans updates out to the recipes, arbitrates
// their contributions into a single feature write, and writes the result
// back through the store so the interval index and ordered views stay
// consistent.
//
// Derived state (the effective mode, merge/linking overlays) is
// recomputed on read from the authoritative fields; nothing derived is
// cached across an action boundary.
package editor
