// Package recipes holds the pluggable geometry-editing strategies the
// editor dispatches to. A recipe owns one editing mode (rectangle,
// polygon, line): it receives user geometry events and returns the
// feature update to apply, but never writes the track itself — the
// editor performs the write so a conflicting update can be rejected
// whole.
//
// Activation is mediated by a Bus scoped to the editor's lifetime: a
// recipe that activates publishes an event, the editor switches the
// editing type and selected key and deactivates the other recipes.
package recipes
