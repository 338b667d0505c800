// Package preflight provides readiness checks for the audio source,
// provider credentials, and local store paths that scribe depends on.
//
// The CLI "scribe check" command runs RunAll and renders each Result. The
// store checks are gated by their config toggles so disabled features are
// skipped.
package preflight
