// Package patch implements the legacy patch table: a data-driven mapping
// from known-broken legacy descriptor ids to repair actions, applied through
// the weaving engine's admission-callback hook. Matched descriptors have
// their target lists swapped for an absorbing sink and their replacement ids
// scheduled for late-phase registration.
package patch
