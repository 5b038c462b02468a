// Package weaver models the weaving engine the orchestrator sits in front
// of: a descriptor registry with an admission-callback hook point, a
// transformer registry, and the re-selection operation that recomputes which
// transformer serves which descriptor after late registrations.
package weaver
