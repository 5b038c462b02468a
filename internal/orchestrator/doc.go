// Package orchestrator ties the registration subsystems together for one
// boot session: module discovery, the two fire-once lifecycle callbacks the
// host invokes (coremod list ready, module construction starting), the
// native discovery pass, and final re-selection of the weaving engine.
package orchestrator
