// Package capability defines the contracts modules implement to participate
// in descriptor registration: the early/late provider and hijacker
// interfaces, the optional admission predicate and callback, the coremod
// wrapper handed over by the host, and the lookup index used by the late
// gathering pass.
package capability
