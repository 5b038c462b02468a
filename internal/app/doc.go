// Package app wires the loomgate application together: configuration,
// logging, the weaving engine, the orchestrator, and the compiled-in module
// list, plus the boot sequence that drives the host lifecycle callbacks.
package app
