// Package descriptor defines the transformation descriptor model shared by
// the orchestrator and the weaving engine: the descriptor itself, its target
// symbol lists, and lazily attached key/value decorations.
package descriptor
