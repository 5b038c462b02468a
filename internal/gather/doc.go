// Package gather implements the two registration gathering passes: the early
// pass over the host's coremod list (which also feeds collision arbitration)
// and the late pass over the host's constructed-container index. Both passes
// isolate failures per provider so a broken module degrades instead of
// aborting the boot.
package gather
