// Package presence implements the module presence registry: a boot-time scan
// of module metadata resources that yields the set of discovered module ids
// and a mapping from archive name to primary module id.
package presence
