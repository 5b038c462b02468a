package capability

import "sync"

// Coremod is the host-supplied wrapper around a pre-loaded core module. The
// wrapped instance is documented but not statically typed: it may be the
// instance itself or a func() any factory that constructs it on first access.
type Coremod struct {
	Name     string
	Instance any

	once      sync.Once
	unwrapped any
}

// NewCoremod wraps an instance (or factory) under the given name.
func NewCoremod(name string, instance any) *Coremod {
	return &Coremod{Name: name, Instance: instance}
}

// WrappedInstance extracts the inner module instance. The result is computed
// once and cached, so factories run at most one time.
func (c *Coremod) WrappedInstance() any {
	c.once.Do(func() {
		if factory, ok := c.Instance.(func() any); ok {
			c.unwrapped = factory()
			return
		}
		c.unwrapped = c.Instance
	})
	return c.unwrapped
}
