package capability

import (
	"github.com/vk/loomgate/internal/descriptor"
)

// Phase identifies which gathering pass an admission decision belongs to.
type Phase string

const (
	// PhaseEarly is the pre-construction gathering pass.
	PhaseEarly Phase = "early"
	// PhaseLate is the construction-time gathering pass.
	PhaseLate Phase = "late"
)

// EarlyProvider contributes descriptors during the early gathering pass,
// before the host's module-construction phase.
type EarlyProvider interface {
	EarlyDescriptors() []descriptor.Ref
}

// LateProvider contributes descriptors during module construction, once its
// module's code is guaranteed loadable.
type LateProvider interface {
	LateDescriptors() []descriptor.Ref
}

// Hijacker claims descriptor ids that would otherwise be auto-discovered
// from other modules, so the claimant's own registration supersedes them.
type Hijacker interface {
	HijackedDescriptors() []string
}

// AdmissionFilter is an optional per-descriptor admission predicate. A
// provider that does not implement it admits everything it declares.
type AdmissionFilter interface {
	AdmitDescriptor(ac *AdmissionContext) bool
}

// AdmissionObserver is an optional post-admission callback.
type AdmissionObserver interface {
	DescriptorAdmitted(d *descriptor.Descriptor)
}

// AdmissionContext carries what a provider may inspect when deciding whether
// one of its declared descriptors should be admitted.
type AdmissionContext struct {
	Ref   descriptor.Ref
	Phase Phase
	// Owner is the owning module id, resolved for the late phase only.
	Owner string
}
