package patch

import (
	"errors"
	"sync"
)

// ErrAlreadyDrained is returned when the scheduled replacements are consumed
// a second time in the same boot. Draining twice would mean duplicate late
// registrations, so it fails loudly instead of returning an empty set.
var ErrAlreadyDrained = errors.New("scheduled legacy replacements already drained")

// Scheduled accumulates replacement descriptor ids during admission and is
// consumed exactly once by the late gathering pass.
type Scheduled struct {
	mu      sync.Mutex
	ids     []string
	seen    map[string]struct{}
	drained bool
}

func (s *Scheduled) add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, id := range ids {
		if _, dup := s.seen[id]; dup {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Drain returns all scheduled ids and clears the set. Draining an empty set
// is a valid no-op; draining a second time is an error.
func (s *Scheduled) Drain() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return nil, ErrAlreadyDrained
	}
	s.drained = true
	out := s.ids
	s.ids = nil
	s.seen = nil
	return out, nil
}

func (s *Scheduled) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
