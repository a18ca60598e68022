package permission

import (
	"sync"

	"codeberg.org/mutker/trapbridge/internal/collector"
)

// Static is a Platform backed by an in-memory grant set. Requesting a
// permission grants it. Hosts without a native permission subsystem use it.
type Static struct {
	mu      sync.RWMutex
	granted map[collector.Type]bool
}

func NewStatic(granted ...collector.Type) *Static {
	s := &Static{granted: make(map[collector.Type]bool, len(granted))}
	for _, t := range granted {
		s.granted[t] = true
	}
	return s
}

func (s *Static) CheckPermission(t collector.Type) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[t]
}

func (s *Static) RequestPermission(t collector.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted[t] = true
}

func (s *Static) Revoke(t collector.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.granted, t)
}
