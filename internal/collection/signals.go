package collection

import (
	"sync"

	"codeberg.org/mutker/trapbridge/internal/trapconfig"
)

// SignalSource reports current device conditions.
type SignalSource interface {
	Signals() trapconfig.Signals
}

// StaticSignals is a SignalSource whose values are set by the host.
type StaticSignals struct {
	mu      sync.RWMutex
	signals trapconfig.Signals
}

func NewStaticSignals(s trapconfig.Signals) *StaticSignals {
	return &StaticSignals{signals: s}
}

func (s *StaticSignals) Signals() trapconfig.Signals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signals
}

func (s *StaticSignals) Set(signals trapconfig.Signals) {
	s.mu.Lock()
	s.signals = signals
	s.mu.Unlock()
}
