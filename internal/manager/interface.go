package manager

import (
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
)

// Manager is the external collection manager: it owns sensor registration,
// data queueing and reporting. The facade holds at most one.
type Manager interface {
	// Run activates the collectors of whichever profile is currently active.
	Run() error
	// Halt stops every active collector. Calling it when halted is harmless.
	Halt()
	AddCustomEvent(v value.Value)
	AddCustomMetadata(key string, v value.Value)
	RemoveCustomMetadata(key string)
	// Close releases the manager for good.
	Close() error
}

// Factory builds a manager bound to a resolved configuration. The manager
// must come up with collection disabled.
type Factory func(cfg trapconfig.Config) (Manager, error)

// Observer is notified after every state transition. It runs with the
// facade locked and must not call back into it.
type Observer func(from, to State)
