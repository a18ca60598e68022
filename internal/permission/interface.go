package permission

import "codeberg.org/mutker/trapbridge/internal/collector"

// Platform is the host's native permission subsystem. It is only consulted
// for collector types that require a grant.
type Platform interface {
	CheckPermission(t collector.Type) bool

	// RequestPermission runs the platform flow (typically a user prompt) and
	// returns once it has finished, whatever the outcome.
	RequestPermission(t collector.Type)
}
