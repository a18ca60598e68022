package manager

import "codeberg.org/mutker/trapbridge/internal/errors"

const (
	ErrNotConfigured = errors.ErrNotConfigured
	ErrInitFailed    = errors.ErrInitFailed
	ErrStartFailed   = errors.ErrStartFailed
	ErrCloseFailed   = errors.ErrShutdownFailed
)

func notConfigured() errors.Error {
	return errors.New().New(ErrNotConfigured)
}
