package collector

import "codeberg.org/mutker/trapbridge/internal/errors"

const (
	ErrUnknownCollector = errors.ErrUnknownCollector
	ErrInstanceFailed   = errors.ErrorCode("collector_instance_failed")
)

func unknownCollector(tag string) errors.Error {
	return errors.New().WithMessage(ErrUnknownCollector, "Not supported collector "+tag)
}
