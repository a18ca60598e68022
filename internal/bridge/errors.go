package bridge

import "codeberg.org/mutker/trapbridge/internal/errors"

const (
	ErrCallValidation   = errors.ErrCallValidation
	ErrUnknownCollector = errors.ErrUnknownCollector
	ErrNotConfigured    = errors.ErrNotConfigured
	ErrNotImplemented   = errors.ErrNotImplemented
	ErrDecodePayload    = errors.ErrorCode("bridge_decode_payload_failed")
)

// Rejection is the host-facing form of a failed call.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RejectionOf converts a call error for the host. Errors without a domain
// code are reported as internal errors.
func RejectionOf(err error) Rejection {
	return Rejection{
		Code:    string(errors.CodeOf(err)),
		Message: errors.MessageOf(err),
	}
}

func missingProperty(key string) errors.Error {
	return errors.New().WithMessage(ErrCallValidation, "Required property '"+key+"' is not set")
}
