package collection

import "codeberg.org/mutker/trapbridge/internal/errors"

const (
	ErrCollectorStart = errors.ErrorCode("collection_collector_start_failed")
	ErrCollectorStop  = errors.ErrorCode("collection_collector_stop_failed")
	ErrManagerClosed  = errors.ErrorCode("collection_manager_closed")
)
