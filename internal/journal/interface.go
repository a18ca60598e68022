package journal

import (
	"context"
	"time"

	"codeberg.org/mutker/trapbridge/internal/value"
)

// Journal records what was injected into the collection stream
type Journal interface {
	Record(ctx context.Context, entry *Entry) error
	Entries(ctx context.Context, kind Kind) ([]Entry, error)
	Close() error
}

// Repository defines the interface for journal storage
type Repository interface {
	Record(entry *Entry) error
	Entries(ctx context.Context, kind Kind) ([]Entry, error)
	Close() error
}

type Kind string

const (
	KindEvent          Kind = "event"
	KindMetadataSet    Kind = "metadata_set"
	KindMetadataRemove Kind = "metadata_remove"
	KindLifecycle      Kind = "lifecycle"

	// KindAny matches every kind in Entries.
	KindAny Kind = ""
)

func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindMetadataSet, KindMetadataRemove, KindLifecycle:
		return true
	default:
		return false
	}
}

type Entry struct {
	Timestamp time.Time
	Kind      Kind
	SessionID string
	Key       string
	Value     value.Value
}
