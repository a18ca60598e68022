package collector

import (
	"context"
	"time"

	"codeberg.org/mutker/trapbridge/internal/value"
)

// Collector is an active data source bound to a queue.
type Collector interface {
	Type() Type
	Start(ctx context.Context) error
	Stop() error
}

// Queue receives frames produced by running collectors. Enqueue reports
// false when the frame was not accepted.
type Queue interface {
	Enqueue(frame Frame) bool
}

// Source builds platform collectors. It is supplied by the host; the
// registry never schedules anything itself.
type Source interface {
	NewCollector(t Type, q Queue) (Collector, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(t Type, q Queue) (Collector, error)

func (f SourceFunc) NewCollector(t Type, q Queue) (Collector, error) {
	return f(t, q)
}

// Frame is a single sample or event emitted by a collector.
type Frame struct {
	Type      Type
	Timestamp time.Time
	Payload   value.Value
}
