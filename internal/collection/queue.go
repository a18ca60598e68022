package collection

import (
	"sync"

	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/telemetry"
)

// MaxQueueSize caps the number of frames a Ring holds, whatever queue size
// was configured.
const MaxQueueSize = 1 << 20

// Ring is a bounded circular frame queue. Storage grows with use up to the
// capacity. When full, the oldest frame is overwritten.
type Ring struct {
	mu   sync.Mutex
	buf  []collector.Frame
	size int
	head int
}

// NewRing returns a queue holding at most size frames. Sizes below one are
// raised to one and sizes above MaxQueueSize are lowered to it.
func NewRing(size int) *Ring {
	return &Ring{size: clampQueueSize(size)}
}

func clampQueueSize(size int) int {
	switch {
	case size < 1:
		return 1
	case size > MaxQueueSize:
		return MaxQueueSize
	}
	return size
}

// Enqueue always accepts the frame.
func (r *Ring) Enqueue(frame collector.Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) < r.size {
		r.buf = append(r.buf, frame)
		return true
	}

	r.buf[r.head] = frame
	r.head = (r.head + 1) % r.size
	telemetry.ObserveQueueOverwrite()
	return true
}

// Drain removes and returns all queued frames, oldest first.
func (r *Ring) Drain() []collector.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]collector.Frame, len(r.buf))
	n := copy(out, r.buf[r.head:])
	copy(out[n:], r.buf[:r.head])

	clear(r.buf)
	r.buf = r.buf[:0]
	r.head = 0
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

func (r *Ring) Cap() int {
	return r.size
}
