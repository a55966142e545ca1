// Package spsc implements the single-producer/single-consumer ring buffer
// used for every inter-goroutine hand-off in the pipeline. One goroutine
// owns the write side of a queue, exactly one other goroutine owns the read
// side; the only coordination is a pair of monotonic cursors.
package spsc

import "sync/atomic"

// Queue is a fixed-capacity SPSC ring over in-place slots.
//
// The producer obtains the next free slot with WriteSlot, fills it, and
// publishes it with CommitWrite; the consumer mirrors that with ReadSlot
// and CommitRead. The atomic store in CommitWrite orders all slot writes
// before the cursor bump, so the consumer never observes a half-written
// element. Cursors only ever increase; slot indices are cursor & mask.
//
// The cursor fields are padded apart so the producer and consumer do not
// share a cache line.
type Queue[T any] struct {
	write atomic.Uint64
	_     [56]byte
	read  atomic.Uint64
	_     [56]byte
	buf   []T
	mask  uint64
}

// New creates a queue with the given capacity, which must be a power of two.
func New[T any](capacity uint64) *Queue[T] {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		panic("spsc: capacity must be a power of two")
	}
	return &Queue[T]{
		buf:  make([]T, capacity),
		mask: capacity - 1,
	}
}

// WriteSlot returns the next free slot for in-place construction, or nil
// when the queue already holds capacity unread elements. Callers treat nil
// as fatal: queues are sized past any realistic backlog, and overwriting
// would corrupt in-flight data. Producer side only.
func (q *Queue[T]) WriteSlot() *T {
	w := q.write.Load()
	if w-q.read.Load() == uint64(len(q.buf)) {
		return nil
	}
	return &q.buf[w&q.mask]
}

// CommitWrite publishes the slot last returned by WriteSlot.
func (q *Queue[T]) CommitWrite() {
	q.write.Store(q.write.Load() + 1)
}

// ReadSlot returns the oldest unread element, or nil when the queue is
// empty. The slot stays valid until CommitRead. Consumer side only.
func (q *Queue[T]) ReadSlot() *T {
	r := q.read.Load()
	if r == q.write.Load() {
		return nil
	}
	return &q.buf[r&q.mask]
}

// CommitRead retires the slot last returned by ReadSlot.
func (q *Queue[T]) CommitRead() {
	q.read.Store(q.read.Load() + 1)
}

// Size reports the number of unread elements. It is exact from either
// owning goroutine and a consistent approximation from anywhere else.
func (q *Queue[T]) Size() uint64 {
	return q.write.Load() - q.read.Load()
}

// Cap reports the fixed capacity.
func (q *Queue[T]) Cap() uint64 { return uint64(len(q.buf)) }
