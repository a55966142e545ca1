package memory

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrExhausted is returned when a pool has no free slots left. Pools are
// sized for the worst-case live object count, so callers treat this as a
// configuration defect rather than a recoverable condition.
var ErrExhausted = errors.New("memory: pool exhausted")

// Pool is a typed slot arena with a fixed capacity decided at construction.
// All slots live in one preallocated backing array; Acquire and Release only
// move indices on an internal free list, so no call touches the heap after
// NewPool returns.
//
// A Pool is owned by exactly one goroutine. It is not safe for concurrent
// use; cross-goroutine hand-off of pooled objects is a caller bug.
type Pool[T any] struct {
	slots []T
	free  []uint32
}

// NewPool preallocates a pool of capacity slots.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic("memory: pool capacity must be positive")
	}
	p := &Pool[T]{
		slots: make([]T, capacity),
		free:  make([]uint32, capacity),
	}
	for i := range p.free {
		p.free[i] = uint32(capacity - 1 - i)
	}
	return p
}

// Acquire returns a zeroed slot, or ErrExhausted when none remain.
func (p *Pool[T]) Acquire() (*T, error) {
	n := len(p.free)
	if n == 0 {
		return nil, ErrExhausted
	}
	idx := p.free[n-1]
	p.free = p.free[:n-1]
	return &p.slots[idx], nil
}

// MustAcquire is Acquire for call sites where exhaustion is fatal.
func (p *Pool[T]) MustAcquire() *T {
	v, err := p.Acquire()
	if err != nil {
		panic(fmt.Sprintf("memory: %v (capacity %d)", err, len(p.slots)))
	}
	return v
}

// Release zeroes the slot and returns it to the free list. Releasing a
// pointer that did not come from this pool panics. Releasing the same slot
// twice without an intervening Acquire corrupts the free list; the pool
// does not detect it, same as dereferencing after release.
func (p *Pool[T]) Release(v *T) {
	idx := p.indexOf(v)
	var zero T
	p.slots[idx] = zero
	p.free = append(p.free, idx)
}

// Free reports how many slots are currently available.
func (p *Pool[T]) Free() int { return len(p.free) }

// Cap reports the fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.slots) }

func (p *Pool[T]) indexOf(v *T) uint32 {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.slots)))
	off := uintptr(unsafe.Pointer(v)) - base
	size := unsafe.Sizeof(p.slots[0])
	if off%size != 0 || off/size >= uintptr(len(p.slots)) {
		panic("memory: release of pointer not owned by this pool")
	}
	return uint32(off / size)
}
