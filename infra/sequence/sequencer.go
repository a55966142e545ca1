// Package sequence provides the strictly monotonic counter behind the
// venue's market-data sequence numbers.
package sequence

import "sync/atomic"

// Sequencer generates strictly increasing sequence IDs. It is safe for
// concurrent use, though the market-data publisher is its only writer.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
