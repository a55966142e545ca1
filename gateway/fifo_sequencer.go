package gateway

import (
	"cmp"
	"slices"

	"njord/infra/spsc"
	"njord/protocol"
)

type pendingRequest struct {
	recvNanos int64
	req       protocol.ClientRequest
}

// FIFOSequencer converts request arrivals on many independent sessions into
// the one deterministic stream the engine consumes. Requests buffered
// during a service cycle are sorted by receive timestamp (ties keep their
// buffering order) and published in that order into the engine queue.
// Requests are never reordered across cycles.
//
// The sequencer is owned by the gateway cycle goroutine; it is not safe for
// concurrent use.
type FIFOSequencer struct {
	out     *spsc.Queue[protocol.ClientRequest]
	pending []pendingRequest
}

// NewFIFOSequencer creates a sequencer publishing into out.
func NewFIFOSequencer(out *spsc.Queue[protocol.ClientRequest]) *FIFOSequencer {
	return &FIFOSequencer{
		out:     out,
		pending: make([]pendingRequest, 0, out.Cap()),
	}
}

// AddRequest buffers one decoded request tagged with its receive time. The
// request is not visible to the engine until SequenceAndPublish.
func (s *FIFOSequencer) AddRequest(recvNanos int64, req protocol.ClientRequest) {
	req.RecvNanos = recvNanos
	s.pending = append(s.pending, pendingRequest{recvNanos: recvNanos, req: req})
}

// SequenceAndPublish orders the buffered requests and writes them into the
// engine queue, then clears the buffer. It returns the number published.
// The stable sort is the whole ordering contract: equal timestamps stay in
// arrival order.
func (s *FIFOSequencer) SequenceAndPublish() int {
	if len(s.pending) == 0 {
		return 0
	}
	slices.SortStableFunc(s.pending, func(a, b pendingRequest) int {
		return cmp.Compare(a.recvNanos, b.recvNanos)
	})
	for i := range s.pending {
		slot := s.out.WriteSlot()
		if slot == nil {
			panic("gateway: engine request queue overflow")
		}
		*slot = s.pending[i].req
		s.out.CommitWrite()
	}
	n := len(s.pending)
	s.pending = s.pending[:0]
	return n
}
