package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njord/infra/spsc"
	"njord/protocol"
)

func drainIDs(t *testing.T, q *spsc.Queue[protocol.ClientRequest]) []uint64 {
	t.Helper()
	var ids []uint64
	for {
		req := q.ReadSlot()
		if req == nil {
			return ids
		}
		ids = append(ids, uint64(req.ClientOrderID))
		q.CommitRead()
	}
}

// A@5, B@2, C@2, D@9 buffered in that order must publish as [B, C, A, D]:
// timestamp order, ties by buffering order.
func TestSequenceAndPublishOrdersByTimestamp(t *testing.T) {
	out := spsc.New[protocol.ClientRequest](16)
	seq := NewFIFOSequencer(out)

	seq.AddRequest(5, protocol.ClientRequest{ClientOrderID: 1}) // A
	seq.AddRequest(2, protocol.ClientRequest{ClientOrderID: 2}) // B
	seq.AddRequest(2, protocol.ClientRequest{ClientOrderID: 3}) // C
	seq.AddRequest(9, protocol.ClientRequest{ClientOrderID: 4}) // D

	require.Equal(t, 4, seq.SequenceAndPublish())
	assert.Equal(t, []uint64{2, 3, 1, 4}, drainIDs(t, out))
}

func TestNoReorderingAcrossCycles(t *testing.T) {
	out := spsc.New[protocol.ClientRequest](16)
	seq := NewFIFOSequencer(out)

	// Later cycle carries an earlier timestamp; it must still publish
	// after everything from the first cycle.
	seq.AddRequest(100, protocol.ClientRequest{ClientOrderID: 1})
	require.Equal(t, 1, seq.SequenceAndPublish())

	seq.AddRequest(50, protocol.ClientRequest{ClientOrderID: 2})
	require.Equal(t, 1, seq.SequenceAndPublish())

	assert.Equal(t, []uint64{1, 2}, drainIDs(t, out))
}

func TestPublishClearsBuffer(t *testing.T) {
	out := spsc.New[protocol.ClientRequest](16)
	seq := NewFIFOSequencer(out)

	seq.AddRequest(1, protocol.ClientRequest{ClientOrderID: 1})
	require.Equal(t, 1, seq.SequenceAndPublish())
	assert.Equal(t, 0, seq.SequenceAndPublish())
	assert.Len(t, drainIDs(t, out), 1)
}

func TestRecvTimeStampedOntoRequest(t *testing.T) {
	out := spsc.New[protocol.ClientRequest](4)
	seq := NewFIFOSequencer(out)

	seq.AddRequest(77, protocol.ClientRequest{ClientOrderID: 1})
	seq.SequenceAndPublish()

	req := out.ReadSlot()
	require.NotNil(t, req)
	assert.Equal(t, int64(77), req.RecvNanos)
}
