package gateway

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njord/domain/orderbook"
	"njord/protocol"
)

func startSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	sess := newSession(server, 64, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.readLoop()
	}()
	t.Cleanup(func() {
		client.Close()
		sess.close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("session read loop did not exit")
		}
	})
	return sess, client
}

func send(t *testing.T, conn net.Conn, req protocol.ClientRequest) {
	t.Helper()
	require.NoError(t, protocol.WriteFrame(conn, protocol.AppendRequest(nil, &req)))
}

func awaitInbound(t *testing.T, sess *Session, n int) []protocol.ClientRequest {
	t.Helper()
	out := make([]protocol.ClientRequest, 0, n)
	deadline := time.Now().Add(time.Second)
	for len(out) < n {
		if req := sess.inbound.ReadSlot(); req != nil {
			out = append(out, *req)
			sess.inbound.CommitRead()
			continue
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d inbound requests waiting for %d", len(out), n)
		}
		time.Sleep(time.Millisecond)
	}
	return out
}

func TestSessionAcceptsMonotonicSequence(t *testing.T) {
	sess, client := startSession(t)

	for seq := uint64(1); seq <= 3; seq++ {
		send(t, client, protocol.ClientRequest{
			Type: protocol.RequestNew, Seq: seq, ClientID: 5, Instrument: 1,
			ClientOrderID: orderbook.OrderID(seq), Qty: 1,
		})
	}

	reqs := awaitInbound(t, sess, 3)
	for i, req := range reqs {
		assert.Equal(t, uint64(i+1), req.Seq)
		assert.NotZero(t, req.RecvNanos, "receive time must be stamped")
	}

	id, ok := sess.boundClient()
	require.True(t, ok)
	assert.EqualValues(t, 5, id)
}

func TestSessionDropsDuplicateAndOutOfOrder(t *testing.T) {
	sess, client := startSession(t)

	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 1, ClientID: 5, Qty: 1})
	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 1, ClientID: 5, Qty: 2}) // duplicate
	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 5, ClientID: 5, Qty: 3}) // gap
	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 2, ClientID: 5, Qty: 4})

	reqs := awaitInbound(t, sess, 2)
	assert.Equal(t, uint64(1), reqs[0].Seq)
	assert.Equal(t, uint64(2), reqs[1].Seq)
}

func TestSessionDropsForeignClientID(t *testing.T) {
	sess, client := startSession(t)

	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 1, ClientID: 5, Qty: 1})
	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 2, ClientID: 6, Qty: 2})
	send(t, client, protocol.ClientRequest{Type: protocol.RequestNew, Seq: 2, ClientID: 5, Qty: 3})

	reqs := awaitInbound(t, sess, 2)
	assert.EqualValues(t, 5, reqs[0].ClientID)
	assert.EqualValues(t, 5, reqs[1].ClientID)
	assert.EqualValues(t, 3, reqs[1].Qty)
}
