package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njord/domain/orderbook"
	"njord/infra/spsc"
	"njord/protocol"
	"njord/service"
)

// Full pipeline over real TCP: session -> sequencer -> engine -> book ->
// response dispatch back down the same connection.
func TestGatewayEndToEnd(t *testing.T) {
	engineIn := spsc.New[protocol.ClientRequest](1 << 10)
	responses := spsc.New[orderbook.ClientResponse](1 << 10)
	updates := spsc.New[orderbook.MarketUpdate](1 << 10)

	eng := service.New(
		[]orderbook.Config{{Instrument: 1, MaxOrders: 256, MaxPriceLevels: 1 << 10}},
		engineIn, responses, updates, time.Millisecond, zerolog.Nop(),
	)
	srv := New(Config{
		ListenAddr:      "127.0.0.1:0",
		SessionQueueCap: 64,
		CycleBackoff:    time.Millisecond,
	}, engineIn, responses, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	engDone := make(chan error, 1)
	srvDone := make(chan error, 1)
	go func() { engDone <- eng.Run(ctx) }()
	go func() { srvDone <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		for _, done := range []chan error{engDone, srvDone} {
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Error("component did not stop")
			}
		}
	})

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	write := func(req protocol.ClientRequest) {
		require.NoError(t, protocol.WriteFrame(conn, protocol.AppendRequest(nil, &req)))
	}
	read := func() orderbook.ClientResponse {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		payload, err := protocol.ReadFrame(conn, nil)
		require.NoError(t, err)
		var resp orderbook.ClientResponse
		require.NoError(t, protocol.DecodeResponse(payload, &resp))
		return resp
	}

	write(protocol.ClientRequest{
		Type: protocol.RequestNew, Seq: 1, ClientID: 9, Instrument: 1,
		ClientOrderID: 1, Side: orderbook.Bid, Price: 100, Qty: 10,
	})
	resp := read()
	assert.Equal(t, orderbook.ResponseAccepted, resp.Type)
	assert.EqualValues(t, 9, resp.ClientID)
	assert.EqualValues(t, 10, resp.LeavesQty)

	write(protocol.ClientRequest{
		Type: protocol.RequestCancel, Seq: 2, ClientID: 9, Instrument: 1,
		ClientOrderID: 1,
	})
	resp = read()
	assert.Equal(t, orderbook.ResponseCanceled, resp.Type)
	assert.EqualValues(t, 10, resp.LeavesQty)

	// Out-of-sequence requests die at the boundary: no response, book
	// untouched by the later valid cancel reject.
	write(protocol.ClientRequest{
		Type: protocol.RequestNew, Seq: 9, ClientID: 9, Instrument: 1,
		ClientOrderID: 2, Side: orderbook.Bid, Price: 100, Qty: 1,
	})
	write(protocol.ClientRequest{
		Type: protocol.RequestCancel, Seq: 3, ClientID: 9, Instrument: 1,
		ClientOrderID: 2,
	})
	resp = read()
	assert.Equal(t, orderbook.ResponseCancelRejected, resp.Type)
}
