package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njord/domain/orderbook"
)

func TestRequestRoundTrip(t *testing.T) {
	in := ClientRequest{
		Type:          RequestNew,
		Seq:           17,
		ClientID:      3,
		Instrument:    9,
		ClientOrderID: 12345,
		Side:          orderbook.Ask,
		Price:         -250, // zigzag must survive negative ticks
		Qty:           40,
	}
	buf := AppendRequest(nil, &in)

	var out ClientRequest
	require.NoError(t, DecodeRequest(buf, &out))
	assert.Equal(t, in, out)
}

func TestResponseRoundTrip(t *testing.T) {
	in := orderbook.ClientResponse{
		Type:          orderbook.ResponseFilled,
		ClientID:      8,
		Instrument:    2,
		ClientOrderID: 77,
		VenueOrderID:  1001,
		Side:          orderbook.Bid,
		Price:         995,
		ExecQty:       5,
		LeavesQty:     7,
	}
	buf := AppendResponse(nil, &in)

	var out orderbook.ClientResponse
	require.NoError(t, DecodeResponse(buf, &out))
	assert.Equal(t, in, out)
}

func TestUpdateRoundTripThroughFrame(t *testing.T) {
	in := orderbook.MarketUpdate{
		Type:         orderbook.UpdateTrade,
		Seq:          42,
		Instrument:   1,
		VenueOrderID: 31,
		Side:         orderbook.Ask,
		Price:        101,
		Qty:          6,
		Priority:     2,
	}
	var stream bytes.Buffer
	require.NoError(t, WriteFrame(&stream, AppendUpdate(nil, &in)))

	payload, err := ReadFrame(&stream, nil)
	require.NoError(t, err)

	var out orderbook.MarketUpdate
	require.NoError(t, DecodeUpdate(payload, &out))
	assert.Equal(t, in, out)
}

func TestDecodeRejectsTruncatedMessage(t *testing.T) {
	buf := AppendRequest(nil, &ClientRequest{Type: RequestCancel, Seq: 9, ClientOrderID: 4})
	var out ClientRequest
	assert.ErrorIs(t, DecodeRequest(buf[:len(buf)-1], &out), ErrMalformed)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	buf := AppendRequest(nil, &ClientRequest{Type: RequestNew, Seq: 1, Qty: 3})
	// A future field number must not break old decoders.
	buf = appendUint(buf, 15, 99)

	var out ClientRequest
	require.NoError(t, DecodeRequest(buf, &out))
	assert.Equal(t, uint64(1), out.Seq)
	assert.Equal(t, orderbook.Qty(3), out.Qty)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	stream := bytes.NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadFrame(stream, nil)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
