// Package protocol defines the venue's wire records and their binary
// encoding. Messages are flat protobuf-wire structures (varint fields,
// zigzag for prices) encoded and decoded by hand with encoding/protowire;
// there is no generated code and no reflection on the hot path.
package protocol

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"njord/domain/orderbook"
)

var ErrMalformed = errors.New("protocol: malformed message")

// RequestType discriminates client request records.
type RequestType uint8

const (
	RequestNew RequestType = iota + 1
	RequestCancel
)

func (t RequestType) String() string {
	switch t {
	case RequestNew:
		return "new"
	case RequestCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ClientRequest is one decoded order instruction. Seq is the client's own
// monotonic request sequence, validated at the gateway boundary; RecvNanos
// is stamped at socket read time and never leaves the process.
type ClientRequest struct {
	Type          RequestType
	Seq           uint64
	ClientID      orderbook.ClientID
	Instrument    orderbook.InstrumentID
	ClientOrderID orderbook.OrderID
	Side          orderbook.Side
	Price         orderbook.Price
	Qty           orderbook.Qty

	RecvNanos int64
}

// Field numbers are wire contract; never renumber.
const (
	reqFieldType          = 1
	reqFieldSeq           = 2
	reqFieldClientID      = 3
	reqFieldInstrument    = 4
	reqFieldClientOrderID = 5
	reqFieldSide          = 6
	reqFieldPrice         = 7
	reqFieldQty           = 8
)

// AppendRequest encodes r after buf and returns the extended slice.
func AppendRequest(buf []byte, r *ClientRequest) []byte {
	buf = appendUint(buf, reqFieldType, uint64(r.Type))
	buf = appendUint(buf, reqFieldSeq, r.Seq)
	buf = appendUint(buf, reqFieldClientID, uint64(r.ClientID))
	buf = appendUint(buf, reqFieldInstrument, uint64(r.Instrument))
	buf = appendUint(buf, reqFieldClientOrderID, uint64(r.ClientOrderID))
	buf = appendUint(buf, reqFieldSide, uint64(r.Side))
	buf = appendSint(buf, reqFieldPrice, int64(r.Price))
	buf = appendSint(buf, reqFieldQty, int64(r.Qty))
	return buf
}

// DecodeRequest parses one encoded request.
func DecodeRequest(data []byte, r *ClientRequest) error {
	*r = ClientRequest{}
	return walkFields(data, func(num protowire.Number, v uint64) {
		switch num {
		case reqFieldType:
			r.Type = RequestType(v)
		case reqFieldSeq:
			r.Seq = v
		case reqFieldClientID:
			r.ClientID = orderbook.ClientID(v)
		case reqFieldInstrument:
			r.Instrument = orderbook.InstrumentID(v)
		case reqFieldClientOrderID:
			r.ClientOrderID = orderbook.OrderID(v)
		case reqFieldSide:
			r.Side = orderbook.Side(v)
		case reqFieldPrice:
			r.Price = orderbook.Price(protowire.DecodeZigZag(v))
		case reqFieldQty:
			r.Qty = orderbook.Qty(protowire.DecodeZigZag(v))
		}
	})
}

const (
	respFieldType          = 1
	respFieldClientID      = 2
	respFieldInstrument    = 3
	respFieldClientOrderID = 4
	respFieldVenueOrderID  = 5
	respFieldSide          = 6
	respFieldPrice         = 7
	respFieldExecQty       = 8
	respFieldLeavesQty     = 9
)

// AppendResponse encodes a client response after buf.
func AppendResponse(buf []byte, r *orderbook.ClientResponse) []byte {
	buf = appendUint(buf, respFieldType, uint64(r.Type))
	buf = appendUint(buf, respFieldClientID, uint64(r.ClientID))
	buf = appendUint(buf, respFieldInstrument, uint64(r.Instrument))
	buf = appendUint(buf, respFieldClientOrderID, uint64(r.ClientOrderID))
	buf = appendUint(buf, respFieldVenueOrderID, uint64(r.VenueOrderID))
	buf = appendUint(buf, respFieldSide, uint64(r.Side))
	buf = appendSint(buf, respFieldPrice, int64(r.Price))
	buf = appendSint(buf, respFieldExecQty, int64(r.ExecQty))
	buf = appendSint(buf, respFieldLeavesQty, int64(r.LeavesQty))
	return buf
}

// DecodeResponse parses one encoded client response.
func DecodeResponse(data []byte, r *orderbook.ClientResponse) error {
	*r = orderbook.ClientResponse{}
	return walkFields(data, func(num protowire.Number, v uint64) {
		switch num {
		case respFieldType:
			r.Type = orderbook.ResponseType(v)
		case respFieldClientID:
			r.ClientID = orderbook.ClientID(v)
		case respFieldInstrument:
			r.Instrument = orderbook.InstrumentID(v)
		case respFieldClientOrderID:
			r.ClientOrderID = orderbook.OrderID(v)
		case respFieldVenueOrderID:
			r.VenueOrderID = orderbook.OrderID(v)
		case respFieldSide:
			r.Side = orderbook.Side(v)
		case respFieldPrice:
			r.Price = orderbook.Price(protowire.DecodeZigZag(v))
		case respFieldExecQty:
			r.ExecQty = orderbook.Qty(protowire.DecodeZigZag(v))
		case respFieldLeavesQty:
			r.LeavesQty = orderbook.Qty(protowire.DecodeZigZag(v))
		}
	})
}

const (
	updFieldType         = 1
	updFieldSeq          = 2
	updFieldInstrument   = 3
	updFieldVenueOrderID = 4
	updFieldSide         = 5
	updFieldPrice        = 6
	updFieldQty          = 7
	updFieldPriority     = 8
)

// AppendUpdate encodes a market update after buf.
func AppendUpdate(buf []byte, u *orderbook.MarketUpdate) []byte {
	buf = appendUint(buf, updFieldType, uint64(u.Type))
	buf = appendUint(buf, updFieldSeq, u.Seq)
	buf = appendUint(buf, updFieldInstrument, uint64(u.Instrument))
	buf = appendUint(buf, updFieldVenueOrderID, uint64(u.VenueOrderID))
	buf = appendUint(buf, updFieldSide, uint64(u.Side))
	buf = appendSint(buf, updFieldPrice, int64(u.Price))
	buf = appendSint(buf, updFieldQty, int64(u.Qty))
	buf = appendUint(buf, updFieldPriority, u.Priority)
	return buf
}

// DecodeUpdate parses one encoded market update.
func DecodeUpdate(data []byte, u *orderbook.MarketUpdate) error {
	*u = orderbook.MarketUpdate{}
	return walkFields(data, func(num protowire.Number, v uint64) {
		switch num {
		case updFieldType:
			u.Type = orderbook.UpdateType(v)
		case updFieldSeq:
			u.Seq = v
		case updFieldInstrument:
			u.Instrument = orderbook.InstrumentID(v)
		case updFieldVenueOrderID:
			u.VenueOrderID = orderbook.OrderID(v)
		case updFieldSide:
			u.Side = orderbook.Side(v)
		case updFieldPrice:
			u.Price = orderbook.Price(protowire.DecodeZigZag(v))
		case updFieldQty:
			u.Qty = orderbook.Qty(protowire.DecodeZigZag(v))
		case updFieldPriority:
			u.Priority = v
		}
	})
}

func appendUint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendSint(buf []byte, num protowire.Number, v int64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, protowire.EncodeZigZag(v))
}

// walkFields iterates varint fields, skipping unknown field numbers and
// rejecting any non-varint wire type.
func walkFields(data []byte, set func(protowire.Number, uint64)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 || typ != protowire.VarintType {
			return ErrMalformed
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return ErrMalformed
		}
		data = data[n:]
		set(num, v)
	}
	return nil
}
