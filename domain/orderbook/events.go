package orderbook

// ResponseType classifies the events sent back to the owning client.
type ResponseType uint8

const (
	ResponseAccepted ResponseType = iota + 1
	ResponseFilled
	ResponseCanceled
	ResponseCancelRejected
	ResponseRejected
)

func (t ResponseType) String() string {
	switch t {
	case ResponseAccepted:
		return "accepted"
	case ResponseFilled:
		return "filled"
	case ResponseCanceled:
		return "canceled"
	case ResponseCancelRejected:
		return "cancel-rejected"
	case ResponseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ClientResponse is the book's answer to one client about one order. It is
// a value type: ownership transfers to the outbound queue slot it is
// written into and the book retains nothing.
type ClientResponse struct {
	Type          ResponseType
	ClientID      ClientID
	Instrument    InstrumentID
	ClientOrderID OrderID
	VenueOrderID  OrderID
	Side          Side
	Price         Price
	ExecQty       Qty
	LeavesQty     Qty
}

// UpdateType classifies public market-data updates.
type UpdateType uint8

const (
	UpdateAdd UpdateType = iota + 1
	UpdateCancel
	UpdateTrade
)

func (t UpdateType) String() string {
	switch t {
	case UpdateAdd:
		return "add"
	case UpdateCancel:
		return "cancel"
	case UpdateTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// MarketUpdate is one anonymized public book event. Seq is zero when the
// book emits it; the market-data publisher stamps the venue-wide sequence
// number at publication time.
type MarketUpdate struct {
	Type         UpdateType
	Seq          uint64
	Instrument   InstrumentID
	VenueOrderID OrderID
	Side         Side
	Price        Price
	Qty          Qty
	Priority     uint64
}

// EventListener receives every event the book emits, in emission order.
// The engine implements it by writing into the outbound queues; the book
// itself never touches a transport.
type EventListener interface {
	OnClientResponse(ClientResponse)
	OnMarketUpdate(MarketUpdate)
}
