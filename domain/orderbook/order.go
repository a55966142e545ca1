package orderbook

// Identifier and scalar types shared across the engine. Prices are integer
// ticks; quantities are whole units.
type (
	InstrumentID uint32
	ClientID     uint32
	OrderID      uint64
	Price        int64
	Qty          int64
)

type Side int8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is a resting order and, through its prev/next fields, a node in the
// circular FIFO ring of its price level. Orders are pool slots: they are
// valid only between acquisition in Add and release on full fill or cancel,
// and belong to at most one ring at a time.
type Order struct {
	Instrument    InstrumentID
	ClientID      ClientID
	ClientOrderID OrderID
	VenueOrderID  OrderID
	Side          Side
	Price         Price
	Qty           Qty // remaining, strictly positive while resting
	Priority      uint64

	prev *Order
	next *Order
}
