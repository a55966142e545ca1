package orderbook

// PriceLevel aggregates the orders resting at one (side, price). Its orders
// form a circular FIFO ring headed by head (oldest first); the level itself
// is a node in its side's circular ring of price levels, ordered best to
// worst from the book's bestBid/bestAsk head. A level exists if and only if
// at least one order rests at its price.
type PriceLevel struct {
	Side  Side
	Price Price

	head *Order

	prev *PriceLevel
	next *PriceLevel
}

// Head returns the oldest resting order at this level.
func (l *PriceLevel) Head() *Order { return l.head }

// ForEachOrder visits the level's orders in FIFO order until fn returns
// false.
func (l *PriceLevel) ForEachOrder(fn func(*Order) bool) {
	if l.head == nil {
		return
	}
	o := l.head
	for {
		if !fn(o) {
			return
		}
		o = o.next
		if o == l.head {
			return
		}
	}
}

// TotalQty sums the remaining quantity resting at this level.
func (l *PriceLevel) TotalQty() Qty {
	var total Qty
	l.ForEachOrder(func(o *Order) bool {
		total += o.Qty
		return true
	})
	return total
}

// append links o at the tail of the FIFO ring.
func (l *PriceLevel) append(o *Order) {
	tail := l.head.prev
	tail.next = o
	o.prev = tail
	o.next = l.head
	l.head.prev = o
}

// unlink removes o from the FIFO ring. The caller has already checked that
// o is not the sole occupant.
func (l *PriceLevel) unlink(o *Order) {
	o.prev.next = o.next
	o.next.prev = o.prev
	if l.head == o {
		l.head = o.next
	}
	o.prev, o.next = nil, nil
}

// moreAggressive reports whether price p beats the level's price on this
// side: higher bids and lower asks match first.
func (l *PriceLevel) moreAggressive(p Price) bool {
	if l.Side == Bid {
		return p > l.Price
	}
	return p < l.Price
}
