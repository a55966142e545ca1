package orderbook

import "fmt"

// WalkBids visits bid levels from best (highest) to worst until fn returns
// false.
func (b *OrderBook) WalkBids(fn func(*PriceLevel) bool) { walkSide(b.bestBid, fn) }

// WalkAsks visits ask levels from best (lowest) to worst until fn returns
// false.
func (b *OrderBook) WalkAsks(fn func(*PriceLevel) bool) { walkSide(b.bestAsk, fn) }

func walkSide(head *PriceLevel, fn func(*PriceLevel) bool) {
	if head == nil {
		return
	}
	lvl := head
	for {
		if !fn(lvl) {
			return
		}
		lvl = lvl.next
		if lvl == head {
			return
		}
	}
}

// Validate checks every structural invariant the book maintains: each side's
// level ring is circular, strictly price-ordered and alias-free; each FIFO
// ring is circular with positive quantities and increasing priorities; and
// the client index and price table agree exactly with the linked structures.
// It exists for tests and post-mortem debugging, not the hot path.
func (b *OrderBook) Validate() error {
	liveOrders := 0
	for _, side := range [2]Side{Bid, Ask} {
		head := *b.sideHead(side)
		if head == nil {
			continue
		}
		seen := make(map[Price]bool)
		lvl := head
		for {
			if lvl.Side != side {
				return fmt.Errorf("level %d on %s ring has side %s", lvl.Price, side, lvl.Side)
			}
			if seen[lvl.Price] {
				return fmt.Errorf("price %d appears twice on %s ring", lvl.Price, side)
			}
			seen[lvl.Price] = true
			if b.priceTable[b.priceIndex(lvl.Price)] != lvl {
				return fmt.Errorf("price table does not map %d to its live level", lvl.Price)
			}
			if lvl.next.prev != lvl || lvl.prev.next != lvl {
				return fmt.Errorf("level ring links broken at price %d", lvl.Price)
			}
			if lvl.next != head && !lvl.next.moreAggressive(lvl.Price) {
				return fmt.Errorf("%s ring not strictly price-ordered at %d -> %d", side, lvl.Price, lvl.next.Price)
			}

			n, err := validateFIFO(lvl)
			if err != nil {
				return err
			}
			liveOrders += n

			lvl = lvl.next
			if lvl == head {
				break
			}
		}
	}

	if liveOrders != len(b.byClient) {
		return fmt.Errorf("client index holds %d orders, rings hold %d", len(b.byClient), liveOrders)
	}
	for k, o := range b.byClient {
		if o.ClientID != k.client || o.ClientOrderID != k.order {
			return fmt.Errorf("client index entry (%d,%d) references mismatched order", k.client, k.order)
		}
	}
	return nil
}

func validateFIFO(lvl *PriceLevel) (int, error) {
	if lvl.head == nil {
		return 0, fmt.Errorf("level %d exists with no orders", lvl.Price)
	}
	n := 0
	o := lvl.head
	var lastPriority uint64
	for {
		if o.Price != lvl.Price || o.Side != lvl.Side {
			return 0, fmt.Errorf("order %d misfiled at level %d", o.VenueOrderID, lvl.Price)
		}
		if o.Qty <= 0 {
			return 0, fmt.Errorf("resting order %d has non-positive qty %d", o.VenueOrderID, o.Qty)
		}
		if o.next.prev != o || o.prev.next != o {
			return 0, fmt.Errorf("FIFO ring links broken at order %d", o.VenueOrderID)
		}
		if n > 0 && o.Priority <= lastPriority {
			return 0, fmt.Errorf("FIFO priorities not increasing at order %d", o.VenueOrderID)
		}
		lastPriority = o.Priority
		n++
		o = o.next
		if o == lvl.head {
			return n, nil
		}
	}
}
