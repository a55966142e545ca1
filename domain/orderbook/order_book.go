package orderbook

import (
	"fmt"

	"njord/infra/memory"
)

// Config sizes one book's arenas. Capacities are worst-case bounds: running
// out of either pool at runtime is a sizing defect and panics.
type Config struct {
	Instrument InstrumentID
	// MaxOrders bounds the live resting order count.
	MaxOrders int
	// MaxPriceLevels bounds live price levels per book and sizes the
	// price-indexed lookup table. Must be a power of two and must exceed
	// the instrument's tradable price band so that distinct live prices
	// never collide modulo the table size.
	MaxPriceLevels int
}

type clientKey struct {
	client ClientID
	order  OrderID
}

// OrderBook is the per-instrument limit order book. It is owned by exactly
// one goroutine: every mutating operation assumes exclusive access and
// completes atomically with respect to the book's invariants.
type OrderBook struct {
	instrument InstrumentID
	listener   EventListener

	orders *memory.Pool[Order]
	levels *memory.Pool[PriceLevel]

	// priceTable indexes live levels by price & priceMask. Both sides
	// share it; a bid and an ask can never rest at the same price.
	priceTable []*PriceLevel
	priceMask  uint64

	bestBid *PriceLevel
	bestAsk *PriceLevel

	byClient map[clientKey]*Order

	nextVenueID OrderID
}

// New creates an empty book. Events flow to listener synchronously from the
// mutating operations, in emission order.
func New(cfg Config, listener EventListener) *OrderBook {
	if cfg.MaxOrders <= 0 || cfg.MaxPriceLevels <= 0 {
		panic("orderbook: capacities must be positive")
	}
	if cfg.MaxPriceLevels&(cfg.MaxPriceLevels-1) != 0 {
		panic("orderbook: MaxPriceLevels must be a power of two")
	}
	return &OrderBook{
		instrument:  cfg.Instrument,
		listener:    listener,
		orders:      memory.NewPool[Order](cfg.MaxOrders),
		levels:      memory.NewPool[PriceLevel](cfg.MaxPriceLevels),
		priceTable:  make([]*PriceLevel, cfg.MaxPriceLevels),
		priceMask:   uint64(cfg.MaxPriceLevels - 1),
		byClient:    make(map[clientKey]*Order, cfg.MaxOrders),
		nextVenueID: 1,
	}
}

// Instrument returns the book's instrument id.
func (b *OrderBook) Instrument() InstrumentID { return b.instrument }

// BestBid returns the most aggressive bid level, or nil.
func (b *OrderBook) BestBid() *PriceLevel { return b.bestBid }

// BestAsk returns the most aggressive ask level, or nil.
func (b *OrderBook) BestAsk() *PriceLevel { return b.bestAsk }

// Add processes a new order: it matches against the opposite side in
// price-time priority, then rests any residual quantity at (side, price).
// Fill events go to both parties of each match; an accept is emitted for
// the residual portion only.
func (b *OrderBook) Add(clientID ClientID, clientOrderID OrderID, side Side, price Price, qty Qty) {
	key := clientKey{clientID, clientOrderID}
	if _, dup := b.byClient[key]; dup || qty <= 0 {
		b.listener.OnClientResponse(ClientResponse{
			Type:          ResponseRejected,
			ClientID:      clientID,
			Instrument:    b.instrument,
			ClientOrderID: clientOrderID,
			Side:          side,
			Price:         price,
			LeavesQty:     qty,
		})
		return
	}

	venueID := b.nextVenueID
	b.nextVenueID++

	leaves := b.matchIncoming(clientID, clientOrderID, venueID, side, price, qty)
	if leaves == 0 {
		return
	}

	priority := b.nextPriority(price)
	o := b.orders.MustAcquire()
	*o = Order{
		Instrument:    b.instrument,
		ClientID:      clientID,
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueID,
		Side:          side,
		Price:         price,
		Qty:           leaves,
		Priority:      priority,
	}
	b.insertOrder(o)
	b.byClient[key] = o

	b.listener.OnClientResponse(ClientResponse{
		Type:          ResponseAccepted,
		ClientID:      clientID,
		Instrument:    b.instrument,
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueID,
		Side:          side,
		Price:         price,
		ExecQty:       qty - leaves,
		LeavesQty:     leaves,
	})
	b.listener.OnMarketUpdate(MarketUpdate{
		Type:         UpdateAdd,
		Instrument:   b.instrument,
		VenueOrderID: venueID,
		Side:         side,
		Price:        price,
		Qty:          leaves,
		Priority:     priority,
	})
}

// Cancel removes the order identified by (clientID, clientOrderID). An
// unknown pair yields a cancel-reject and leaves the book untouched.
func (b *OrderBook) Cancel(clientID ClientID, clientOrderID OrderID) {
	key := clientKey{clientID, clientOrderID}
	o, ok := b.byClient[key]
	if !ok {
		b.listener.OnClientResponse(ClientResponse{
			Type:          ResponseCancelRejected,
			ClientID:      clientID,
			Instrument:    b.instrument,
			ClientOrderID: clientOrderID,
		})
		return
	}

	// Copy before removal: removeOrder releases the slot back to the pool.
	removed := *o
	b.removeOrder(o)

	b.listener.OnClientResponse(ClientResponse{
		Type:          ResponseCanceled,
		ClientID:      clientID,
		Instrument:    b.instrument,
		ClientOrderID: clientOrderID,
		VenueOrderID:  removed.VenueOrderID,
		Side:          removed.Side,
		Price:         removed.Price,
		LeavesQty:     removed.Qty,
	})
	b.listener.OnMarketUpdate(MarketUpdate{
		Type:         UpdateCancel,
		Instrument:   b.instrument,
		VenueOrderID: removed.VenueOrderID,
		Side:         removed.Side,
		Price:        removed.Price,
		Qty:          removed.Qty,
		Priority:     removed.Priority,
	})
}

// matchIncoming walks the opposite side from its best level while the price
// crosses, consuming resting orders in FIFO order. It returns the incoming
// order's unmatched quantity.
func (b *OrderBook) matchIncoming(clientID ClientID, clientOrderID, venueID OrderID, side Side, price Price, qty Qty) Qty {
	leaves := qty
	for leaves > 0 {
		var lvl *PriceLevel
		if side == Bid {
			lvl = b.bestAsk
			if lvl == nil || lvl.Price > price {
				break
			}
		} else {
			lvl = b.bestBid
			if lvl == nil || lvl.Price < price {
				break
			}
		}
		leaves = b.matchAgainst(lvl.head, clientID, clientOrderID, venueID, side, leaves)
	}
	return leaves
}

// matchAgainst fills the incoming order against one resting order, emitting
// fills to both parties and a public trade, and removes the resting order
// if it is fully consumed.
func (b *OrderBook) matchAgainst(resting *Order, clientID ClientID, clientOrderID, venueID OrderID, side Side, leaves Qty) Qty {
	fill := leaves
	if resting.Qty < fill {
		fill = resting.Qty
	}
	leaves -= fill
	resting.Qty -= fill

	b.listener.OnClientResponse(ClientResponse{
		Type:          ResponseFilled,
		ClientID:      clientID,
		Instrument:    b.instrument,
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueID,
		Side:          side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     leaves,
	})
	b.listener.OnClientResponse(ClientResponse{
		Type:          ResponseFilled,
		ClientID:      resting.ClientID,
		Instrument:    b.instrument,
		ClientOrderID: resting.ClientOrderID,
		VenueOrderID:  resting.VenueOrderID,
		Side:          resting.Side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     resting.Qty,
	})
	b.listener.OnMarketUpdate(MarketUpdate{
		Type:         UpdateTrade,
		Instrument:   b.instrument,
		VenueOrderID: resting.VenueOrderID,
		Side:         resting.Side,
		Price:        resting.Price,
		Qty:          fill,
		Priority:     resting.Priority,
	})

	if resting.Qty == 0 {
		removed := *resting
		b.removeOrder(resting)
		b.listener.OnMarketUpdate(MarketUpdate{
			Type:         UpdateCancel,
			Instrument:   b.instrument,
			VenueOrderID: removed.VenueOrderID,
			Side:         removed.Side,
			Price:        removed.Price,
			Qty:          0,
			Priority:     removed.Priority,
		})
	}
	return leaves
}

func (b *OrderBook) priceIndex(price Price) uint64 {
	return uint64(price) & b.priceMask
}

func (b *OrderBook) levelAt(price Price) *PriceLevel {
	lvl := b.priceTable[b.priceIndex(price)]
	if lvl != nil && lvl.Price != price {
		panic(fmt.Sprintf("orderbook: price table collision: %d vs %d (table undersized)", lvl.Price, price))
	}
	return lvl
}

func (b *OrderBook) nextPriority(price Price) uint64 {
	lvl := b.levelAt(price)
	if lvl == nil {
		return 1
	}
	return lvl.head.prev.Priority + 1
}

func (b *OrderBook) sideHead(side Side) **PriceLevel {
	if side == Bid {
		return &b.bestBid
	}
	return &b.bestAsk
}

// insertOrder links o at the tail of its price level's FIFO ring, creating
// and splicing in the level when o is the first order at its price.
func (b *OrderBook) insertOrder(o *Order) {
	lvl := b.levelAt(o.Price)
	if lvl == nil {
		o.prev, o.next = o, o
		lvl = b.levels.MustAcquire()
		*lvl = PriceLevel{Side: o.Side, Price: o.Price, head: o}
		b.insertLevel(lvl)
		return
	}
	lvl.append(o)
}

// insertLevel splices lvl into its side's circular price-ordered ring,
// walking from the head (best) to the first worse level. The head pointer
// moves only when lvl beats the current best.
func (b *OrderBook) insertLevel(lvl *PriceLevel) {
	b.priceTable[b.priceIndex(lvl.Price)] = lvl

	head := b.sideHead(lvl.Side)
	if *head == nil {
		lvl.prev, lvl.next = lvl, lvl
		*head = lvl
		return
	}

	cur := *head
	for {
		if cur.moreAggressive(lvl.Price) {
			// lvl beats cur: insert before it.
			lvl.prev = cur.prev
			lvl.next = cur
			cur.prev.next = lvl
			cur.prev = lvl
			if cur == *head {
				*head = lvl
			}
			return
		}
		cur = cur.next
		if cur == *head {
			// Worst price on the side: append at the tail.
			tail := (*head).prev
			lvl.prev = tail
			lvl.next = *head
			tail.next = lvl
			(*head).prev = lvl
			return
		}
	}
}

// removeLevel unsplices an emptied level and releases it.
func (b *OrderBook) removeLevel(lvl *PriceLevel) {
	head := b.sideHead(lvl.Side)
	if lvl.next == lvl {
		*head = nil
	} else {
		lvl.prev.next = lvl.next
		lvl.next.prev = lvl.prev
		if lvl == *head {
			*head = lvl.next
		}
	}
	b.priceTable[b.priceIndex(lvl.Price)] = nil
	b.levels.Release(lvl)
}

// removeOrder unlinks o from its FIFO ring, removing the level when o was
// its sole occupant, clears the client index entry, and releases the slot.
func (b *OrderBook) removeOrder(o *Order) {
	delete(b.byClient, clientKey{o.ClientID, o.ClientOrderID})
	lvl := b.levelAt(o.Price)
	if o.next == o {
		b.removeLevel(lvl)
	} else {
		lvl.unlink(o)
	}
	b.orders.Release(o)
}
