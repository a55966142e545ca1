package marketdata

import (
	"sync"

	"github.com/tidwall/btree"

	"njord/domain/orderbook"
)

// Level is one aggregated depth entry.
type Level struct {
	Price orderbook.Price
	Qty   orderbook.Qty
}

type depthSide struct {
	levels *btree.Map[int64, int64]
}

func newDepthSide() depthSide {
	return depthSide{levels: btree.NewMap[int64, int64](16)}
}

func (s depthSide) adjust(price orderbook.Price, delta orderbook.Qty) {
	cur, _ := s.levels.Get(int64(price))
	cur += int64(delta)
	if cur <= 0 {
		s.levels.Delete(int64(price))
		return
	}
	s.levels.Set(int64(price), cur)
}

// Depth maintains aggregated per-instrument resting quantity by price,
// reconstructed purely from the public update stream. It is the in-process
// input for downstream snapshot synthesis and depth queries; the live books
// are never read from outside their owning goroutine.
type Depth struct {
	mu   sync.RWMutex
	bids map[orderbook.InstrumentID]depthSide
	asks map[orderbook.InstrumentID]depthSide
}

// NewDepth returns an empty depth view.
func NewDepth() *Depth {
	return &Depth{
		bids: make(map[orderbook.InstrumentID]depthSide),
		asks: make(map[orderbook.InstrumentID]depthSide),
	}
}

func (d *Depth) side(inst orderbook.InstrumentID, side orderbook.Side) depthSide {
	m := d.bids
	if side == orderbook.Ask {
		m = d.asks
	}
	s, ok := m[inst]
	if !ok {
		s = newDepthSide()
		m[inst] = s
	}
	return s
}

// Apply folds one update into the view. Add contributes the resting
// quantity, Trade removes the filled quantity, Cancel removes whatever
// remained on the removed order.
func (d *Depth) Apply(u *orderbook.MarketUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch u.Type {
	case orderbook.UpdateAdd:
		d.side(u.Instrument, u.Side).adjust(u.Price, u.Qty)
	case orderbook.UpdateTrade, orderbook.UpdateCancel:
		d.side(u.Instrument, u.Side).adjust(u.Price, -u.Qty)
	}
}

// Top returns up to n levels per side, best first (descending bids,
// ascending asks).
func (d *Depth) Top(inst orderbook.InstrumentID, n int) (bids, asks []Level) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.bids[inst]; ok {
		s.levels.Reverse(func(price, qty int64) bool {
			bids = append(bids, Level{orderbook.Price(price), orderbook.Qty(qty)})
			return len(bids) < n
		})
	}
	if s, ok := d.asks[inst]; ok {
		s.levels.Scan(func(price, qty int64) bool {
			asks = append(asks, Level{orderbook.Price(price), orderbook.Qty(qty)})
			return len(asks) < n
		})
	}
	return bids, asks
}
