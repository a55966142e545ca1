// Package service runs the matching engine: the single goroutine that owns
// every order book, drains the sequenced request queue, and fans events out
// to the response and market-data queues. All coordination with the rest of
// the process happens at those queues; the books themselves are never
// shared.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"njord/domain/orderbook"
	"njord/infra/spsc"
	"njord/protocol"
)

// Engine owns the per-instrument books and the in/out queues of the
// matching stage.
type Engine struct {
	books map[orderbook.InstrumentID]*orderbook.OrderBook

	in        *spsc.Queue[protocol.ClientRequest]
	responses *spsc.Queue[orderbook.ClientResponse]
	updates   *spsc.Queue[orderbook.MarketUpdate]

	idleBackoff time.Duration
	log         zerolog.Logger
}

// New builds an engine with one book per instrument config. The engine is
// the sole consumer of in and the sole producer of responses and updates.
func New(
	instruments []orderbook.Config,
	in *spsc.Queue[protocol.ClientRequest],
	responses *spsc.Queue[orderbook.ClientResponse],
	updates *spsc.Queue[orderbook.MarketUpdate],
	idleBackoff time.Duration,
	log zerolog.Logger,
) *Engine {
	e := &Engine{
		books:       make(map[orderbook.InstrumentID]*orderbook.OrderBook, len(instruments)),
		in:          in,
		responses:   responses,
		updates:     updates,
		idleBackoff: idleBackoff,
		log:         log.With().Str("component", "engine").Logger(),
	}
	for _, cfg := range instruments {
		e.books[cfg.Instrument] = orderbook.New(cfg, e)
	}
	return e
}

// Book exposes an instrument's book for read-side callers (tests, depth
// priming). Mutation remains the engine goroutine's privilege.
func (e *Engine) Book(id orderbook.InstrumentID) *orderbook.OrderBook {
	return e.books[id]
}

// Run drains requests until ctx is cancelled. Each request is fully applied
// before the stop check; the bounded sleep when idle is back-off only, not
// coordination.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Int("books", len(e.books)).Msg("engine running")
	for {
		processed := 0
		for {
			req := e.in.ReadSlot()
			if req == nil {
				break
			}
			e.dispatch(req)
			e.in.CommitRead()
			processed++
		}
		select {
		case <-ctx.Done():
			e.log.Info().Msg("engine stopped")
			return nil
		default:
		}
		if processed == 0 {
			time.Sleep(e.idleBackoff)
		}
	}
}

func (e *Engine) dispatch(req *protocol.ClientRequest) {
	book, ok := e.books[req.Instrument]
	if !ok {
		e.OnClientResponse(orderbook.ClientResponse{
			Type:          orderbook.ResponseRejected,
			ClientID:      req.ClientID,
			Instrument:    req.Instrument,
			ClientOrderID: req.ClientOrderID,
			Side:          req.Side,
			Price:         req.Price,
			LeavesQty:     req.Qty,
		})
		return
	}
	switch req.Type {
	case protocol.RequestNew:
		book.Add(req.ClientID, req.ClientOrderID, req.Side, req.Price, req.Qty)
	case protocol.RequestCancel:
		book.Cancel(req.ClientID, req.ClientOrderID)
	default:
		e.OnClientResponse(orderbook.ClientResponse{
			Type:          orderbook.ResponseRejected,
			ClientID:      req.ClientID,
			Instrument:    req.Instrument,
			ClientOrderID: req.ClientOrderID,
		})
	}
}

// OnClientResponse implements orderbook.EventListener by publishing into
// the response queue. Overflow means the outbound transport fell
// unrecoverably behind a queue sized past any realistic backlog, so it is
// fatal.
func (e *Engine) OnClientResponse(r orderbook.ClientResponse) {
	slot := e.responses.WriteSlot()
	if slot == nil {
		panic("service: client response queue overflow")
	}
	*slot = r
	e.responses.CommitWrite()
}

// OnMarketUpdate implements orderbook.EventListener for the market-data
// queue.
func (e *Engine) OnMarketUpdate(u orderbook.MarketUpdate) {
	slot := e.updates.WriteSlot()
	if slot == nil {
		panic("service: market update queue overflow")
	}
	*slot = u
	e.updates.CommitWrite()
}
