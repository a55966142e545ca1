// Package marketdata drains the engine's public update stream, stamps the
// venue-wide sequence numbers, keeps the aggregated depth view current, and
// publishes encoded updates to the market-data transport.
package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"njord/domain/orderbook"
	"njord/infra/sequence"
	"njord/infra/spsc"
	"njord/metrics"
	"njord/protocol"
)

// Sink is the market-data transport. Publish must preserve per-key order;
// keys are instrument ids.
type Sink interface {
	Publish(ctx context.Context, key, payload []byte) error
}

// Publisher is the sole consumer of the engine's update queue.
type Publisher struct {
	in    *spsc.Queue[orderbook.MarketUpdate]
	seq   *sequence.Sequencer
	depth *Depth
	sink  Sink

	idleBackoff time.Duration
	log         zerolog.Logger
}

// NewPublisher wires the update queue to a sink. The sequencer must be
// dedicated to this publisher: sequence numbers are venue-wide and strictly
// increasing in publication order.
func NewPublisher(
	in *spsc.Queue[orderbook.MarketUpdate],
	seq *sequence.Sequencer,
	depth *Depth,
	sink Sink,
	idleBackoff time.Duration,
	log zerolog.Logger,
) *Publisher {
	return &Publisher{
		in:          in,
		seq:         seq,
		depth:       depth,
		sink:        sink,
		idleBackoff: idleBackoff,
		log:         log.With().Str("component", "marketdata").Logger(),
	}
}

// Run drains updates until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	var key, payload []byte
	for {
		u := p.in.ReadSlot()
		if u == nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				time.Sleep(p.idleBackoff)
				continue
			}
		}

		u.Seq = p.seq.Next()
		p.depth.Apply(u)
		if u.Type == orderbook.UpdateTrade {
			metrics.Trades.Inc()
		}

		key = appendInstrumentKey(key[:0], u.Instrument)
		payload = protocol.AppendUpdate(payload[:0], u)
		if err := p.sink.Publish(ctx, key, payload); err != nil {
			// Gaps are repaired downstream by snapshot recovery; the
			// sequence number is already consumed either way.
			p.log.Error().Err(err).Uint64("seq", u.Seq).Msg("market data publish failed")
		} else {
			metrics.MarketUpdatesPublished.Inc()
		}

		p.in.CommitRead()
		metrics.QueueDepth.WithLabelValues("market_updates").Set(float64(p.in.Size()))
	}
}

func appendInstrumentKey(buf []byte, inst orderbook.InstrumentID) []byte {
	return append(buf,
		byte(inst>>24), byte(inst>>16), byte(inst>>8), byte(inst))
}
