// Package egress publishes a drop-copy of every client response to Kafka.
// Messages are keyed by client id, so partition hashing preserves exactly
// the per-client delivery order the direct session path guarantees.
package egress

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"njord/domain/orderbook"
	"njord/infra/spsc"
	"njord/protocol"
)

// Broadcaster drains the drop-copy queue into a Kafka topic.
type Broadcaster struct {
	in       *spsc.Queue[orderbook.ClientResponse]
	producer sarama.SyncProducer
	topic    string

	idleBackoff time.Duration
	log         zerolog.Logger
}

// New connects the producer. Responses must be acknowledged by all in-sync
// replicas before the next is sent; the drop-copy feed is a recovery
// record, not a best-effort stream.
func New(
	brokers []string,
	topic string,
	in *spsc.Queue[orderbook.ClientResponse],
	idleBackoff time.Duration,
	log zerolog.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		in:          in,
		producer:    producer,
		topic:       topic,
		idleBackoff: idleBackoff,
		log:         log.With().Str("component", "egress").Logger(),
	}, nil
}

// Run drains responses until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	var payload []byte
	for {
		resp := b.in.ReadSlot()
		if resp == nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				time.Sleep(b.idleBackoff)
				continue
			}
		}

		payload = protocol.AppendResponse(payload[:0], resp)
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(uint64(resp.ClientID), 10)),
			Value: sarama.ByteEncoder(append([]byte(nil), payload...)),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Error().Err(err).
				Uint32("client", uint32(resp.ClientID)).
				Msg("drop-copy publish failed")
		}
		b.in.CommitRead()
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
