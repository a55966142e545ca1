package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"njord/config"
	"njord/domain/orderbook"
	"njord/egress"
	"njord/gateway"
	"njord/infra/sequence"
	"njord/infra/spsc"
	"njord/marketdata"
	"njord/metrics"
	"njord/protocol"
	"njord/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Queues ----------------

	engineIn := spsc.New[protocol.ClientRequest](cfg.EngineQueueCap)
	responses := spsc.New[orderbook.ClientResponse](cfg.OutQueueCap)
	updates := spsc.New[orderbook.MarketUpdate](cfg.OutQueueCap)

	var dropCopy *spsc.Queue[orderbook.ClientResponse]
	if cfg.DropCopyEnabled {
		dropCopy = spsc.New[orderbook.ClientResponse](cfg.OutQueueCap)
	}

	// ---------------- Engine ----------------

	books := make([]orderbook.Config, 0, len(cfg.Instruments))
	for _, id := range cfg.Instruments {
		books = append(books, orderbook.Config{
			Instrument:     orderbook.InstrumentID(id),
			MaxOrders:      cfg.MaxOrders,
			MaxPriceLevels: cfg.MaxPriceLevels,
		})
	}
	eng := service.New(books, engineIn, responses, updates, cfg.IdleBackoff, log)

	// ---------------- Gateway ----------------

	gw := gateway.New(gateway.Config{
		ListenAddr:      cfg.ListenAddr,
		SessionQueueCap: cfg.SessionQueueCap,
		CycleBackoff:    cfg.IdleBackoff,
	}, engineIn, responses, dropCopy, log)

	// ---------------- Market data ----------------

	sink := marketdata.NewKafkaSink(cfg.KafkaBrokers, cfg.MarketDataTopic)
	defer sink.Close()
	pub := marketdata.NewPublisher(
		updates, sequence.New(0), marketdata.NewDepth(), sink, cfg.IdleBackoff, log)

	// ---------------- Supervision ----------------

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error { return eng.Run(ctx) })
	t.Go(func() error { return gw.Run(ctx) })
	t.Go(func() error { return pub.Run(ctx) })

	if cfg.DropCopyEnabled {
		bc, err := egress.New(cfg.KafkaBrokers, cfg.DropCopyTopic, dropCopy, cfg.IdleBackoff, log)
		if err != nil {
			log.Fatal().Err(err).Msg("drop-copy producer init failed")
		}
		defer bc.Close()
		t.Go(func() error { return bc.Run(ctx) })
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	t.Go(func() error {
		<-ctx.Done()
		return metricsSrv.Close()
	})
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server exited")
		}
	}()

	log.Info().
		Str("listen", cfg.ListenAddr).
		Ints("instruments", toInts(cfg.Instruments)).
		Msg("njord running")

	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("venue exited")
	}
	log.Info().Msg("venue stopped")
}

func toInts(ids []uint32) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
