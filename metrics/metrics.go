// Package metrics declares the venue's Prometheus instruments. Counters are
// bumped outside the matching hot path (at the gateway and the publishers).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsAccepted counts requests that passed gateway validation,
	// by type (new/cancel).
	RequestsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njord_requests_accepted_total",
			Help: "Client requests accepted at the gateway",
		},
		[]string{"type"},
	)

	// RequestsDropped counts requests rejected at the boundary, by reason.
	RequestsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "njord_requests_dropped_total",
			Help: "Client requests dropped before sequencing",
		},
		[]string{"reason"},
	)

	// Trades counts executed fills.
	Trades = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "njord_trades_total",
			Help: "Fills executed by the matching engine",
		},
	)

	// MarketUpdatesPublished counts updates handed to the market-data
	// transport.
	MarketUpdatesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "njord_market_updates_published_total",
			Help: "Market data updates published",
		},
	)

	// QueueDepth tracks the occupancy of the named inter-thread queues.
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "njord_queue_depth",
			Help: "Elements pending in an SPSC queue",
		},
		[]string{"queue"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsAccepted,
		RequestsDropped,
		Trades,
		MarketUpdatesPublished,
		QueueDepth,
	)
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
