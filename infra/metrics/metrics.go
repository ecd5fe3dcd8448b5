// Package metrics holds the Prometheus instruments of a replay and the
// broadcaster.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns its own prometheus.Registry so several can coexist in tests.
type Registry struct {
	reg *prometheus.Registry

	DeltasApplied      *prometheus.CounterVec
	TradesBucketed     *prometheus.CounterVec
	TradesOutOfHorizon *prometheus.CounterVec
	EmptyWindows       *prometheus.CounterVec

	ArbEvents     *prometheus.CounterVec
	ArbSuppressed prometheus.Counter

	BroadcastSends *prometheus.CounterVec

	StageDuration *prometheus.HistogramVec
	Replays       prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		DeltasApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_deltas_applied_total",
				Help: "Order-book deltas applied per pair",
			},
			[]string{"pair"},
		),
		TradesBucketed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_trades_bucketed_total",
				Help: "Trades assigned to a window per pair",
			},
			[]string{"pair"},
		),
		TradesOutOfHorizon: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_trades_out_of_horizon_total",
				Help: "Trades later than the last window per pair",
			},
			[]string{"pair"},
		),
		EmptyWindows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_empty_windows_total",
				Help: "Windows without any trade per pair",
			},
			[]string{"pair"},
		),

		ArbEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_arbitrage_events_total",
				Help: "Arbitrage events emitted per cycle",
			},
			[]string{"cycle"},
		),
		ArbSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookreplay_arbitrage_suppressed_total",
				Help: "In-bounds cycle returns dropped as recent duplicates",
			},
		),

		BroadcastSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookreplay_broadcast_sends_total",
				Help: "Outbox deliveries by result",
			},
			[]string{"result"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookreplay_stage_duration_seconds",
				Help:    "Duration of each replay stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"stage"},
		),
		Replays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookreplay_replays_total",
				Help: "Completed replays",
			},
		),
	}

	r.reg.MustRegister(
		r.DeltasApplied,
		r.TradesBucketed,
		r.TradesOutOfHorizon,
		r.EmptyWindows,
		r.ArbEvents,
		r.ArbSuppressed,
		r.BroadcastSends,
		r.StageDuration,
		r.Replays,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
