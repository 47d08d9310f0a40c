// Package metrics exposes prometheus collectors for the live trader.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_ticks_total", Help: "Market ticks appended to a price series"},
		[]string{"instrument"},
	)
	DroppedTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_dropped_ticks_total", Help: "Market ticks dropped as malformed"},
		[]string{"reason"},
	)
	CollectionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradebot_collection_failures_total", Help: "Collection attempts that failed"},
	)
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tradebot_cycles_total", Help: "Decision cycles completed"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradebot_orders_total", Help: "Orders submitted"},
		[]string{"instrument", "side", "status"},
	)
	Score = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "tradebot_score", Help: "Latest normalized score"},
		[]string{"instrument"},
	)
	Cash = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradebot_cash", Help: "Quote currency balance at the start of the last cycle"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, DroppedTicksTotal, CollectionFailuresTotal, CyclesTotal, OrdersTotal, Score, Cash)
}

// Serve starts the /metrics endpoint in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
