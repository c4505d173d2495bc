// Package metrics exposes prometheus instrumentation for the decision pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Count of inbound signals by kind"},
		[]string{"kind"},
	)
	MalformedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_malformed_total", Help: "Signals discarded before classification"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Decisions produced by source"},
		[]string{"source"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "admission_rejections_total", Help: "Admission rejections by reason"},
		[]string{"reason"},
	)
	UnresolvedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fallback_unresolved_total", Help: "Signals the fallback adjudicator could not resolve"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order requests published"},
		[]string{"action", "direction"},
	)
	RiskConfigInvalidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "risk_config_invalid_total", Help: "Signals discarded due to invalid user risk configuration"},
	)
	FallbackLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fallback_latency_seconds",
			Help:    "Round-trip latency of the reasoning service",
			Buckets: prometheus.DefBuckets,
		},
	)
	RegimeIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "regime_index", Help: "Latest market sentiment index"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal, MalformedTotal, DecisionsTotal, RejectionsTotal,
		UnresolvedTotal, OrdersTotal, RiskConfigInvalidTotal, FallbackLatency, RegimeIndex,
	)
}

// Serve starts the /metrics endpoint on addr and returns the server handle.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
