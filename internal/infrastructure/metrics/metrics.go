package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CollectErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "arbradar_collect_errors_total", Help: "Failed venue collections"},
		[]string{"exchange"},
	)
	TickersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "arbradar_tickers_total", Help: "Tickers collected"},
		[]string{"exchange"},
	)
	CycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "arbradar_cycle_seconds", Help: "Refresh cycle duration", Buckets: prometheus.DefBuckets},
	)
	Opportunities = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "arbradar_opportunities", Help: "Opportunities ranked in the last cycle"},
	)
	SqueezeSignals = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "arbradar_squeeze_signals", Help: "Squeeze signals scored in the last cycle"},
		[]string{"exchange"},
	)
)

func init() {
	prometheus.MustRegister(CollectErrors, TickersTotal, CycleSeconds, Opportunities, SqueezeSignals)
}

// Serve exposes /metrics on addr. The listener runs until the process exits.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
