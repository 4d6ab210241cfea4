package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swaps_total", Help: "Swap flows by mode and outcome"},
		[]string{"mode", "outcome"},
	)
	StageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "swap_stage_seconds", Help: "Time spent per swap stage", Buckets: prometheus.DefBuckets},
		[]string{"stage"},
	)
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_requests_total", Help: "Webhook requests by response status"},
		[]string{"status"},
	)
	PairLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pair_lookups_total", Help: "Pair id to mint lookups"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(SwapsTotal, StageSeconds, WebhookRequestsTotal, PairLookupsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// NewServer returns an unstarted server exposing /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
