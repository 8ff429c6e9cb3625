package main

import (
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	promc "github.com/prometheus/client_golang/prometheus"
)

// Client side instruments, labelled by op (read or write). Requests are
// further labelled by result (ok or failed).
var cmetrics = struct {
	latency  metrics.Histogram
	requests metrics.Counter
}{
	latency: prometheus.NewSummaryFrom(promc.SummaryOpts{
		Namespace:  "dvr",
		Subsystem:  "client",
		Name:       "latency_seconds",
		Help:       "Route request response time.",
		MaxAge:     5 * time.Second,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"op"}),
	requests: prometheus.NewCounterFrom(promc.CounterOpts{
		Namespace: "dvr",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Route requests sent to the cluster.",
	}, []string{"op", "result"}),
}

func opName(write bool) string {
	if write {
		return "write"
	}
	return "read"
}

// observe records the outcome of one request.
func observe(write bool, elapsed time.Duration, err error) {
	op := opName(write)

	if err != nil {
		cmetrics.requests.With("op", op, "result", "failed").Add(1)
		return
	}

	cmetrics.requests.With("op", op, "result", "ok").Add(1)
	cmetrics.latency.With("op", op).Observe(elapsed.Seconds())
}
