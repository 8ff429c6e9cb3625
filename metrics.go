package dvr

import (
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	promc "github.com/prometheus/client_golang/prometheus"
)

type tableMetrics struct {
	adds    metrics.Counter
	deletes metrics.Counter
	lookups metrics.Counter
	size    metrics.Gauge
	apply   metrics.Histogram
}

var tmetrics = &tableMetrics{
	adds: prometheus.NewCounterFrom(promc.CounterOpts{
		Namespace: "dvr",
		Subsystem: "table",
		Name:      "adds",
		Help:      "Routes added or replaced.",
	}, []string{}),
	deletes: prometheus.NewCounterFrom(promc.CounterOpts{
		Namespace: "dvr",
		Subsystem: "table",
		Name:      "deletes",
		Help:      "Route deletions, including deletions of absent routes.",
	}, []string{}),
	lookups: prometheus.NewCounterFrom(promc.CounterOpts{
		Namespace: "dvr",
		Subsystem: "table",
		Name:      "lookups",
		Help:      "Single route lookups.",
	}, []string{"result"}),
	size: prometheus.NewGaugeFrom(promc.GaugeOpts{
		Namespace: "dvr",
		Subsystem: "table",
		Name:      "routes",
		Help:      "Routes currently in the table.",
	}, []string{}),
	apply: prometheus.NewSummaryFrom(promc.SummaryOpts{
		Namespace: "dvr",
		Subsystem: "server",
		Name:      "apply_latency",
		Help:      "Time spent applying committed commands to the route table.",
		MaxAge:    5 * time.Second,
	}, []string{}),
}
