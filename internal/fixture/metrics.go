package fixture

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the fixture backend's Prometheus collectors. Each Server
// gets its own registry so several can run in one process.
type Metrics struct {
	registry  *prometheus.Registry
	reqTotal  *prometheus.CounterVec
	ocrDur    prometheus.Histogram
	fragments prometheus.Counter
	stored    prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visiontext_fixture",
		Name:      "requests_total",
		Help:      "Requests handled by route and outcome",
	}, []string{"route", "outcome"})
	m.ocrDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "visiontext_fixture",
		Name:      "ocr_duration_seconds",
		Help:      "Time spent handling POST /ocr",
		Buckets:   prometheus.DefBuckets,
	})
	m.fragments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "visiontext_fixture",
		Name:      "fragments_total",
		Help:      "Recognized text fragments returned",
	})
	m.stored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "visiontext_fixture",
		Name:      "stored_extractions",
		Help:      "Extractions in the store as of the last history request",
	})

	m.registry.MustRegister(
		m.reqTotal, m.ocrDur, m.fragments, m.stored,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
