package transport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  *prometheus.CounterVec
	proxyErrors    prometheus.Counter
	deleteFailures prometheus.Counter
	loadedStreams  prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	proxyErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_proxy_errors_total",
		Help: "Media requests the backend could not answer",
	})
	deleteFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_delete_failures_total",
		Help: "Stream deletions rejected or failed upstream",
	})
	loadedStreams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_loaded_streams",
		Help: "Streams in the last loaded list",
	})

	registry.MustRegister(
		requestsTotal,
		proxyErrors,
		deleteFailures,
		loadedStreams,
	)

	return &Metrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		proxyErrors:    proxyErrors,
		deleteFailures: deleteFailures,
		loadedStreams:  loadedStreams,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
