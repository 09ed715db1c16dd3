package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "durctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "durctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	brokerExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "durctl",
			Subsystem: "broker",
			Name:      "exchanges_total",
			Help:      "Broker exchanges by request code, module and outcome.",
		},
		[]string{"request_code", "module", "outcome"},
	)
	brokerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "durctl",
			Subsystem: "broker",
			Name:      "exchange_duration_seconds",
			Help:      "Broker exchange duration in seconds, connect to decoded body.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5, 10},
		},
		[]string{"request_code", "module"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, brokerExchanges, brokerDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordExchange(requestCode, module, outcome string, duration time.Duration) {
	RegisterMetrics()
	brokerExchanges.WithLabelValues(requestCode, module, outcome).Inc()
	brokerDuration.WithLabelValues(requestCode, module).Observe(duration.Seconds())
}
