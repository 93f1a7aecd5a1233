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
			Namespace: "pydev",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the mirror.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pydev",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Mirror HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	downloadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pydev",
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Bytes downloaded per artifact kind.",
		},
		[]string{"kind", "arch"},
	)
	downloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pydev",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Artifact download duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind", "arch", "success"},
	)
	extractDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pydev",
			Subsystem: "extract",
			Name:      "duration_seconds",
			Help:      "Artifact extraction duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool", "success"},
	)
)

// Registry holds every collector this binary exports.
var Registry = prometheus.NewRegistry()

func RegisterMetrics() {
	registerOnce.Do(func() {
		Registry.MustRegister(httpRequests, httpDuration, downloadBytes, downloadDuration, extractDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordDownload(kind, arch string, bytes int64, duration time.Duration, success bool) {
	RegisterMetrics()
	if bytes > 0 {
		downloadBytes.WithLabelValues(kind, arch).Add(float64(bytes))
	}
	downloadDuration.WithLabelValues(kind, arch, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func RecordExtract(tool string, duration time.Duration, success bool) {
	RegisterMetrics()
	extractDuration.WithLabelValues(tool, strconv.FormatBool(success)).Observe(duration.Seconds())
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, Registry)
}
