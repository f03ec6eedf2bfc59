package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame outcomes.
const (
	OutcomeDecoded  = "decoded"
	OutcomeMismatch = "size_mismatch"
	OutcomeNoSchema = "no_schema"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litelog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litelog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	decodeFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litelog",
			Subsystem: "decode",
			Name:      "frames_total",
			Help:      "Frames emitted as entries, by outcome.",
		},
		[]string{"outcome"},
	)
	decodePayloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "litelog",
			Subsystem: "decode",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes read from complete frames.",
		},
	)
	decodeAborts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litelog",
			Subsystem: "decode",
			Name:      "aborts_total",
			Help:      "Streams aborted on a framing error, by reason.",
		},
		[]string{"reason"},
	)
	headerDiagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litelog",
			Subsystem: "header",
			Name:      "diagnostics_total",
			Help:      "Header constructs skipped while building schemas.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			decodeFrames,
			decodePayloadBytes,
			decodeAborts,
			headerDiagnostics,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(outcome string, payloadBytes int) {
	RegisterMetrics()
	decodeFrames.WithLabelValues(outcome).Inc()
	decodePayloadBytes.Add(float64(payloadBytes))
}

func RecordAbort(reason string) {
	RegisterMetrics()
	decodeAborts.WithLabelValues(reason).Inc()
}

func RecordHeaderDiagnostic(kind string) {
	RegisterMetrics()
	headerDiagnostics.WithLabelValues(kind).Inc()
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for a node_exporter textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
