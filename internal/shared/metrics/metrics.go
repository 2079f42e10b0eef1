package metrics

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filegate"

var (
	fileOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "file_operations_total",
		Help:      "File operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	fileOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "file_operation_duration_seconds",
		Help:      "File operation latency in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	uploadAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_attempts_total",
		Help:      "Upload attempts, including retries after source read failures.",
	})

	registerOnce sync.Once
)

// Init registers collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(fileOpsTotal, fileOpDuration, uploadAttempts)
	})
}

// ObserveFileOp records the outcome and latency of one service operation.
func ObserveFileOp(operation, outcome string, elapsed time.Duration) {
	fileOpsTotal.WithLabelValues(operation, outcome).Inc()
	fileOpDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncUploadAttempt counts a single put attempt.
func IncUploadAttempt() {
	uploadAttempts.Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
