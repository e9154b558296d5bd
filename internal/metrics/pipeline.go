package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ccdarank"

// Pipeline stage label values.
const (
	StageCensus  = "census"
	StageScoring = "scoring"
)

// Document status label values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusResumed = "resumed"
)

// Pipeline Prometheus metrics.
var (
	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents handled per stage and outcome",
		},
		[]string{"stage", "status"},
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Batch processing duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	CheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoint operations by result",
		},
		[]string{"result"}, // "written" / "retry" / "loaded" / "corrupt"
	)

	MemoryReleasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_releases_total",
			Help:      "Forced memory releases after the heap ceiling was exceeded",
		},
		[]string{"stage"},
	)

	HeapBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_bytes",
			Help:      "Heap usage sampled between batches",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics with the default registry. Call once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(CheckpointsTotal)
	prometheus.MustRegister(MemoryReleasesTotal)
	prometheus.MustRegister(HeapBytes)
	pipelineMetricsRegistered = true
}
