// Package metrics exposes the run counters of a scan as Prometheus
// collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gzscan"

// File outcome label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Collector holds the collectors of one scan. A nil *Collector is valid and
// records nothing.
type Collector struct {
	filesProcessed  *prometheus.CounterVec
	fileDuration    prometheus.Histogram
	linesScanned    prometheus.Counter
	linesMatched    prometheus.Counter
	chunksHandedOff prometheus.Counter
	bytesWritten    prometheus.Counter
	handoffDepth    prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		filesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "The total number of input files attempted, by outcome.",
		}, []string{"status"}),
		fileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent decoding and filtering one input file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		linesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_scanned_total",
			Help:      "The total number of decoded lines.",
		}),
		linesMatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_matched_total",
			Help:      "The total number of lines that passed the filter.",
		}),
		chunksHandedOff: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_handed_off_total",
			Help:      "The total number of chunks sent from workers to the writer.",
		}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "The total number of bytes written to the output.",
		}),
		handoffDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handoff_queue_depth",
			Help:      "Chunks waiting in the handoff channel.",
		}),
	}
}

// FileDone records the outcome of one file.
func (c *Collector) FileDone(failed bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := StatusOK
	if failed {
		status = StatusFailed
	}
	c.filesProcessed.WithLabelValues(status).Inc()
	c.fileDuration.Observe(elapsed.Seconds())
}

// Lines records scanned and matched lines of one file.
func (c *Collector) Lines(scanned, matched uint64) {
	if c == nil {
		return
	}
	c.linesScanned.Add(float64(scanned))
	c.linesMatched.Add(float64(matched))
}

// ChunkHandedOff records one chunk sent to the writer.
func (c *Collector) ChunkHandedOff() {
	if c == nil {
		return
	}
	c.chunksHandedOff.Inc()
}

// BytesWritten records bytes written to the output.
func (c *Collector) BytesWritten(n int) {
	if c == nil {
		return
	}
	c.bytesWritten.Add(float64(n))
}

// HandoffDepth sets the current handoff queue depth.
func (c *Collector) HandoffDepth(n int) {
	if c == nil {
		return
	}
	c.handoffDepth.Set(float64(n))
}
