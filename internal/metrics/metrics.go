// Package metrics exposes Prometheus instrumentation for the ingest pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sttbridge"

// Chunk outcomes recorded by the worker
const (
	OutcomeSuccess        = "success"
	OutcomeUnintelligible = "unintelligible"
	OutcomeDecodeError    = "decode_error"
	OutcomeServiceError   = "service_error"
	OutcomeFailure        = "failure"
	OutcomeDiscarded      = "discarded"
)

// Rejection reasons recorded at admission
const (
	RejectOffline   = "offline"
	RejectQueueFull = "queue_full"
	RejectInvalid   = "invalid"
)

// Metrics contains all Prometheus metrics for the service
type Metrics struct {
	// Queue metrics
	ChunksAccepted prometheus.Counter
	ChunksRejected *prometheus.CounterVec
	ChunksCleared  prometheus.Counter
	QueueLength    prometheus.Gauge

	// Mode
	Online prometheus.Gauge

	// Worker metrics
	WorkerWakeups         prometheus.Counter
	ChunkOutcomes         *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	ResultsPolled         *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ChunksAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_accepted_total",
			Help:      "Total number of audio chunks admitted to the queue",
		}),
		ChunksRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_rejected_total",
			Help:      "Total number of audio chunks refused at admission",
		}, []string{"reason"}),
		ChunksCleared: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_cleared_total",
			Help:      "Total number of queued chunks discarded by an offline transition",
		}),
		QueueLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Current number of chunks waiting for transcription",
		}),
		Online: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online",
			Help:      "1 when the pipeline is in online mode",
		}),
		WorkerWakeups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_wakeups_total",
			Help:      "Times the worker returned from waiting on the queue",
		}),
		ChunkOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_outcomes_total",
			Help:      "Processed chunks by outcome",
		}, []string{"outcome"}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of engine transcription calls",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		ResultsPolled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_polled_total",
			Help:      "Result polls by returned status",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordAccepted counts an admitted chunk
func (m *Metrics) RecordAccepted() {
	if m == nil {
		return
	}
	m.ChunksAccepted.Inc()
}

// RecordRejected counts a refused chunk
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ChunksRejected.WithLabelValues(reason).Inc()
}

// RecordCleared counts chunks dropped by a queue clear
func (m *Metrics) RecordCleared(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ChunksCleared.Add(float64(n))
}

// SetQueueLength sets the current queue length
func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(n))
}

// SetOnline records the current mode
func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	v := 0.0
	if online {
		v = 1
	}
	m.Online.Set(v)
}

// RecordWakeup counts one return from a queue wait
func (m *Metrics) RecordWakeup() {
	if m == nil {
		return
	}
	m.WorkerWakeups.Inc()
}

// RecordOutcome counts a processed chunk
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ChunkOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveTranscription records the duration of one engine call
func (m *Metrics) ObserveTranscription(seconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Observe(seconds)
}

// RecordPoll counts a result poll
func (m *Metrics) RecordPoll(status string) {
	if m == nil {
		return
	}
	m.ResultsPolled.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
