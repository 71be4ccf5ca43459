package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors of the speech backend. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline metrics
	Requests         *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	DegradedRequests prometheus.Counter
	CleanupFailures  prometheus.Counter
	AudioSeconds     prometheus.Histogram

	// ASR metrics
	ASRAttempts      *prometheus.CounterVec
	ASRRetries       prometheus.Counter
	EmptyTranscripts prometheus.Counter
	ASRDuration      prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_requests_total",
			Help: "Total number of transcription requests by outcome",
		}, []string{"outcome"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_stage_failures_total",
			Help: "Total number of pipeline failures by stage and error kind",
		}, []string{"stage", "kind"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		}, []string{"stage"}),
		DegradedRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_degraded_requests_total",
			Help: "Total number of requests transcribed from a file path because the waveform could not be loaded",
		}),
		CleanupFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_cleanup_failures_total",
			Help: "Total number of temporary resources that could not be removed",
		}),
		AudioSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_audio_duration_seconds",
			Help:    "Duration of normalized audio",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),

		ASRAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_asr_attempts_total",
			Help: "Total number of ASR engine calls by attempt",
		}, []string{"engine", "attempt"}),
		ASRRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_asr_retries_total",
			Help: "Total number of retries issued after an empty first attempt",
		}),
		EmptyTranscripts: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_empty_transcripts_total",
			Help: "Total number of requests that ended with an empty transcript",
		}),
		ASRDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_asr_duration_seconds",
			Help:    "Duration of single ASR engine calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordRequest counts a finished pipeline run
func (m *Metrics) RecordRequest(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

// RecordStage observes the time spent in a pipeline stage
func (m *Metrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordStageFailure counts a failure in a pipeline stage
func (m *Metrics) RecordStageFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage, kind).Inc()
}

// RecordDegraded counts a request that fell back to the file path
func (m *Metrics) RecordDegraded() {
	if m == nil {
		return
	}
	m.DegradedRequests.Inc()
}

// RecordCleanupFailure counts a temp resource that could not be removed
func (m *Metrics) RecordCleanupFailure() {
	if m == nil {
		return
	}
	m.CleanupFailures.Inc()
}

// RecordAudio observes the duration of a normalized waveform
func (m *Metrics) RecordAudio(seconds float64) {
	if m == nil {
		return
	}
	m.AudioSeconds.Observe(seconds)
}

// RecordASRAttempt counts one engine call and its duration
func (m *Metrics) RecordASRAttempt(engine, attempt string, seconds float64) {
	if m == nil {
		return
	}
	m.ASRAttempts.WithLabelValues(engine, attempt).Inc()
	m.ASRDuration.Observe(seconds)
}

// RecordRetry increments the retry counter
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.ASRRetries.Inc()
}

// RecordEmptyTranscript counts a request that ended without text
func (m *Metrics) RecordEmptyTranscript() {
	if m == nil {
		return
	}
	m.EmptyTranscripts.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
