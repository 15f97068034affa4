package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsum_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"method", "endpoint"},
	)

	// Transcript Metrics
	TranscriptResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_transcript_results_total",
			Help: "Total number of per-language transcript results by source type",
		},
		[]string{"language", "source_type"},
	)

	TranscriptAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_transcript_attempts_total",
			Help: "Total number of caption fetch attempts",
		},
		[]string{"kind", "outcome"},
	)

	CaptionListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_caption_listings_total",
			Help: "Total number of caption catalog listings",
		},
		[]string{"outcome"},
	)

	SpeechTranscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_speech_transcriptions_total",
			Help: "Total number of transcriptions by path",
		},
		[]string{"path", "status"},
	)

	SpeechTranscriptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidsum_speech_transcription_duration_seconds",
			Help:    "Speech-to-text fallback duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
	)

	// Summary Metrics
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_summaries_total",
			Help: "Total number of summarizer calls",
		},
		[]string{"mode", "status"},
	)

	SummaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsum_summary_duration_seconds",
			Help:    "Summarizer call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"mode"},
	)

	LengthRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidsum_length_rejections_total",
			Help: "Total number of videos rejected for exceeding the duration ceiling",
		},
	)

	VideoDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidsum_video_duration_seconds",
			Help:    "Duration of videos submitted for summarization",
			Buckets: []float64{60, 300, 600, 1200, 1800, 3600, 5400, 7200, 10800},
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsum_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsum_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Feedback Metrics
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_feedback_total",
			Help: "Total number of feedback messages by stage",
		},
		[]string{"stage", "status"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vidsum_queue_depth",
			Help: "Number of messages waiting in each feedback queue",
		},
		[]string{"queue"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsum_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTranscriptResult records the final source type chosen for a language
func RecordTranscriptResult(language, sourceType string) {
	TranscriptResultsTotal.WithLabelValues(language, sourceType).Inc()
}

// RecordTranscriptAttempt records one manual, generated or translated fetch attempt
func RecordTranscriptAttempt(kind string, ok bool) {
	TranscriptAttemptsTotal.WithLabelValues(kind, outcome(ok)).Inc()
}

// RecordCaptionListing records a catalog listing outcome
func RecordCaptionListing(result string) {
	CaptionListingsTotal.WithLabelValues(result).Inc()
}

// RecordTranscription records a transcription served from captions or speech
func RecordTranscription(path string, ok bool, duration float64) {
	SpeechTranscriptionsTotal.WithLabelValues(path, outcome(ok)).Inc()
	if path == "speech" {
		SpeechTranscriptionDuration.Observe(duration)
	}
}

// RecordSummary records a summarizer call
func RecordSummary(mode string, ok bool, duration float64) {
	SummariesTotal.WithLabelValues(mode, outcome(ok)).Inc()
	SummaryDuration.WithLabelValues(mode).Observe(duration)
}

// RecordVideoDuration records the length of a submitted video
func RecordVideoDuration(seconds float64, rejected bool) {
	VideoDurationSeconds.Observe(seconds)
	if rejected {
		LengthRejectionsTotal.Inc()
	}
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordFeedback records a feedback message being queued or delivered
func RecordFeedback(stage string, ok bool) {
	FeedbackTotal.WithLabelValues(stage, outcome(ok)).Inc()
}

// SetQueueDepth records the current depth of a queue
func SetQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
