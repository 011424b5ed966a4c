package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_server_active_sessions",
		Help: "Number of active voice sessions",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_server_sessions_total",
		Help: "Total number of voice sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_server_session_duration_seconds",
		Help:    "Lifetime of voice sessions in seconds",
		Buckets: []float64{5, 15, 60, 300, 900, 1800, 3600},
	})

	// Pipeline metrics
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_server_task_queue_depth",
		Help: "Number of audio tasks waiting for the pipeline worker",
	})

	tasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_server_tasks_dropped_total",
		Help: "Audio tasks dropped because the queue was full",
	})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_server_stage_latency_seconds",
		Help:    "Per-stage pipeline processing latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	stageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_server_stage_requests_total",
		Help: "Pipeline stage executions by outcome",
	}, []string{"stage", "status"})

	// Provider error metrics
	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_server_provider_errors_total",
		Help: "Errors returned by upstream providers",
	}, []string{"provider", "code"})
)

// Pipeline stage labels
const (
	StageNormalize  = "normalize"
	StageTranscribe = "transcribe"
	StageReply      = "reply"
	StageSynthesize = "synthesize"
)

// RecordSessionStart marks a new session as active
func RecordSessionStart() {
	activeSessions.Inc()
	sessionsTotal.Inc()
}

// RecordSessionEnd marks a session as finished with its total lifetime
func RecordSessionEnd(lifetime time.Duration) {
	activeSessions.Dec()
	sessionDuration.Observe(lifetime.Seconds())
}

// SetQueueDepth publishes the pipeline queue depth
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// RecordTaskDropped counts a task rejected by a full queue
func RecordTaskDropped() {
	tasksDropped.Inc()
}

// RecordStage observes one pipeline stage execution
func RecordStage(stage string, elapsed time.Duration, success bool) {
	stageLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// RecordProviderError counts an upstream provider failure by class
func RecordProviderError(provider, code string) {
	providerErrors.WithLabelValues(provider, code).Inc()
}
