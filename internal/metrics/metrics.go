// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal counts orchestrator runs.
	// Labels: status (ok/transcribe/sentiment/notify)
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"status"},
	)

	// StageDuration is the wall time of each pipeline stage.
	// Labels: stage (normalize/transcribe/sentiment/notify)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_uploads_total",
			Help: "Total number of upload requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "code"},
	)

	SentimentLabelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_sentiment_labels_total",
			Help: "Sentiment labels assigned to recordings",
		},
		[]string{"label"},
	)

	TranscriptsAbsentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_transcripts_absent_total",
			Help: "Recordings for which no transcript was produced",
		},
	)
)

func RecordRun(status string) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func RecordUpload(endpoint string, code int) {
	UploadsTotal.WithLabelValues(endpoint, statusText(code)).Inc()
}

func RecordSentiment(label string) {
	SentimentLabelsTotal.WithLabelValues(label).Inc()
}

func RecordAbsentTranscript() {
	TranscriptsAbsentTotal.Inc()
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
