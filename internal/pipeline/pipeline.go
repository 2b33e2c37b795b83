// Package pipeline sequences transcription, sentiment analysis, enrichment
// and notification for one canonical recording.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/metrics"
	"voice-emotion-go/internal/notify"
	"voice-emotion-go/internal/types"
)

type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageSentiment  Stage = "sentiment"
	StageNotify     Stage = "notify"
)

// StageError reports which step stopped a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Analytic reports whether the failure happened before notification, i.e.
// while the transcript or sentiment was being computed.
func (e *StageError) Analytic() bool {
	return e.Stage == StageTranscribe || e.Stage == StageSentiment
}

type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (types.Transcript, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, wavPath string) (types.Sentiment, error)
}

// Result holds whatever was computed before the run finished or failed.
type Result struct {
	Transcript   types.Transcript `json:"transcript"`
	Sentiment    types.Sentiment  `json:"sentiment"`
	EnrichedText string           `json:"enriched_text"`
	Notified     bool             `json:"notified"`
}

const emotionNote = "Note that I am feeling this emotion, adjust your answer accordingly: %s. Do not mention my emotional state"

// Enrich appends the emotion note to the transcript.
func Enrich(transcript, label string) string {
	note := fmt.Sprintf(emotionNote, label)
	if transcript == "" {
		return note
	}
	return transcript + " " + note
}

type Orchestrator struct {
	transcriber Transcriber
	analyzer    Analyzer
	notifier    notify.Notifier
}

func New(t Transcriber, a Analyzer, n notify.Notifier) *Orchestrator {
	return &Orchestrator{transcriber: t, analyzer: a, notifier: n}
}

// Run processes the canonical WAV at audioPath and forwards the enriched
// text to phone. An absent transcript is not a failure. The first failing
// step ends the run and is returned as a *StageError; Run does not panic.
func (o *Orchestrator) Run(ctx context.Context, audioPath, phone string) (res Result, err error) {
	log := logger.New().Component("pipeline").WithField("audio_path", audioPath)
	stage := StageTranscribe
	defer func() {
		if p := recover(); p != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", p)}
		}
		if err != nil {
			se, ok := err.(*StageError)
			if !ok {
				se = &StageError{Stage: stage, Err: err}
				err = se
			}
			log.WithField("stage", string(se.Stage)).WithField("error", se.Err.Error()).Error("pipeline failed")
			metrics.RecordRun(string(se.Stage))
			return
		}
		metrics.RecordRun("ok")
	}()

	start := time.Now()
	res.Transcript, err = o.transcriber.Transcribe(ctx, audioPath)
	metrics.ObserveStage(string(StageTranscribe), start)
	if err != nil {
		return res, &StageError{Stage: StageTranscribe, Err: err}
	}
	if !res.Transcript.OK {
		metrics.RecordAbsentTranscript()
		log.Warn("no transcript; continuing with sentiment only")
	}

	stage = StageSentiment
	start = time.Now()
	res.Sentiment, err = o.analyzer.Analyze(ctx, audioPath)
	metrics.ObserveStage(string(StageSentiment), start)
	if err != nil {
		return res, &StageError{Stage: StageSentiment, Err: err}
	}
	metrics.RecordSentiment(res.Sentiment.Label)

	res.EnrichedText = Enrich(res.Transcript.Text, res.Sentiment.Label)

	stage = StageNotify
	start = time.Now()
	err = o.notifier.Notify(ctx, types.NotificationRequest{Text: res.EnrichedText, Phone: phone})
	metrics.ObserveStage(string(StageNotify), start)
	if err != nil {
		return res, &StageError{Stage: StageNotify, Err: err}
	}
	res.Notified = true
	log.WithField("sentiment", res.Sentiment.Label).
		WithField("transcribed", res.Transcript.OK).
		Info("pipeline complete")
	return res, nil
}
