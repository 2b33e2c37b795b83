// Package app wires the configured components together for the server and
// the CLI.
package app

import (
	"fmt"
	"os"

	"voice-emotion-go/internal/audio"
	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/dataset"
	"voice-emotion-go/internal/notify"
	"voice-emotion-go/internal/pipeline"
	"voice-emotion-go/internal/sentiment"
	"voice-emotion-go/internal/sink"
	"voice-emotion-go/internal/transcription"
)

type App struct {
	Config      config.Config
	Normalizer  audio.Normalizer
	Transcriber *transcription.Service
	Models      *sentiment.Store
	Analyzer    *sentiment.Analyzer
	Notifier    notify.Notifier
	Pipeline    *pipeline.Orchestrator
	Sink        *sink.Sink
}

// New builds every component from cfg. Nothing is contacted yet; the
// sentiment model is loaded on first use.
func New(cfg config.Config) (*App, error) {
	norm, err := audio.New(cfg.Normalizer, cfg.FFmpegPath, cfg.CanonicalSampleRate)
	if err != nil {
		return nil, err
	}
	tr, err := transcription.New(cfg)
	if err != nil {
		return nil, err
	}
	n, err := notify.New(cfg)
	if err != nil {
		return nil, err
	}

	models := NewModelStore(cfg)
	analyzer := sentiment.NewAnalyzer(models)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &App{
		Config:      cfg,
		Normalizer:  norm,
		Transcriber: tr,
		Models:      models,
		Analyzer:    analyzer,
		Notifier:    n,
		Pipeline:    pipeline.New(tr, analyzer, n),
		Sink:        sink.New(cfg.SinkFile),
	}, nil
}

// NewModelStore returns the classifier store. When SENTIMENT_DATASET is set a
// missing model is trained from that workbook instead of random data.
func NewModelStore(cfg config.Config) *sentiment.Store {
	var opts []sentiment.StoreOption
	if cfg.SentimentDataset != "" {
		path := cfg.SentimentDataset
		opts = append(opts, sentiment.WithTrainingSource(func() ([]sentiment.Sample, error) {
			return dataset.LoadSamples(path)
		}))
	}
	return sentiment.NewStore(cfg.SentimentModelPath, opts...)
}
