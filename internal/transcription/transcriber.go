// Package transcription turns a canonical WAV recording into text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/types"
)

// Transcriber is a speech recognition backend.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

const MockTranscript = "MOCK TRANSCRIPT: hello, I would like some help with my order."

// Mock returns a fixed transcript.
type Mock struct{ Text string }

func (m Mock) Name() string { return "mock" }

func (m Mock) Transcribe(_ context.Context, _ string) (string, error) {
	if m.Text == "" {
		return MockTranscript, nil
	}
	return m.Text, nil
}

// Service wraps a backend and maps recognition failures to an absent
// transcript. Only context errors are returned.
type Service struct {
	backend Transcriber
	timeout time.Duration
}

func NewService(backend Transcriber, timeout time.Duration) *Service {
	return &Service{backend: backend, timeout: timeout}
}

// New builds the backend selected by TRANSCRIBER.
func New(cfg config.Config) (*Service, error) {
	var backend Transcriber
	switch cfg.Transcriber {
	case "mock":
		backend = Mock{}
	case "remote":
		backend = NewRemote(cfg.TranscribeURL, cfg.PollInterval, cfg.PollAttempts)
	case "whisper":
		w, err := NewWhisper(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.WhisperModel, cfg.Language)
		if err != nil {
			return nil, fmt.Errorf("whisper transcriber: %w", err)
		}
		backend = w
	default:
		return nil, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
	}
	return NewService(backend, cfg.TranscribeTimeout), nil
}

func (s *Service) Transcribe(ctx context.Context, wavPath string) (types.Transcript, error) {
	log := logger.New().Component("transcription").
		WithField("backend", s.backend.Name()).
		WithField("path", wavPath)

	if _, err := os.Stat(wavPath); err != nil {
		log.WithError(err).Warn("audio file not readable; no transcript")
		return types.Transcript{}, nil
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.backend.Transcribe(callCtx, wavPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Transcript{}, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithField("timeout", s.timeout.String()).Warn("transcription timed out; no transcript")
			return types.Transcript{}, nil
		}
		log.WithError(err).Warn("transcription failed; no transcript")
		return types.Transcript{}, nil
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("chars", len(text)).Info("transcription complete")
	if text == "" {
		return types.Transcript{}, nil
	}
	return types.Transcript{Text: text, OK: true}, nil
}
