// Package sentiment classifies a recording into a coarse sentiment label
// from acoustic features alone.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"os"

	"voice-emotion-go/internal/types"
)

var (
	ErrNoAudio        = errors.New("audio file not found")
	ErrEmptyRecording = errors.New("recording contains no samples")
)

type Analyzer struct {
	store *Store
}

func NewAnalyzer(store *Store) *Analyzer {
	return &Analyzer{store: store}
}

// Analyze extracts features from the canonical WAV at path and classifies
// them.
func (a *Analyzer) Analyze(ctx context.Context, path string) (types.Sentiment, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Sentiment{}, fmt.Errorf("%w: %s", ErrNoAudio, path)
		}
		return types.Sentiment{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.Sentiment{}, err
	}

	features, err := ExtractFile(path)
	if err != nil {
		return types.Sentiment{}, fmt.Errorf("extract features: %w", err)
	}
	model, err := a.store.Model()
	if err != nil {
		return types.Sentiment{}, err
	}
	p, err := model.Predict(features)
	if err != nil {
		return types.Sentiment{}, err
	}
	return types.Sentiment{Label: p.Label, Confidence: p.Confidence, Scores: p.Scores}, nil
}
