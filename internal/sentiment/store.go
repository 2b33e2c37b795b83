package sentiment

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"voice-emotion-go/internal/logger"
)

// PlaceholderLabels is the label set of the bootstrap model.
var PlaceholderLabels = []string{"negative", "neutral", "positive"}

// TrainingSource supplies labeled samples for bootstrapping a model.
type TrainingSource func() ([]Sample, error)

// Store owns the process-wide classifier. The model is loaded from disk on
// first use; a missing artifact is bootstrapped and written back. Exactly one
// caller performs that work, concurrent callers wait for it. A failed load is
// retried on the next call.
type Store struct {
	path   string
	source TrainingSource
	seed   uint64

	mu    sync.Mutex
	model atomic.Pointer[Model]
}

type StoreOption func(*Store)

// WithTrainingSource bootstraps from real samples instead of random data.
func WithTrainingSource(src TrainingSource) StoreOption {
	return func(s *Store) { s.source = src }
}

// WithSeed fixes the random placeholder data.
func WithSeed(seed uint64) StoreOption {
	return func(s *Store) { s.seed = seed }
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, seed: rand.Uint64()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path is where the artifact lives.
func (s *Store) Path() string { return s.path }

// Model returns the classifier, loading or bootstrapping it on first use.
func (s *Store) Model() (*Model, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.model.Load(); m != nil {
		return m, nil
	}

	log := logger.New().Component("sentiment").WithField("model_path", s.path)
	m, err := LoadModel(s.path)
	switch {
	case err == nil:
		log.WithField("classes", m.Classes).Info("sentiment model loaded")
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("sentiment model missing; bootstrapping")
		if m, err = s.bootstrap(); err != nil {
			return nil, fmt.Errorf("bootstrap sentiment model: %w", err)
		}
		if err := m.Save(s.path); err != nil {
			return nil, fmt.Errorf("save sentiment model: %w", err)
		}
		log.WithField("classes", m.Classes).WithField("placeholder", m.Placeholder).Info("sentiment model written")
	default:
		return nil, err
	}
	s.model.Store(m)
	return m, nil
}

// Replace swaps in a freshly trained model and persists it.
func (s *Store) Replace(m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := m.Save(s.path); err != nil {
		return err
	}
	s.model.Store(m)
	return nil
}

func (s *Store) bootstrap() (*Model, error) {
	if s.source != nil {
		samples, err := s.source()
		if err != nil {
			return nil, fmt.Errorf("load training samples: %w", err)
		}
		return Train(samples, TrainOptions{Standardize: true})
	}
	return Placeholder(s.seed)
}

// placeholderRanges bounds the random value of each feature, in
// FeatureNames order, to what speech recordings actually produce.
var placeholderRanges = [][2]float64{
	{0.5, 30},  // duration_sec
	{0, 0.3},   // rms_mean
	{0, 0.15},  // rms_std
	{0, 1},     // rms_max
	{0, 0.5},   // zcr_mean
	{0, 0.2},   // zcr_std
	{60, 400},  // pitch_mean
	{0, 80},    // pitch_std
	{0, 1},     // voiced_ratio
	{0, 1},     // silence_ratio
	{0, 1},     // peak
}

// Placeholder trains a stand-in model on random data: ten feature vectors
// drawn uniformly from placeholderRanges with labels drawn from
// PlaceholderLabels. It exists so the service can run before a real model is
// trained.
func Placeholder(seed uint64) (*Model, error) {
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	samples := make([]Sample, 10)
	for i := range samples {
		x := make([]float64, len(FeatureNames))
		for j, r := range placeholderRanges {
			x[j] = r[0] + rng.Float64()*(r[1]-r[0])
		}
		samples[i] = Sample{Features: x, Label: PlaceholderLabels[rng.IntN(len(PlaceholderLabels))]}
	}
	m, err := Train(samples, TrainOptions{MaxIter: 200, Standardize: true})
	if err != nil {
		return nil, err
	}
	m.Placeholder = true
	return m, nil
}
