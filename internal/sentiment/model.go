package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const modelVersion = 1

// Model is a multinomial logistic regression over standardized acoustic
// features. It is immutable once trained or loaded.
type Model struct {
	Version     int         `json:"version"`
	Features    []string    `json:"features"`
	Classes     []string    `json:"classes"`
	Mean        []float64   `json:"mean"`
	Scale       []float64   `json:"scale"`
	Weights     [][]float64 `json:"weights"`
	Bias        []float64   `json:"bias"`
	Placeholder bool        `json:"placeholder,omitempty"`
	TrainedAt   time.Time   `json:"trained_at"`
}

// Sample is one labeled feature vector.
type Sample struct {
	Features []float64
	Label    string
}

type TrainOptions struct {
	MaxIter      int
	LearningRate float64
	// C is the inverse regularization strength.
	C float64
	// Standardize fits a per-feature scaler on the training data; when false
	// features are used as-is.
	Standardize bool
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = 200
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.5
	}
	if o.C <= 0 {
		o.C = 1
	}
	return o
}

// Prediction is the class distribution for one input.
type Prediction struct {
	Label      string
	Confidence float64
	Scores     map[string]float64
}

// Train fits the model with full-batch gradient descent on the softmax
// cross-entropy loss plus an L2 penalty.
func Train(samples []Sample, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 {
		return nil, errors.New("train: no samples")
	}
	opts = opts.withDefaults()
	dim := len(samples[0].Features)
	if dim == 0 {
		return nil, errors.New("train: empty feature vectors")
	}

	classIdx := map[string]int{}
	for i, s := range samples {
		if len(s.Features) != dim {
			return nil, fmt.Errorf("train: sample %d has %d features, want %d", i, len(s.Features), dim)
		}
		if s.Label == "" {
			return nil, fmt.Errorf("train: sample %d has no label", i)
		}
		classIdx[s.Label] = 0
	}
	classes := make([]string, 0, len(classIdx))
	for c := range classIdx {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for i, c := range classes {
		classIdx[c] = i
	}

	m := &Model{
		Version:   modelVersion,
		Classes:   classes,
		Mean:      make([]float64, dim),
		Scale:     make([]float64, dim),
		Weights:   make([][]float64, len(classes)),
		Bias:      make([]float64, len(classes)),
		TrainedAt: time.Now().UTC(),
	}
	if dim == len(FeatureNames) {
		m.Features = append([]string(nil), FeatureNames...)
	}
	for k := range m.Weights {
		m.Weights[k] = make([]float64, dim)
	}
	for j := range m.Scale {
		m.Scale[j] = 1
	}
	if opts.Standardize {
		fitScaler(m, samples)
	}

	xs := make([][]float64, len(samples))
	ys := make([]int, len(samples))
	for i, s := range samples {
		xs[i] = m.scale(s.Features)
		ys[i] = classIdx[s.Label]
	}

	n := float64(len(samples))
	lambda := 1 / (opts.C * n)
	gradW := make([][]float64, len(classes))
	for k := range gradW {
		gradW[k] = make([]float64, dim)
	}
	gradB := make([]float64, len(classes))
	probs := make([]float64, len(classes))

	for iter := 0; iter < opts.MaxIter; iter++ {
		for k := range gradW {
			clear(gradW[k])
		}
		clear(gradB)
		for i, x := range xs {
			m.softmax(x, probs)
			for k := range probs {
				d := probs[k]
				if k == ys[i] {
					d -= 1
				}
				gradB[k] += d
				for j, v := range x {
					gradW[k][j] += d * v
				}
			}
		}
		for k := range m.Weights {
			for j := range m.Weights[k] {
				g := gradW[k][j]/n + lambda*m.Weights[k][j]
				m.Weights[k][j] -= opts.LearningRate * g
			}
			m.Bias[k] -= opts.LearningRate * gradB[k] / n
		}
	}
	return m, nil
}

func fitScaler(m *Model, samples []Sample) {
	n := float64(len(samples))
	for _, s := range samples {
		for j, v := range s.Features {
			m.Mean[j] += v
		}
	}
	for j := range m.Mean {
		m.Mean[j] /= n
	}
	variance := make([]float64, len(m.Mean))
	for _, s := range samples {
		for j, v := range s.Features {
			d := v - m.Mean[j]
			variance[j] += d * d
		}
	}
	for j, v := range variance {
		sd := math.Sqrt(v / n)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.Scale[j] = sd
	}
}

func (m *Model) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[j] = (v - m.Mean[j]) / m.Scale[j]
	}
	return out
}

func (m *Model) softmax(x []float64, out []float64) {
	maxZ := math.Inf(-1)
	for k := range m.Weights {
		z := m.Bias[k]
		for j, v := range x {
			z += m.Weights[k][j] * v
		}
		out[k] = z
		maxZ = math.Max(maxZ, z)
	}
	sum := 0.0
	for k := range out {
		out[k] = math.Exp(out[k] - maxZ)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

// Predict returns the most probable class for raw (unscaled) features.
func (m *Model) Predict(features []float64) (Prediction, error) {
	if len(features) != len(m.Mean) {
		return Prediction{}, fmt.Errorf("predict: got %d features, model expects %d", len(features), len(m.Mean))
	}
	probs := make([]float64, len(m.Classes))
	m.softmax(m.scale(features), probs)

	p := Prediction{Scores: make(map[string]float64, len(probs))}
	best := -1
	for k, v := range probs {
		p.Scores[m.Classes[k]] = v
		if best < 0 || v > probs[best] {
			best = k
		}
	}
	p.Label = m.Classes[best]
	p.Confidence = probs[best]
	return p, nil
}

func (m *Model) validate() error {
	dim := len(m.Mean)
	switch {
	case len(m.Classes) == 0:
		return errors.New("model has no classes")
	case dim == 0 || len(m.Scale) != dim:
		return errors.New("model scaler is malformed")
	case len(m.Weights) != len(m.Classes) || len(m.Bias) != len(m.Classes):
		return errors.New("model weights do not match classes")
	}
	for _, w := range m.Weights {
		if len(w) != dim {
			return errors.New("model weight row has wrong width")
		}
	}
	for _, s := range m.Scale {
		if s == 0 {
			return errors.New("model scaler has zero scale")
		}
	}
	return nil
}

// LoadModel reads a JSON model artifact.
func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the artifact atomically (temp file + rename).
func (m *Model) Save(path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
