package sentiment

import (
	"math"

	"voice-emotion-go/internal/audio"
)

// FeatureNames lists the acoustic functionals in the order ExtractFeatures
// returns them. Models and training workbooks are keyed by these names.
var FeatureNames = []string{
	"duration_sec",
	"rms_mean",
	"rms_std",
	"rms_max",
	"zcr_mean",
	"zcr_std",
	"pitch_mean",
	"pitch_std",
	"voiced_ratio",
	"silence_ratio",
	"peak",
}

const (
	frameSeconds     = 0.025
	hopSeconds       = 0.010
	silenceRMS       = 0.01
	minPitchHz       = 60
	maxPitchHz       = 400
	voicingThreshold = 0.3
)

// ExtractFeatures summarizes frame-level energy, zero-crossing rate and
// pitch over the whole recording.
func ExtractFeatures(p *audio.PCM) ([]float64, error) {
	p = audio.ToMono(p)
	if len(p.Samples) == 0 || p.SampleRate <= 0 {
		return nil, ErrEmptyRecording
	}

	x := make([]float64, len(p.Samples))
	peak := 0.0
	for i, s := range p.Samples {
		x[i] = float64(s) / math.MaxInt16
		peak = math.Max(peak, math.Abs(x[i]))
	}

	frameLen := int(frameSeconds * float64(p.SampleRate))
	hop := int(hopSeconds * float64(p.SampleRate))
	if frameLen > len(x) || frameLen < 1 {
		frameLen = len(x)
	}
	if hop < 1 {
		hop = 1
	}
	minLag := p.SampleRate / maxPitchHz
	maxLag := p.SampleRate / minPitchHz

	var rms, zcr, pitch []float64
	silent := 0
	for start := 0; start+frameLen <= len(x); start += hop {
		frame := x[start : start+frameLen]
		e := frameRMS(frame)
		rms = append(rms, e)
		zcr = append(zcr, zeroCrossingRate(frame))
		if e < silenceRMS {
			silent++
			continue
		}
		if f0, ok := autocorrPitch(frame, p.SampleRate, minLag, maxLag); ok {
			pitch = append(pitch, f0)
		}
	}

	n := float64(len(rms))
	rmsMean, rmsStd := meanStd(rms)
	zcrMean, zcrStd := meanStd(zcr)
	pitchMean, pitchStd := meanStd(pitch)

	return []float64{
		p.Duration(),
		rmsMean,
		rmsStd,
		maxOf(rms),
		zcrMean,
		zcrStd,
		pitchMean,
		pitchStd,
		float64(len(pitch)) / n,
		float64(silent) / n,
		peak,
	}, nil
}

// ExtractFile reads a canonical WAV and extracts its features.
func ExtractFile(path string) ([]float64, error) {
	p, err := audio.ReadWAVFile(path)
	if err != nil {
		return nil, err
	}
	return ExtractFeatures(p)
}

func frameRMS(f []float64) float64 {
	sum := 0.0
	for _, v := range f {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(f)))
}

func zeroCrossingRate(f []float64) float64 {
	if len(f) < 2 {
		return 0
	}
	c := 0
	for i := 1; i < len(f); i++ {
		if (f[i-1] >= 0) != (f[i] >= 0) {
			c++
		}
	}
	return float64(c) / float64(len(f)-1)
}

// autocorrPitch returns the fundamental frequency of a voiced frame.
func autocorrPitch(f []float64, rate, minLag, maxLag int) (float64, bool) {
	if maxLag >= len(f) {
		maxLag = len(f) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, false
	}
	energy := 0.0
	for _, v := range f {
		energy += v * v
	}
	if energy == 0 {
		return 0, false
	}
	bestLag, best := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(f); i++ {
			sum += f[i] * f[i+lag]
		}
		if r := sum / energy; r > best {
			best, bestLag = r, lag
		}
	}
	if best < voicingThreshold || bestLag == 0 {
		return 0, false
	}
	return float64(rate) / float64(bestLag), true
}

// meanStd returns zeros for empty input.
func meanStd(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	m := 0.0
	for _, x := range v {
		m += x
	}
	m /= float64(len(v))
	s := 0.0
	for _, x := range v {
		s += (x - m) * (x - m)
	}
	return m, math.Sqrt(s / float64(len(v)))
}

func maxOf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, x)
	}
	return m
}
