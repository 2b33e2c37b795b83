package audio

// ToMono averages interleaved channels into one.
func ToMono(p *PCM) *PCM {
	if p.Channels <= 1 {
		return p
	}
	frames := p.Frames()
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < p.Channels; c++ {
			sum += int(p.Samples[i*p.Channels+c])
		}
		out[i] = int16(sum / p.Channels)
	}
	return &PCM{SampleRate: p.SampleRate, Channels: 1, Samples: out}
}

// Resample converts mono audio to rate using linear interpolation.
func Resample(p *PCM, rate int) *PCM {
	if p.SampleRate == rate || len(p.Samples) == 0 {
		return &PCM{SampleRate: rate, Channels: p.Channels, Samples: p.Samples}
	}
	ratio := float64(p.SampleRate) / float64(rate)
	n := int(float64(len(p.Samples)) / ratio)
	out := make([]int16, n)
	last := len(p.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = p.Samples[last]
			continue
		}
		frac := pos - float64(j)
		a, b := float64(p.Samples[j]), float64(p.Samples[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return &PCM{SampleRate: rate, Channels: 1, Samples: out}
}

// Canonicalize returns mono audio at rate.
func Canonicalize(p *PCM, rate int) *PCM {
	return Resample(ToMono(p), rate)
}
