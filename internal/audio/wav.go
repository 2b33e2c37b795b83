package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// PCM is decoded 16-bit audio. Samples are interleaved by channel.
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Frames returns the number of samples per channel.
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE

	// WAVE_FORMAT_EXTENSIBLE is the largest fmt chunk in use.
	maxFmtChunk = 40
)

var (
	ErrNotWAV       = errors.New("not a RIFF/WAVE stream")
	ErrMalformedWAV = errors.New("malformed wav")
)

// checkChunks walks the chunk headers and rejects sizes that do not fit the
// stream. The decoder allocates fmt, LIST, smpl and cue chunks at their
// declared size, so an unchecked header can request gigabytes. The data
// chunk is read through a limited reader and may overstate its size, as
// streaming recorders do.
func checkChunks(r io.ReadSeeker) error {
	total, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	p := riff.New(r)
	err = p.ParseHeaders()
	if p.ID != riff.RiffID || (err == nil && p.Format != riff.WavFormatID) {
		return ErrNotWAV
	}
	if err != nil {
		return fmt.Errorf("read riff header: %w", err)
	}

	haveFmt := false
	for {
		ch, err := p.NextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: no data chunk", ErrMalformedWAV)
			}
			return err
		}
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		size := int64(ch.Size)

		switch ch.ID {
		case riff.FmtID:
			if size < 16 || size > maxFmtChunk {
				return fmt.Errorf("%w: fmt chunk of %d bytes", ErrMalformedWAV, size)
			}
			haveFmt = true
		case riff.DataFormatID:
			if !haveFmt {
				return fmt.Errorf("%w: data chunk before fmt chunk", ErrMalformedWAV)
			}
			_, err := r.Seek(0, io.SeekStart)
			return err
		}
		if size > total-pos {
			return fmt.Errorf("%w: %q chunk of %d bytes exceeds stream", ErrMalformedWAV, string(ch.ID[:]), size)
		}
		if _, err := r.Seek(size, io.SeekCurrent); err != nil {
			return err
		}
	}
}

// ReadWAV decodes integer PCM (8/16/24/32-bit) and 32-bit float WAV data
// into 16-bit samples.
func ReadWAV(r io.ReadSeeker) (*PCM, error) {
	if err := checkChunks(r); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(r)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	channels, rate := int(d.NumChans), int(d.SampleRate)
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: channels=%d rate=%d", ErrMalformedWAV, channels, rate)
	}

	samples, err := toInt16(buf, d.WavAudioFormat)
	if err != nil {
		return nil, err
	}
	// drop a trailing partial frame
	samples = samples[:len(samples)-len(samples)%channels]
	return &PCM{SampleRate: rate, Channels: channels, Samples: samples}, nil
}

func toInt16(buf *goaudio.IntBuffer, format uint16) ([]int16, error) {
	bits := buf.SourceBitDepth
	if format == formatExtensible {
		format = formatPCM
	}
	out := make([]int16, len(buf.Data))
	switch {
	case format == formatPCM && bits == 8:
		// 8-bit samples are unsigned
		for i, v := range buf.Data {
			out[i] = int16((v - 128) << 8)
		}
	case format == formatPCM && bits == 16:
		for i, v := range buf.Data {
			out[i] = int16(v)
		}
	case format == formatPCM && bits == 24:
		for i, v := range buf.Data {
			out[i] = int16(v >> 8)
		}
	case format == formatPCM && bits == 32:
		for i, v := range buf.Data {
			out[i] = int16(v >> 16)
		}
	case format == formatFloat && bits == 32:
		// the decoder hands float samples back as their raw bits
		for i, v := range buf.Data {
			out[i] = floatToInt16(float64(math.Float32frombits(uint32(int32(v)))))
		}
	default:
		return nil, fmt.Errorf("%w: wav format=%d bits=%d", ErrUnsupportedFormat, format, bits)
	}
	return out, nil
}

func floatToInt16(f float64) int16 {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int16(math.Round(f * math.MaxInt16))
}

// WriteWAV encodes p as a canonical 16-bit PCM WAV stream. The encoder
// seeks back to patch the chunk sizes once the samples are written.
func WriteWAV(w io.WriteSeeker, p *PCM) error {
	data := make([]int, len(p.Samples))
	for i, s := range p.Samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(w, p.SampleRate, 16, p.Channels, formatPCM)
	err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// ReadWAVFile opens and decodes path.
func ReadWAVFile(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWAV(f)
}

// WriteWAVFile writes p to path, replacing any existing file.
func WriteWAVFile(path string, p *PCM) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
