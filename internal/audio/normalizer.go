// Package audio converts uploaded recordings into the canonical WAV
// (16-bit PCM, mono, fixed sample rate) consumed by transcription and
// sentiment analysis.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"voice-emotion-go/internal/logger"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Normalizer transcodes inPath into a canonical WAV at outPath.
type Normalizer interface {
	Normalize(ctx context.Context, inPath, outPath string) error
}

type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatWebM    Format = "webm"
	FormatOgg     Format = "ogg"
	FormatUnknown Format = "unknown"
)

// Sniff identifies the container from its leading bytes.
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()
	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return sniffBytes(head[:n]), nil
}

func sniffBytes(b []byte) Format {
	switch {
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return FormatWAV
	case bytes.HasPrefix(b, []byte("ID3")):
		return FormatMP3
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return FormatMP3
	case bytes.HasPrefix(b, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case bytes.HasPrefix(b, []byte("OggS")):
		return FormatOgg
	}
	return FormatUnknown
}

// Native decodes WAV and MP3 in-process.
type Native struct {
	SampleRate int
}

func (n Native) Normalize(ctx context.Context, inPath, outPath string) error {
	format, err := Sniff(inPath)
	if err != nil {
		return fmt.Errorf("sniff input: %w", err)
	}
	var pcm *PCM
	switch format {
	case FormatWAV:
		pcm, err = ReadWAVFile(inPath)
	case FormatMP3:
		pcm, err = decodeMP3File(inPath)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteWAVFile(outPath, Canonicalize(pcm, n.SampleRate))
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3File(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		raw = raw[:len(raw)-len(raw)%4]
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return &PCM{SampleRate: dec.SampleRate(), Channels: 2, Samples: samples}, nil
}

// FFmpeg shells out to an ffmpeg binary; it accepts any container ffmpeg can
// demux (webm/opus from browsers, ogg, m4a, ...).
type FFmpeg struct {
	Path       string
	SampleRate int
}

func (f FFmpeg) Normalize(ctx context.Context, inPath, outPath string) error {
	cmd := exec.CommandContext(ctx, f.Path,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inPath,
		"-ac", "1",
		"-ar", strconv.Itoa(f.SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Auto uses the native decoder for WAV/MP3 and ffmpeg for everything else.
// FFmpeg is nil when no binary was found.
type Auto struct {
	Native Native
	FFmpeg *FFmpeg
}

func (a Auto) Normalize(ctx context.Context, inPath, outPath string) error {
	format, err := Sniff(inPath)
	if err != nil {
		return fmt.Errorf("sniff input: %w", err)
	}
	log := logger.New().Component("audio").WithField("format", string(format))
	if format == FormatWAV || format == FormatMP3 {
		log.Debug("normalizing natively")
		return a.Native.Normalize(ctx, inPath, outPath)
	}
	if a.FFmpeg == nil {
		return fmt.Errorf("%w: %s (ffmpeg not available)", ErrUnsupportedFormat, format)
	}
	log.Debug("normalizing with ffmpeg")
	return a.FFmpeg.Normalize(ctx, inPath, outPath)
}

// New builds the normalizer selected by kind (auto, native or ffmpeg).
func New(kind, ffmpegPath string, sampleRate int) (Normalizer, error) {
	native := Native{SampleRate: sampleRate}
	switch kind {
	case "native":
		return native, nil
	case "ffmpeg":
		p, err := exec.LookPath(ffmpegPath)
		if err != nil {
			return nil, fmt.Errorf("ffmpeg normalizer: %w", err)
		}
		return FFmpeg{Path: p, SampleRate: sampleRate}, nil
	case "auto", "":
		a := Auto{Native: native}
		if p, err := exec.LookPath(ffmpegPath); err == nil {
			a.FFmpeg = &FFmpeg{Path: p, SampleRate: sampleRate}
		} else {
			logger.New().Component("audio").WithError(err).Warn("ffmpeg not found; only wav/mp3 uploads can be normalized")
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown normalizer %q", kind)
}
