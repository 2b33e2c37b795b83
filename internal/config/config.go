package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server and CLI read from the environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	UploadDir      string
	SinkFile       string
	ScratchDir     string
	MaxUploadBytes int64

	Normalizer          string
	FFmpegPath          string
	CanonicalSampleRate int

	Transcriber       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	WhisperModel      string
	Language          string
	TranscribeURL     string
	PollInterval      time.Duration
	PollAttempts      int
	TranscribeTimeout time.Duration

	SentimentModelPath string
	SentimentDataset   string

	Notifier         string
	WebhookURL       string
	NotifyTimeout    time.Duration
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

const defaultMaxUpload = 16 * 1024 * 1024

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // loads .env
	return FromEnv()
}

// FromEnv parses the current environment without touching .env.
func FromEnv() (Config, error) {
	var err error
	c := Config{
		Port:        envOr("PORT", "5000"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFile:     os.Getenv("LOG_FILE"),

		UploadDir:  envOr("UPLOAD_DIR", "uploads"),
		ScratchDir: os.Getenv("SCRATCH_DIR"),

		Normalizer: envOr("AUDIO_NORMALIZER", "auto"),
		FFmpegPath: envOr("FFMPEG_PATH", "ffmpeg"),

		Transcriber:   envOr("TRANSCRIBER", "whisper"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		WhisperModel:  envOr("WHISPER_MODEL", "whisper-1"),
		Language:      envOr("TRANSCRIBE_LANGUAGE", "en"),
		TranscribeURL: os.Getenv("TRANSCRIBE_URL"),

		SentimentModelPath: envOr("SENTIMENT_MODEL_PATH", "sentiment_model.json"),
		SentimentDataset:   os.Getenv("SENTIMENT_DATASET"),

		Notifier:         envOr("NOTIFIER", "webhook"),
		WebhookURL:       os.Getenv("NOTIFY_WEBHOOK_URL"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	}
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		c.Transcriber = "mock"
	}
	c.SinkFile = filepath.Join(c.UploadDir, "last_received.mp3")

	if c.MaxUploadBytes, err = int64Env("MAX_UPLOAD_BYTES", defaultMaxUpload); err != nil {
		return Config{}, err
	}
	if c.CanonicalSampleRate, err = intEnv("CANONICAL_SAMPLE_RATE", 16000); err != nil {
		return Config{}, err
	}
	if c.PollAttempts, err = intEnv("TRANSCRIBE_POLL_ATTEMPTS", 40); err != nil {
		return Config{}, err
	}
	if c.PollInterval, err = durationEnv("TRANSCRIBE_POLL_INTERVAL", 1500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if c.TranscribeTimeout, err = durationEnv("TRANSCRIBE_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if c.NotifyTimeout, err = durationEnv("NOTIFY_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Normalizer {
	case "auto", "native", "ffmpeg":
	default:
		return fmt.Errorf("AUDIO_NORMALIZER: unknown value %q", c.Normalizer)
	}
	switch c.Transcriber {
	case "whisper", "remote", "mock":
	default:
		return fmt.Errorf("TRANSCRIBER: unknown value %q", c.Transcriber)
	}
	switch c.Notifier {
	case "webhook", "twilio", "log":
	default:
		return fmt.Errorf("NOTIFIER: unknown value %q", c.Notifier)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.CanonicalSampleRate < 8000 {
		return fmt.Errorf("CANONICAL_SAMPLE_RATE must be at least 8000")
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func int64Env(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
