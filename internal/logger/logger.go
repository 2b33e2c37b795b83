package logger

import (
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDHeader is read from incoming requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

type Logger struct {
	*logrus.Entry
}

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

// New returns a logger backed by the process-wide logrus instance.
// The instance is configured from the environment on first use; call
// Configure once .env has been loaded.
func New() *Logger {
	return &Logger{Entry: logrus.NewEntry(root())}
}

func root() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		apply(base, os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	})
	return base
}

// Configure replaces the settings of the process-wide logger. Loggers
// returned by New before the call write with the new settings too.
func Configure(env, level, file string) {
	apply(root(), env, level, file)
}

// NewWithOutput builds a standalone logger writing to w. Used by tests and
// the CLI when output must not go to stdout.
func NewWithOutput(w io.Writer, level string) *Logger {
	l := build("json", level, "")
	l.SetOutput(w)
	return &Logger{Entry: logrus.NewEntry(l)}
}

func build(env, level, file string) *logrus.Logger {
	l := logrus.New()
	apply(l, env, level, file)
	return l
}

func apply(l *logrus.Logger, env, level, file string) {
	// Local env = pretty console; others = JSON
	if env == "" || env == "local" {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     true,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	var out io.Writer = os.Stdout
	if file != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)
	l.SetLevel(ParseLevel(level))
}

// ParseLevel maps LOG_LEVEL values onto logrus levels, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// RequestID returns the caller supplied request id or a fresh one.
func RequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// WithRequest attaches request metadata and returns an entry
func (l *Logger) WithRequest(r *http.Request, reqID string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"req_id":     reqID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}

// Component is shorthand for the per-package field used across the service.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", name)}
}
