package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestRequestIDPrefersHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/healthz", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", RequestID(r))

	r = httptest.NewRequest("GET", "/healthz", nil)
	assert.Len(t, RequestID(r), 36)
}

func TestWithRequestAndError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "debug")

	r := httptest.NewRequest("POST", "/upload", nil)
	l.WithRequest(r, "rid-1").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rid-1", entry["req_id"])
	assert.Equal(t, "/upload", entry["path"])
	assert.Equal(t, "POST", entry["method"])

	buf.Reset()
	l.Component("pipeline").WithError(errors.New("boom")).Warn("failed")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "pipeline", entry["component"])
}

func TestConfigureAppliesToExistingLoggers(t *testing.T) {
	l := New()
	t.Cleanup(func() { Configure("", "", "") })

	Configure("production", "debug", "")
	assert.Equal(t, logrus.DebugLevel, l.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Logger.Formatter)

	Configure("local", "error", "")
	assert.Equal(t, logrus.ErrorLevel, New().Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Logger.Formatter)
}
