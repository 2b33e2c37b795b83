package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/types"
)

func TestWebhookPostsJSON(t *testing.T) {
	got := make(chan types.NotificationRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req types.NotificationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got <- req
	}))
	defer srv.Close()

	in := types.NotificationRequest{Text: "hi there", Phone: "+15550100"}
	require.NoError(t, NewWebhook(srv.URL, time.Second).Notify(context.Background(), in))
	assert.Equal(t, in, <-got)
}

func TestWebhookIgnoresErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()
	assert.NoError(t, NewWebhook(srv.URL, time.Second).Notify(context.Background(), types.NotificationRequest{}))
}

func TestWebhookTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	assert.Error(t, NewWebhook(url, time.Second).Notify(context.Background(), types.NotificationRequest{}))
}

func TestWebhookRequiresURL(t *testing.T) {
	assert.Error(t, NewWebhook("", time.Second).Notify(context.Background(), types.NotificationRequest{}))
}

func TestNewSelectsBackend(t *testing.T) {
	n, err := New(config.Config{Notifier: "log"})
	require.NoError(t, err)
	assert.IsType(t, Log{}, n)
	assert.NoError(t, n.Notify(context.Background(), types.NotificationRequest{Text: "x", Phone: "1"}))

	n, err = New(config.Config{Notifier: "webhook", WebhookURL: "http://example.invalid"})
	require.NoError(t, err)
	assert.IsType(t, &Webhook{}, n)

	_, err = New(config.Config{Notifier: "twilio"})
	assert.Error(t, err)

	n, err = New(config.Config{Notifier: "twilio", TwilioAccountSID: "AC1", TwilioAuthToken: "t", TwilioFromNumber: "+1"})
	require.NoError(t, err)
	assert.IsType(t, &Twilio{}, n)

	_, err = New(config.Config{Notifier: "pigeon"})
	assert.Error(t, err)
}
