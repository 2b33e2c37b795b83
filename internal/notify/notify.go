// Package notify forwards enriched transcripts to the downstream
// conversation service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/types"
)

type Notifier interface {
	Notify(ctx context.Context, req types.NotificationRequest) error
}

// New builds the notifier selected by NOTIFIER.
func New(cfg config.Config) (Notifier, error) {
	switch cfg.Notifier {
	case "webhook":
		return NewWebhook(cfg.WebhookURL, cfg.NotifyTimeout), nil
	case "twilio":
		return NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	case "log":
		return Log{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

// Webhook POSTs the request as JSON. The reply body is not inspected and a
// non-2xx status is only logged; there is no acknowledgment contract.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Notify(ctx context.Context, req types.NotificationRequest) error {
	if w.URL == "" {
		return errors.New("NOTIFY_WEBHOOK_URL not set")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	log := logger.New().Component("notify").WithField("status", resp.StatusCode)
	if resp.StatusCode >= 300 {
		log.Warn("webhook answered with non-success status")
		return nil
	}
	log.Debug("webhook delivered")
	return nil
}

// Twilio sends the text as an SMS to the phone number.
type Twilio struct {
	client *twilio.RestClient
	from   string
}

func NewTwilio(accountSID, authToken, from string) (*Twilio, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{client: client, from: from}, nil
}

func (t *Twilio) Notify(ctx context.Context, req types.NotificationRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(req.Phone)
	params.SetFrom(t.from)
	params.SetBody(req.Text)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	entry := logger.New().Component("notify").WithField("to", req.Phone)
	if msg.Sid != nil {
		entry = entry.WithField("sid", *msg.Sid)
	}
	entry.Info("sms queued")
	return nil
}

// Log writes the notification to the service log instead of sending it.
type Log struct{}

func (Log) Notify(_ context.Context, req types.NotificationRequest) error {
	logger.New().Component("notify").
		WithField("phone", req.Phone).
		WithField("text", req.Text).
		Info("notification")
	return nil
}
