package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voice-emotion-go/internal/logger"
)

// PublishResponse is the job-submission reply of the remote recognizer.
type PublishResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		MediaID          string `json:"MediaId"`
		Status           string `json:"Status"`
		TranscriptionURL string `json:"TranscriptionURL"`
	} `json:"Data"`
	Reason string `json:"Reason,omitempty"`
}

type StatusResponse struct {
	Code   int    `json:"Code"`
	Status string `json:"Status"`
	Data   struct {
		Status               string `json:"Status"`
		TranscriptionTextURL string `json:"TranscriptionTextURL"`
	} `json:"Data"`
	Reason string `json:"Reason,omitempty"`
}

var errStillRunning = errors.New("transcription still running")

// Remote uploads the recording to a publish/poll/download recognizer.
type Remote struct {
	Host         string
	PollInterval time.Duration
	PollAttempts int
	Client       *http.Client
}

func NewRemote(host string, interval time.Duration, attempts int) *Remote {
	return &Remote{
		Host:         host,
		PollInterval: interval,
		PollAttempts: attempts,
		Client:       &http.Client{Timeout: 12 * time.Second},
	}
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Transcribe(ctx context.Context, wavPath string) (string, error) {
	if r.Host == "" {
		return "", errors.New("TRANSCRIBE_URL not set")
	}
	log := logger.New().Component("transcription").WithField("backend", "remote")
	mediaID, ready, err := r.publish(ctx, wavPath)
	if err != nil {
		return "", err
	}
	if ready != "" {
		return r.download(ctx, ready)
	}
	log.WithField("media_id", mediaID).Debug("transcription job queued")
	finalURL, err := r.poll(ctx, mediaID)
	if err != nil {
		return "", err
	}
	log.WithField("final_url", finalURL).Info("download final transcript")
	return r.download(ctx, finalURL)
}

func (r *Remote) publish(ctx context.Context, wavPath string) (string, string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", "", err
	}
	_ = w.WriteField("callType", "VOICE")
	if err := w.Close(); err != nil {
		return "", "", err
	}

	endpoint := strings.TrimRight(r.Host, "/") + "/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var resp PublishResponse
	if err := r.doJSON(req, &resp); err != nil {
		return "", "", err
	}
	if resp.Code != http.StatusOK {
		return "", "", fmt.Errorf("transcribe publish error: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.TranscriptionURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return "", resp.Data.TranscriptionURL, nil
	}
	if resp.Data.MediaID == "" {
		return "", "", errors.New("transcribe publish error: no media id")
	}
	return resp.Data.MediaID, "", nil
}

func (r *Remote) poll(ctx context.Context, mediaID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(r.Host, "/") + "/getstatus")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("mediaId", mediaID)
	u.RawQuery = q.Encode()

	var final string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		var s StatusResponse
		if err := r.doJSON(req, &s); err != nil {
			return backoff.Permanent(err)
		}
		switch s.Data.Status {
		case "Success":
			final = s.Data.TranscriptionTextURL
			return nil
		case "Failed":
			return backoff.Permanent(fmt.Errorf("transcription failed: %s", s.Reason))
		default:
			return errStillRunning
		}
	}
	attempts := r.PollAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.PollInterval), uint64(attempts-1)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, errStillRunning) {
			return "", fmt.Errorf("transcription timeout after %d polls", attempts)
		}
		return "", err
	}
	return final, nil
}

func (r *Remote) download(ctx context.Context, textURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, textURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed: %s", string(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// doJSON performs a single request; retrying is left to the caller.
func (r *Remote) doJSON(req *http.Request, target interface{}) error {
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: %s", string(body))
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	return nil
}
