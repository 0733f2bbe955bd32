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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"voice-events-go/internal/audio"
	"voice-events-go/internal/config"
	"voice-events-go/internal/logger"
)

// ErrNotConfigured is returned when the Whisper endpoint or key is missing.
var ErrNotConfigured = errors.New("transcription service not configured")

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Client sends recorded audio to a Whisper-compatible transcription endpoint.
type Client struct {
	cfg  *config.Config
	http *http.Client
	log  *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
		log:  log,
	}
}

// Transcribe uploads the clip and returns the plain transcript text.
func (c *Client) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if c.cfg.MockTranscribe {
		return "MOCK TRANSCRIPT: Team sync at 3pm about the quarterly budget.", nil
	}
	if c.cfg.WhisperBaseURL == "" || c.cfg.WhisperAPIKey == "" {
		return "", ErrNotConfigured
	}

	data, err := os.ReadFile(clip.Path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("audio file %s is empty", clip.Path)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("model", c.cfg.WhisperModel)
	fw, err := mw.CreateFormFile("file", filepath.Base(clip.Path))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.cfg.WhisperBaseURL, "/") + "/audio/transcriptions"
	log := c.log.WithField("module", "transcription").WithField("endpoint", endpoint)
	log.WithField("bytes", len(data)).Info("starting transcription")

	var out transcriptionResponse
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body.Bytes()))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.WhisperAPIKey)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("transcription server error: %s", string(b))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("transcription request rejected: status=%d body=%s", resp.StatusCode, string(b))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(b))
			return lastErr
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", lastErr
	}

	log.WithField("chars", len(out.Text)).Info("transcription completed")
	return out.Text, nil
}
