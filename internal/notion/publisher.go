package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"voice-events-go/internal/config"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/logger"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// ErrNotConfigured means the Notion key or parent page id is missing.
var ErrNotConfigured = errors.New("notion client not configured")

// StatusError is a non-2xx answer from the Notion API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notion api error: status=%d body=%s", e.Code, e.Body)
}

// Publisher creates one Notion sub-page per processed voice note.
type Publisher struct {
	cfg     *config.Config
	http    *http.Client
	log     *logger.Logger
	baseURL string
}

func NewPublisher(cfg *config.Config, log *logger.Logger) *Publisher {
	return &Publisher{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
		baseURL: defaultBaseURL,
	}
}

// Publish creates the note page and returns its URL.
func (p *Publisher) Publish(ctx context.Context, ev extractor.Event) (string, error) {
	if p.cfg.NotionAPIKey == "" || p.cfg.NotionParentPageID == "" {
		return "", ErrNotConfigured
	}

	title := ev.Title
	if title == "" {
		title = extractor.FallbackTitle
	}

	payload := map[string]any{
		"parent": map[string]string{"page_id": p.cfg.NotionParentPageID},
		"properties": map[string]any{
			"title": []map[string]any{
				{"text": map[string]string{"content": title}},
			},
		},
		"children": []map[string]any{
			{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]any{
					"rich_text": []map[string]any{
						{"type": "text", "text": map[string]string{"content": NoteBody(ev)}},
					},
				},
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	log := p.log.WithField("module", "notion").WithField("title", title)

	var pageURL string
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/pages", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+p.cfg.NotionAPIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Notion-Version", apiVersion)

		resp, err := p.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(body)}
			return lastErr
		}
		if resp.StatusCode >= 300 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: string(body)}
			return backoff.Permanent(lastErr)
		}

		var created struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return backoff.Permanent(lastErr)
		}
		pageURL = created.URL
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 20 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.WithError(lastErr).Error("note creation failed")
		return "", lastErr
	}

	log.WithField("url", pageURL).Info("note created")
	return pageURL, nil
}

// NoteBody renders the event fields into the note's single text block:
// date, time range, category, priority, optional location, optional
// attendees, then description and notes.
func NoteBody(ev extractor.Event) string {
	parts := []string{
		"**Date:** " + orDefault(ev.Date, "Not specified"),
		fmt.Sprintf("**Time:** %s - %s", orDefault(ev.StartTime, "TBD"), orDefault(ev.EndTime, "TBD")),
		"**Category:** " + orDefault(ev.Category, "Other"),
		"**Priority:** " + orDefault(ev.Priority, "Medium"),
	}
	if ev.Location != "" {
		parts = append(parts, "**Location:** "+ev.Location)
	}
	if len(ev.Attendees) > 0 {
		parts = append(parts, "**Attendees:** "+strings.Join(ev.Attendees, ", "))
	}
	parts = append(parts,
		"",
		"**Description:**",
		orDefault(ev.Description, "No description provided"),
		"",
		"**Additional Notes:**",
		orDefault(ev.Notes, "Created from voice note"),
	)
	return strings.Join(parts, "\n")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
