package extractor

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
	"voice-events-go/internal/logger"
)

var (
	// ErrNotConfigured means the LLM gateway URL or key is missing.
	ErrNotConfigured = errors.New("llm gateway not configured")
	// ErrModelUnavailable means the model call itself failed. Malformed model
	// output is never an error; it resolves to the fallback record.
	ErrModelUnavailable = errors.New("llm gateway unavailable")
)

// Source records where the event came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result pairs the extracted event with its provenance, so callers can see a
// degraded extraction without exception control flow.
type Result struct {
	Event  Event
	Source Source
}

// Client turns transcripts into structured events via an OpenAI-compatible
// chat completions gateway.
type Client struct {
	cfg  *config.Config
	http *http.Client
	log  *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 25 * time.Second},
		log:  log,
	}
}

func buildSystemPrompt(refDate time.Time) string {
	today := refDate.Format(DateLayout)
	return fmt.Sprintf(`You are an AI assistant that analyzes voice notes to extract calendar event information.

From the provided text, extract the following information and return it as JSON:
{
    "title": "Brief, descriptive title for the event based on the content",
    "description": "Detailed description including all relevant information from the voice note",
    "date": "%[1]s",
    "start_time": "HH:MM format (extract time from voice note - this is REQUIRED)",
    "end_time": "HH:MM format (extract from voice note, if not mentioned add 1 hour to start_time)",
    "location": "Location if mentioned, otherwise empty string",
    "priority": "high/medium/low based on urgency indicators in the voice note",
    "category": "meeting/appointment/reminder/task/other",
    "attendees": ["list of email addresses if mentioned in the voice note"],
    "notes": "Any additional context or details from the voice note"
}

CRITICAL TIME PARSING INSTRUCTIONS:
- The DATE is ALWAYS today (%[1]s) - do not change this
- Look for time mentions like: "at 2 PM", "3:30", "nine thirty", "half past two", "quarter to five", "7 AM", "7:00", "seven o'clock"
- Convert ALL times to valid 24-hour format (e.g., "2 PM" = "14:00", "7 AM" = "07:00")
- IGNORE any invalid times like "29:00", "25:00", "26:00", or any hour > 23
- If you see malformed times like "22:00 PM" or "29:00 p.m.", interpret them logically:
  * "22:00 PM" should become "22:00" (22:00 is already evening in 24-hour format)
  * "29:00" is invalid - ignore it
- Valid hours: 00-23, Valid minutes: 00-59
- If NO valid time is found or all times are garbled/invalid, use these defaults:
  * start_time: "09:00" (9 AM)
  * end_time: "10:00" (10 AM)
- Common speech patterns: "7 o'clock" = "07:00", "half past 7" = "07:30", "quarter to 8" = "07:45"
- Create a meaningful TITLE based on what the user is talking about
- Include all relevant details in the DESCRIPTION`, today)
}

// Extract asks the model for event fields and degrades to the fallback record
// on any malformed reply. The returned error is non-nil only when the gateway
// call itself fails.
func (c *Client) Extract(ctx context.Context, transcript string, refDate time.Time) (Result, error) {
	if c.cfg.MockLLM {
		ev := normalize(Event{
			Title:       "Team sync",
			Description: transcript,
			StartTime:   "15:00",
			EndTime:     "16:00",
			Priority:    "medium",
			Category:    "meeting",
			Notes:       "mock extraction",
		}, refDate)
		return Result{Event: ev, Source: SourceModel}, nil
	}
	if c.cfg.LLMGatewayURL == "" || c.cfg.LLMAPIKey == "" {
		return Result{}, ErrNotConfigured
	}

	log := c.log.WithField("component", "extractor")

	system := buildSystemPrompt(refDate)
	user := "Please analyze this voice note and extract event information:\n\n" + transcript

	content, err := c.complete(ctx, system, user)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	raw := extractJSON(content)
	var ev Event
	if raw == "" || json.Unmarshal([]byte(raw), &ev) != nil {
		log.WithField("reply_len", len(content)).Warn("model reply not parseable, using fallback record")
		return Result{Event: Fallback(transcript, refDate), Source: SourceFallback}, nil
	}

	ev = normalize(ev, refDate)
	log.WithField("title", ev.Title).Info("event extracted")
	return Result{Event: ev, Source: SourceModel}, nil
}

// complete performs one chat completion and returns the reply text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]any{
		"model": c.cfg.LLMModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.0,
	}
	data, _ := json.Marshal(reqBody)

	var content string
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LLMGatewayURL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.LLMAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm server error: %s", string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("llm request rejected: status=%d body=%s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}

		var parsed struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
			lastErr = fmt.Errorf("unexpected llm response: %s", string(body))
			return lastErr
		}
		content = parsed.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 45 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", lastErr
	}
	return content, nil
}

// extractJSON slices the substring between the first '{' and the last '}' in
// a model reply, stripping the markdown fences LLMs commonly wrap JSON in.
func extractJSON(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, fence := range []string{"```json", "```yaml", "```text", "```", "`json", "`"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
