package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-events-go/internal/config"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/logger"
)

func testEvent() extractor.Event {
	return extractor.Event{
		Title:       "Team sync",
		Description: "Budget discussion",
		Date:        "2024-06-01",
		StartTime:   "15:00",
		EndTime:     "16:00",
		Location:    "Room 4",
		Priority:    "high",
		Category:    "meeting",
		Attendees:   []string{"a@example.com", "b@example.com"},
		Notes:       "bring slides",
	}
}

func newTestPublisher(baseURL string) *Publisher {
	cfg := &config.Config{
		NotionAPIKey:       "secret-key",
		NotionParentPageID: "parent-123",
	}
	p := NewPublisher(cfg, logger.New())
	p.baseURL = baseURL
	return p
}

func TestPublishCreatesPage(t *testing.T) {
	var gotReq *http.Request
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		json.NewDecoder(r.Body).Decode(&gotPayload)
		fmt.Fprint(w, `{"url": "https://notion.so/page-1"}`)
	}))
	defer srv.Close()

	url, err := newTestPublisher(srv.URL).Publish(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://notion.so/page-1" {
		t.Errorf("url = %q", url)
	}

	if got := gotReq.URL.Path; got != "/v1/pages" {
		t.Errorf("path = %q", got)
	}
	if got := gotReq.Header.Get("Authorization"); got != "Bearer secret-key" {
		t.Errorf("authorization = %q", got)
	}
	if got := gotReq.Header.Get("Notion-Version"); got != apiVersion {
		t.Errorf("notion version = %q", got)
	}

	parent, _ := gotPayload["parent"].(map[string]any)
	if parent["page_id"] != "parent-123" {
		t.Errorf("parent = %v", parent)
	}
	children, _ := gotPayload["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("children = %v, want one paragraph block", children)
	}
}

func TestPublishClientErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"message":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestPublisher(srv.URL).Publish(context.Background(), testEvent())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusBadRequest {
		t.Errorf("code = %d", statusErr.Code)
	}
	if calls != 1 {
		t.Errorf("calls = %d, client errors must not be retried", calls)
	}
}

func TestPublishNotConfigured(t *testing.T) {
	p := NewPublisher(&config.Config{}, logger.New())
	_, err := p.Publish(context.Background(), testEvent())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNoteBodyOrder(t *testing.T) {
	body := NoteBody(testEvent())

	wantOrder := []string{
		"**Date:** 2024-06-01",
		"**Time:** 15:00 - 16:00",
		"**Category:** meeting",
		"**Priority:** high",
		"**Location:** Room 4",
		"**Attendees:** a@example.com, b@example.com",
		"**Description:**",
		"Budget discussion",
		"**Additional Notes:**",
		"bring slides",
	}
	pos := -1
	for _, part := range wantOrder {
		i := strings.Index(body, part)
		if i < 0 {
			t.Fatalf("body missing %q:\n%s", part, body)
		}
		if i < pos {
			t.Fatalf("%q out of order:\n%s", part, body)
		}
		pos = i
	}
}

func TestNoteBodySkipsEmptyOptionalFields(t *testing.T) {
	ev := testEvent()
	ev.Location = ""
	ev.Attendees = nil
	body := NoteBody(ev)

	if strings.Contains(body, "**Location:**") {
		t.Errorf("empty location must be omitted:\n%s", body)
	}
	if strings.Contains(body, "**Attendees:**") {
		t.Errorf("empty attendee list must be omitted:\n%s", body)
	}
}
