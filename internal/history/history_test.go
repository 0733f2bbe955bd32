package history

import (
	"path/filepath"
	"testing"
	"time"

	"voice-events-go/internal/extractor"
	"voice-events-go/internal/logger"
)

func TestAppendAndEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	ledger := NewLedger(path, logger.New())

	first := Entry{
		RunID:       "run-1",
		ProcessedAt: time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC),
		Event: extractor.Event{
			Title:     "Team sync",
			Date:      "2024-06-01",
			StartTime: "15:00",
			EndTime:   "16:00",
			Category:  "meeting",
			Priority:  "high",
		},
		Transcript: "Team sync at 3pm",
		NoteURL:    "https://notion.so/p1",
		EventLink:  "https://calendar.google.com/e1",
	}
	if err := ledger.Append(first); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	second := first
	second.RunID = "run-2"
	second.Event.Title = "Dentist"
	if err := ledger.Append(second); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	entries, err := ledger.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	got := entries[0]
	if got.RunID != "run-1" || got.Event.Title != "Team sync" || got.Event.Category != "meeting" {
		t.Errorf("first entry = %+v", got)
	}
	if !got.ProcessedAt.Equal(first.ProcessedAt) {
		t.Errorf("processed at = %v, want %v", got.ProcessedAt, first.ProcessedAt)
	}
	if got.Transcript != "Team sync at 3pm" || got.NoteURL != "https://notion.so/p1" {
		t.Errorf("first entry payload = %+v", got)
	}
	if entries[1].RunID != "run-2" || entries[1].Event.Title != "Dentist" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestEntriesMissingWorkbook(t *testing.T) {
	ledger := NewLedger(filepath.Join(t.TempDir(), "nope.xlsx"), logger.New())
	if _, err := ledger.Entries(); err == nil {
		t.Error("want error for missing workbook")
	}
}
