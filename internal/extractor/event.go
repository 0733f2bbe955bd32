package extractor

import (
	"strconv"
	"strings"
	"time"
)

// Placeholders and defaults used whenever the model reply cannot be used.
const (
	FallbackTitle = "Voice Note Event"
	FallbackNotes = "Analyzed from voice note"
	DefaultStart  = "09:00"
	DefaultEnd    = "10:00"

	DateLayout = "2006-01-02"
)

// Event is the structured record extracted from one voice note. It is built
// once per note and not mutated afterwards; the note and calendar publishers
// each read it independently.
type Event struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Location    string   `json:"location"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
	Attendees   []string `json:"attendees"`
	Notes       string   `json:"notes"`
}

// Fallback is the deterministic record used when the model reply cannot be
// parsed: the transcript survives verbatim as the description so nothing the
// user said is lost downstream.
func Fallback(transcript string, refDate time.Time) Event {
	return Event{
		Title:       FallbackTitle,
		Description: transcript,
		Date:        refDate.Format(DateLayout),
		StartTime:   DefaultStart,
		EndTime:     DefaultEnd,
		Location:    "",
		Priority:    "medium",
		Category:    "other",
		Attendees:   []string{},
		Notes:       FallbackNotes,
	}
}

// normalize enforces the caller-side invariants on a parsed event: the date
// is always the reference date regardless of what the model asserted, and the
// clock fields collapse to the default pair when no valid start survives.
func normalize(ev Event, refDate time.Time) Event {
	ev.Date = refDate.Format(DateLayout)
	if !validClock(ev.StartTime) {
		ev.StartTime = DefaultStart
		ev.EndTime = DefaultEnd
	} else if !validClock(ev.EndTime) {
		ev.EndTime = plusOneHour(ev.StartTime)
	}
	if ev.Attendees == nil {
		ev.Attendees = []string{}
	}
	return ev
}

// validClock reports whether s is 24-hour HH:MM with hour 0-23, minute 0-59.
func validClock(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

// plusOneHour computes the default end for a valid start. Starts in the last
// hour of the day clamp to 23:59 so the event never crosses midnight.
func plusOneHour(start string) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return DefaultEnd
	}
	if t.Hour() == 23 {
		return "23:59"
	}
	return t.Add(time.Hour).Format("15:04")
}
