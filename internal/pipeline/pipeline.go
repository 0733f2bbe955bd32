package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"voice-events-go/internal/audio"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/history"
	"voice-events-go/internal/logger"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Collaborator seams, one per stage. The concrete implementations live in
// audio, transcription, extractor, notion and gcal.
type (
	Recorder interface {
		Record(ctx context.Context, duration time.Duration, stop <-chan struct{}) (audio.Clip, error)
	}
	Transcriber interface {
		Transcribe(ctx context.Context, clip audio.Clip) (string, error)
	}
	Extractor interface {
		Extract(ctx context.Context, transcript string, refDate time.Time) (extractor.Result, error)
	}
	NotePublisher interface {
		Publish(ctx context.Context, ev extractor.Event) (string, error)
	}
	CalendarPublisher interface {
		Publish(ctx context.Context, ev extractor.Event) (string, error)
	}
	Ledger interface {
		Append(e history.Entry) error
	}
)

// Result is the single outcome of one voice note run.
type Result struct {
	RunID      string           `json:"run_id"`
	Status     Status           `json:"status"`
	Transcript string           `json:"transcript,omitempty"`
	Event      extractor.Event  `json:"event"`
	Source     extractor.Source `json:"source,omitempty"`
	NoteURL    string           `json:"note_url,omitempty"`
	EventLink  string           `json:"event_link,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// Pipeline sequences record -> transcribe -> extract -> publish note ->
// publish calendar for one voice note. Stages run strictly in order; the
// calendar publish is never attempted once the note publish has failed. The
// temporary audio file is removed best-effort once recording succeeded, no
// matter how the rest of the run ends.
type Pipeline struct {
	rec    Recorder
	tr     Transcriber
	ex     Extractor
	notes  NotePublisher
	cal    CalendarPublisher
	ledger Ledger
	log    *logger.Logger
	now    func() time.Time
}

// New wires the pipeline. ledger may be nil to disable history.
func New(rec Recorder, tr Transcriber, ex Extractor, notes NotePublisher, cal CalendarPublisher, ledger Ledger, log *logger.Logger) *Pipeline {
	return &Pipeline{
		rec:    rec,
		tr:     tr,
		ex:     ex,
		notes:  notes,
		cal:    cal,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}
}

// Process runs one voice note end to end. duration <= 0 records until stop is
// closed. Every internal failure is absorbed into the returned Result; this
// never panics or returns an error to the caller.
func (p *Pipeline) Process(ctx context.Context, duration time.Duration, stop <-chan struct{}) Result {
	start := time.Now()
	res := Result{RunID: uuid.New().String()}
	log := p.log.WithRun(res.RunID)

	fail := func(stage string, err error) Result {
		log.WithField("stage", stage).WithField("error", err.Error()).Warn("voice note run failed")
		res.Status = StatusError
		res.Error = fmt.Sprintf("%s error: %v", stage, err)
		res.DurationMs = time.Since(start).Milliseconds()
		return res
	}

	log.Info("recording")
	clip, err := p.rec.Record(ctx, duration, stop)
	if err != nil {
		return fail("recording", err)
	}
	defer func() {
		if err := clip.Remove(); err != nil {
			log.WithField("path", clip.Path).WithField("error", err.Error()).Warn("could not remove temp audio file")
		}
	}()

	log.Info("transcribing")
	transcript, err := p.tr.Transcribe(ctx, clip)
	if err != nil {
		return fail("transcription", err)
	}
	res.Transcript = transcript

	log.Info("extracting")
	refDate := p.now()
	extraction, err := p.ex.Extract(ctx, transcript, refDate)
	if err != nil {
		return fail("extraction", err)
	}
	res.Event = extraction.Event
	res.Source = extraction.Source

	log.WithField("title", res.Event.Title).Info("publishing note")
	noteURL, err := p.notes.Publish(ctx, res.Event)
	if err != nil {
		return fail("note publish", err)
	}
	res.NoteURL = noteURL

	log.Info("publishing calendar event")
	link, err := p.cal.Publish(ctx, res.Event)
	if err != nil {
		return fail("calendar publish", err)
	}
	res.EventLink = link

	if p.ledger != nil {
		entry := history.Entry{
			RunID:       res.RunID,
			ProcessedAt: refDate,
			Event:       res.Event,
			Transcript:  transcript,
			NoteURL:     noteURL,
			EventLink:   link,
		}
		if err := p.ledger.Append(entry); err != nil {
			log.WithField("error", err.Error()).Warn("could not append history row")
		}
	}

	res.Status = StatusSuccess
	res.DurationMs = time.Since(start).Milliseconds()
	log.WithField("duration_ms", res.DurationMs).Info("voice note processed")
	return res
}
