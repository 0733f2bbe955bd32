package history

import (
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"voice-events-go/internal/extractor"
	"voice-events-go/internal/logger"
)

const sheet = "Runs"

var header = []interface{}{
	"Run ID", "Processed At", "Title", "Date", "Start", "End",
	"Category", "Priority", "Transcript", "Note URL", "Event Link",
}

// Entry is one processed voice note in the ledger.
type Entry struct {
	RunID       string
	ProcessedAt time.Time
	Event       extractor.Event
	Transcript  string
	NoteURL     string
	EventLink   string
}

// Ledger appends processed voice notes to an xlsx workbook.
type Ledger struct {
	path string
	log  *logger.Logger
}

func NewLedger(path string, log *logger.Logger) *Ledger {
	return &Ledger{path: path, log: log}
}

// Append adds one row, creating the workbook and header on first use.
func (l *Ledger) Append(e Entry) error {
	f, fresh, err := l.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if fresh {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	row := []interface{}{
		e.RunID,
		e.ProcessedAt.Format(time.RFC3339),
		e.Event.Title,
		e.Event.Date,
		e.Event.StartTime,
		e.Event.EndTime,
		e.Event.Category,
		e.Event.Priority,
		e.Transcript,
		e.NoteURL,
		e.EventLink,
	}
	cell := fmt.Sprintf("A%d", len(rows)+1)
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	l.log.WithField("path", l.path).WithField("run_id", e.RunID).Debug("history row appended")
	return nil
}

// Entries reads every ledger row back.
func (l *Ledger) Entries() ([]Entry, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	var out []Entry
	for i, r := range rows {
		if i == 0 {
			continue
		}
		e := Entry{}
		if len(r) > 0 {
			e.RunID = r[0]
		}
		if len(r) > 1 {
			e.ProcessedAt, _ = time.Parse(time.RFC3339, r[1])
		}
		if len(r) > 2 {
			e.Event.Title = r[2]
		}
		if len(r) > 3 {
			e.Event.Date = r[3]
		}
		if len(r) > 4 {
			e.Event.StartTime = r[4]
		}
		if len(r) > 5 {
			e.Event.EndTime = r[5]
		}
		if len(r) > 6 {
			e.Event.Category = r[6]
		}
		if len(r) > 7 {
			e.Event.Priority = r[7]
		}
		if len(r) > 8 {
			e.Transcript = r[8]
		}
		if len(r) > 9 {
			e.NoteURL = r[9]
		}
		if len(r) > 10 {
			e.EventLink = r[10]
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *Ledger) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(l.path); err != nil {
		f := excelize.NewFile()
		defaultSheet := f.GetSheetName(0)
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, false, fmt.Errorf("create sheet: %w", err)
		}
		if defaultSheet != sheet {
			_ = f.DeleteSheet(defaultSheet)
		}
		return f, true, nil
	}
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	return f, false, nil
}
