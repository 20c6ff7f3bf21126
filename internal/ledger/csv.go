package ledger

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/flyersgrade/flyersgrade/internal/model"
)

// CSVLedger appends rows to a plain CSV file. The file is created lazily
// with the header before the first append; until then Export reports the
// store as absent.
type CSVLedger struct {
	path string
	mu   sync.Mutex // serializes appends from concurrent submissions
}

var _ Ledger = (*CSVLedger)(nil)

// NewCSV returns a ledger backed by the CSV file at path.
func NewCSV(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

func (l *CSVLedger) Append(rec model.SubmissionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Op: "open " + l.path, Wrapped: err}
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(Header); err != nil {
			f.Close()
			return &WriteError{Op: "write header", Wrapped: err}
		}
	}
	if err := w.Write(row(rec)); err != nil {
		f.Close()
		return &WriteError{Op: "write row", Wrapped: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return &WriteError{Op: "flush", Wrapped: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Op: "close", Wrapped: err}
	}
	return nil
}

func (l *CSVLedger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *CSVLedger) Close() error { return nil }
