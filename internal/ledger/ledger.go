// Package ledger is the append-only record of every graded submission.
//
// This is the one mutable shared resource in the system: every append must
// serialize, and a lost row is a correctness problem for the instructor
// reviewing results, so write failures surface instead of being swallowed.
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/flyersgrade/flyersgrade/internal/model"
)

// Header is the fixed column set of the exported store.
var Header = []string{"timestamp", "student_name", "exercise_id", "exercise_title", "answers", "score", "feedback"}

// Ledger persists submission records. There is no primary key and no
// update or delete path; repeated attempts each produce a fresh row.
type Ledger interface {
	// Append durably stores one record. Fails with *WriteError when the
	// underlying storage is unwritable.
	Append(rec model.SubmissionRecord) error
	// Export returns the full store rendered as CSV bytes with Header as
	// the first row, or (nil, nil) when the store was never initialized.
	Export() ([]byte, error)
	Close() error
}

// Open selects a backend by name: "csv" (append-only file) or "sqlite".
func Open(backend, path string) (Ledger, error) {
	switch backend {
	case "csv":
		return NewCSV(path), nil
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}

// WriteError wraps a failed append so callers can tell persistence
// failures apart from grading failures.
type WriteError struct {
	Op      string
	Wrapped error
}

func (e *WriteError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("ledger write: %s: %v", e.Op, e.Wrapped)
	}
	return "ledger write: " + e.Op
}

func (e *WriteError) Unwrap() error {
	return e.Wrapped
}

func row(rec model.SubmissionRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.StudentName,
		rec.ExerciseID,
		rec.ExerciseTitle,
		rec.Answers,
		strconv.Itoa(rec.Score),
		rec.Feedback,
	}
}
