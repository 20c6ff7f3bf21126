package ledger

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/flyersgrade/flyersgrade/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores submissions in a single append-only table and relies
// on SQLite's own write serialization instead of a process-level lock.
// Export renders the rows into the same CSV shape the file backend keeps.
type SQLiteLedger struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLite opens (or creates) the database at path and ensures the
// submissions table exists.
func NewSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		student_name TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		exercise_title TEXT NOT NULL,
		answers TEXT NOT NULL,
		score INTEGER NOT NULL,
		feedback TEXT NOT NULL
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLedger) Append(rec model.SubmissionRecord) error {
	_, err := l.db.Exec(
		`INSERT INTO submissions (timestamp, student_name, exercise_id, exercise_title, answers, score, feedback)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.StudentName, rec.ExerciseID, rec.ExerciseTitle,
		rec.Answers, rec.Score, rec.Feedback,
	)
	if err != nil {
		return &WriteError{Op: "insert submission", Wrapped: err}
	}
	return nil
}

func (l *SQLiteLedger) Export() ([]byte, error) {
	rows, err := l.db.Query(
		`SELECT timestamp, student_name, exercise_id, exercise_title, answers, score, feedback
		 FROM submissions ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for rows.Next() {
		var ts, name, exID, exTitle, answers, feedback string
		var score int
		if err := rows.Scan(&ts, &name, &exID, &exTitle, &answers, &score, &feedback); err != nil {
			return nil, err
		}
		if err := w.Write([]string{ts, name, exID, exTitle, answers, strconv.Itoa(score), feedback}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
