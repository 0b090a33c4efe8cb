package store

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one processed request as kept in the history.
type Run struct {
	ID          int64
	RequestID   string
	Mode        string
	Input       string
	Model       string
	Success     bool
	Error       string
	Suggestions string // JSON array of the validated or fallback suggestions
	RawResponse string
	Elapsed     time.Duration
	CreatedAt   time.Time
}

func (db *DB) InsertRun(r *Run) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := db.Exec(
		`INSERT INTO runs (request_id, mode, input, model, success, error, suggestions, raw_response, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.Mode, r.Input, r.Model, r.Success, r.Error, r.Suggestions, r.RawResponse,
		r.Elapsed.Milliseconds(),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return result.LastInsertId()
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	return db.queryRuns(
		`SELECT id, request_id, mode, input, model, success, error, suggestions, raw_response, elapsed_ms, created_at
		 FROM runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
}

// ClearRuns deletes the whole history and returns how many runs were removed.
func (db *DB) ClearRuns() (int64, error) {
	result, err := db.Exec("DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clearing runs: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) queryRuns(query string, args ...interface{}) ([]Run, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var requestID, input, errMsg, suggestions, raw sql.NullString
		var elapsedMS int64
		var createdStr string

		if err := rows.Scan(
			&r.ID, &requestID, &r.Mode, &input, &r.Model, &r.Success, &errMsg,
			&suggestions, &raw, &elapsedMS, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		r.RequestID = requestID.String
		r.Input = input.String
		r.Error = errMsg.String
		r.Suggestions = suggestions.String
		r.RawResponse = raw.String
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdStr); err == nil {
			r.CreatedAt = t
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}
