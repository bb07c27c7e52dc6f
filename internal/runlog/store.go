package runlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// Summary is the list view of a stored run.
type Summary struct {
	ID        string               `json:"id"`
	Prompt    string               `json:"prompt"`
	Status    models.Stage         `json:"status"`
	Mode      models.SynthesisMode `json:"mode,omitempty"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
}

// SaveRun persists a completed run. The full run record is stored as a
// JSON payload alongside the queryable columns.
func (db *DB) SaveRun(run *models.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.Exec(`
		INSERT INTO runs (id, prompt, status, mode, failed_stage, failure_reason, final_answer, started_at, finished_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Prompt, string(run.Status), string(run.Mode), string(run.FailedStage),
		run.FailureReason, run.FinalAnswer, formatTime(run.StartedAt), formatTime(run.FinishedAt), string(payload))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when no run matches.
func (db *DB) GetRun(id string) (*models.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`SELECT payload FROM runs WHERE id = ?`, id)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run models.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ResolveIDPrefix returns the full ID of the newest run whose ID starts
// with prefix, searching the whole table. Returns "" when none matches.
func (db *DB) ResolveIDPrefix(prefix string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id FROM runs WHERE id LIKE ? || '%'
		ORDER BY started_at DESC LIMIT 1
	`, prefix)

	var id string
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve run id: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, prompt, status, mode, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s                    Summary
			mode                 string
			startedAt, finishedAt string
		)
		if err := rows.Scan(&s.ID, &s.Prompt, &s.Status, &mode, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Mode = models.SynthesisMode(mode)
		s.StartedAt, _ = parseTime(startedAt)
		finished, _ := parseTime(finishedAt)
		s.Duration = finished.Sub(s.StartedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
