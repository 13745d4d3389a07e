package matching

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RunRepository persists match run summaries (the ops view of the engine)
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "match_runs").Logger(),
	}
}

// Create inserts a run summary record
func (r *RunRepository) Create(summary *RunSummary) error {
	query := `
		INSERT INTO match_runs
		(id, triggered_by, started_at, finished_at, checked, alerts_created, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		summary.ID,
		summary.TriggeredBy,
		summary.StartedAt.Unix(),
		summary.FinishedAt.Unix(),
		summary.Checked,
		summary.AlertsCreated,
		summary.Errors,
	)
	if err != nil {
		return fmt.Errorf("failed to create match run: %w", err)
	}

	return nil
}

// RunRecord is a stored run summary row (without per-pattern results)
type RunRecord struct {
	ID            string    `json:"id"`
	TriggeredBy   string    `json:"triggered_by"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Checked       int       `json:"checked"`
	AlertsCreated int       `json:"alerts_created"`
	Errors        int       `json:"errors"`
}

// ListRecent returns the most recent runs, newest first
func (r *RunRepository) ListRecent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, triggered_by, started_at, finished_at, checked, alerts_created, errors
		FROM match_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match runs: %w", err)
	}
	defer rows.Close()

	var result []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.TriggeredBy, &startedAt, &finishedAt, &rec.Checked, &rec.AlertsCreated, &rec.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan match run: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.FinishedAt = time.Unix(finishedAt, 0)
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match runs: %w", err)
	}

	return result, nil
}
