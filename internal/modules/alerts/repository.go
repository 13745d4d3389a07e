package alerts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patternwatch/internal/database"
)

// alertsColumns is the list of columns for the alerts table.
// Column order must match scanAlert().
const alertsColumns = `id, user_id, pattern_id, similarity, snapshot_ref, status, feedback, created_at, read_at, acted_at`

// ErrNotFound is returned by mutations targeting an alert id that does not
// exist. Handlers map it to 404; any other repository error is a store
// failure.
var ErrNotFound = errors.New("alert not found")

// Repository handles alert database operations.
// Alerts are never deleted: historical feedback is retained as training
// signal for threshold tuning.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new alert repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "alerts").Logger(),
	}
}

// Create inserts a new alert with status unread. Only the matching runner
// calls this.
func (r *Repository) Create(userID, patternID string, similarity int, snapshotRef string) (*Alert, error) {
	a := &Alert{
		ID:          uuid.NewString(),
		UserID:      userID,
		PatternID:   patternID,
		Similarity:  similarity,
		SnapshotRef: snapshotRef,
		Status:      StatusUnread,
		Feedback:    FeedbackNone,
		CreatedAt:   time.Now(),
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	query := `
		INSERT INTO alerts
		(id, user_id, pattern_id, similarity, snapshot_ref, status, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		a.ID,
		a.UserID,
		a.PatternID,
		a.Similarity,
		a.SnapshotRef,
		string(a.Status),
		string(a.Feedback),
		a.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	r.log.Info().
		Str("alert_id", a.ID).
		Str("pattern_id", patternID).
		Int("similarity", similarity).
		Msg("Alert created")

	return a, nil
}

// HasRecent reports whether an alert for the pattern was created within the
// dedup window. Best-effort check-then-insert: an occasional duplicate under
// concurrent runs is an accepted, bounded cost.
func (r *Repository) HasRecent(patternID string, window time.Duration) (bool, error) {
	cutoff := time.Now().Add(-window).Unix()

	var exists int
	err := r.db.QueryRow(
		"SELECT 1 FROM alerts WHERE pattern_id = ? AND created_at >= ? LIMIT 1",
		patternID, cutoff,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}

	return true, nil
}

// GetByID retrieves an alert by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id string) (*Alert, error) {
	query := "SELECT " + alertsColumns + " FROM alerts WHERE id = ?"

	a, err := scanAlert(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return a, nil
}

// ListByUser returns a user's alerts, newest first, capped at limit
func (r *Repository) ListByUser(userID string, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + alertsColumns + ` FROM alerts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		a, err := scanAlertFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return result, nil
}

// ListByPattern returns a pattern's alerts, newest first. Historical alerts
// remain queryable after the pattern is soft-deleted.
func (r *Repository) ListByPattern(patternID string, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + alertsColumns + ` FROM alerts
		WHERE pattern_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, patternID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts by pattern: %w", err)
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		a, err := scanAlertFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return result, nil
}

// CountUnread returns the number of unread alerts for a user
func (r *Repository) CountUnread(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM alerts WHERE user_id = ? AND status = ?",
		userID, string(StatusUnread),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}

// MarkRead transitions an alert to read, recording the first-view timestamp.
// Idempotent: marking an already-read alert is a no-op.
func (r *Repository) MarkRead(id string) (*Alert, error) {
	return r.transition(id, StatusRead, func(a *Alert, now time.Time) {
		if a.ReadAt == nil {
			a.ReadAt = &now
		}
	})
}

// MarkActed transitions an alert to acted (the user confirms they traded on it)
func (r *Repository) MarkActed(id string) (*Alert, error) {
	return r.transition(id, StatusActed, func(a *Alert, now time.Time) {
		a.ActedAt = &now
		// Acting implies the alert was seen
		if a.ReadAt == nil {
			a.ReadAt = &now
		}
	})
}

// Dismiss transitions an alert to dismissed
func (r *Repository) Dismiss(id string) (*Alert, error) {
	return r.transition(id, StatusDismissed, nil)
}

// transition applies a validated status change and persists it. The read and
// the update run in one transaction so two concurrent transitions cannot both
// pass the legality check.
func (r *Repository) transition(id string, to Status, stamp func(*Alert, time.Time)) (*Alert, error) {
	var a *Alert

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		row := tx.QueryRow("SELECT "+alertsColumns+" FROM alerts WHERE id = ?", id)

		var scanErr error
		a, scanErr = scanAlert(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if scanErr != nil {
			return scanErr
		}

		if !CanTransition(a.Status, to) {
			return &ErrIllegalTransition{From: a.Status, To: to}
		}

		if a.Status == to {
			// Idempotent no-op (mark-read on an already-read alert)
			return nil
		}

		now := time.Now()
		a.Status = to
		if stamp != nil {
			stamp(a, now)
		}

		_, execErr := tx.Exec(
			"UPDATE alerts SET status = ?, read_at = ?, acted_at = ? WHERE id = ?",
			string(a.Status), nullUnix(a.ReadAt), nullUnix(a.ActedAt), a.ID,
		)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("alert_id", a.ID).
		Str("status", string(to)).
		Msg("Alert status updated")

	return a, nil
}

// SetFeedback records thumbs up/down on an alert. Feedback is orthogonal to
// status and settable in any state.
func (r *Repository) SetFeedback(id string, feedback Feedback) (*Alert, error) {
	if !feedback.Valid() {
		return nil, fmt.Errorf("unsupported feedback: %s", feedback)
	}

	a, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	a.Feedback = feedback

	_, err = r.db.Exec("UPDATE alerts SET feedback = ? WHERE id = ?", string(feedback), id)
	if err != nil {
		return nil, fmt.Errorf("failed to set alert feedback: %w", err)
	}

	r.log.Debug().
		Str("alert_id", id).
		Str("feedback", string(feedback)).
		Msg("Alert feedback set")

	return a, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row *sql.Row) (*Alert, error) {
	return scanFields(row)
}

func scanAlertFromRows(rows *sql.Rows) (*Alert, error) {
	return scanFields(rows)
}

func scanFields(s rowScanner) (*Alert, error) {
	var (
		a         Alert
		status    string
		feedback  string
		createdAt int64
		readAt    sql.NullInt64
		actedAt   sql.NullInt64
	)

	err := s.Scan(
		&a.ID,
		&a.UserID,
		&a.PatternID,
		&a.Similarity,
		&a.SnapshotRef,
		&status,
		&feedback,
		&createdAt,
		&readAt,
		&actedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = Status(status)
	a.Feedback = Feedback(feedback)
	a.CreatedAt = time.Unix(createdAt, 0)
	if readAt.Valid {
		t := time.Unix(readAt.Int64, 0)
		a.ReadAt = &t
	}
	if actedAt.Valid {
		t := time.Unix(actedAt.Int64, 0)
		a.ActedAt = &t
	}

	return &a, nil
}

// nullUnix converts an optional time to a nullable unix timestamp
func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
