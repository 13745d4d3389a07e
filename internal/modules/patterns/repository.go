package patterns

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"patternwatch/internal/domain"
)

// patternsColumns is the list of columns for the patterns table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match scanPattern().
const patternsColumns = `id, user_id, name, description, image_ref, pair, timeframe, direction, fingerprint, threshold, check_frequency, active, last_checked_at, created_at, updated_at`

// Repository handles pattern database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new pattern repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "patterns").Logger(),
	}
}

// Create inserts a new pattern record
func (r *Repository) Create(p *Pattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	blob, err := encodeFingerprint(p.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to encode fingerprint: %w", err)
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO patterns
		(id, user_id, name, description, image_ref, pair, timeframe, direction,
		 fingerprint, threshold, check_frequency, active, last_checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		p.ImageRef,
		p.Pair,
		string(p.Timeframe),
		string(p.Direction),
		blob,
		p.Threshold,
		p.CheckFrequency,
		boolToInt(p.Active),
		nullUnix(p.LastCheckedAt),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	r.log.Info().
		Str("pattern_id", p.ID).
		Str("user_id", p.UserID).
		Str("pair", p.Pair).
		Str("timeframe", string(p.Timeframe)).
		Msg("Pattern created")

	return nil
}

// GetByID retrieves a pattern by id. Returns (nil, nil) when not found.
func (r *Repository) GetByID(id string) (*Pattern, error) {
	query := "SELECT " + patternsColumns + " FROM patterns WHERE id = ?"

	p, err := scanPattern(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return p, nil
}

// ListActive returns all active patterns, optionally scoped to one user
// (empty userID = all users). Ordered by creation time so runs are stable.
func (r *Repository) ListActive(userID string) ([]Pattern, error) {
	query := "SELECT " + patternsColumns + " FROM patterns WHERE active = 1"
	args := []interface{}{}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at ASC"

	return r.queryPatterns(query, args...)
}

// ListActiveByTimeframe returns a user's active patterns sharing a check
// cadence. Used to batch patterns by timeframe.
func (r *Repository) ListActiveByTimeframe(userID string, timeframe domain.Timeframe) ([]Pattern, error) {
	query := "SELECT " + patternsColumns + ` FROM patterns
		WHERE active = 1 AND user_id = ? AND timeframe = ?
		ORDER BY created_at ASC`

	return r.queryPatterns(query, userID, string(timeframe))
}

// ListByUser returns all of a user's patterns, active or not, newest first
func (r *Repository) ListByUser(userID string) ([]Pattern, error) {
	query := "SELECT " + patternsColumns + " FROM patterns WHERE user_id = ? ORDER BY created_at DESC"
	return r.queryPatterns(query, userID)
}

// CountActiveByUser returns the number of active patterns a user has.
// Used to enforce the per-plan active pattern cap.
func (r *Repository) CountActiveByUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM patterns WHERE active = 1 AND user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active patterns: %w", err)
	}
	return count, nil
}

// Update persists pattern mutations. The fingerprint is written wholesale:
// callers recompute it when the reference image changes, never patch it.
func (r *Repository) Update(p *Pattern) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	blob, err := encodeFingerprint(p.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to encode fingerprint: %w", err)
	}

	p.UpdatedAt = time.Now()

	query := `
		UPDATE patterns
		SET name = ?, description = ?, image_ref = ?, pair = ?, timeframe = ?,
		    direction = ?, fingerprint = ?, threshold = ?, check_frequency = ?,
		    active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		p.Name,
		p.Description,
		p.ImageRef,
		p.Pair,
		string(p.Timeframe),
		string(p.Direction),
		blob,
		p.Threshold,
		p.CheckFrequency,
		boolToInt(p.Active),
		p.UpdatedAt.Unix(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("pattern not found: %s", p.ID)
	}

	r.log.Info().Str("pattern_id", p.ID).Msg("Pattern updated")
	return nil
}

// SoftDelete flips the active flag to false. Patterns are never physically
// removed so historical alerts keep a resolvable reference.
func (r *Repository) SoftDelete(id string) error {
	result, err := r.db.Exec(
		"UPDATE patterns SET active = 0, updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete pattern: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("pattern not found: %s", id)
	}

	r.log.Info().Str("pattern_id", id).Msg("Pattern soft-deleted")
	return nil
}

// TouchLastChecked records when the matching runner last examined a pattern
func (r *Repository) TouchLastChecked(id string, checkedAt time.Time) error {
	_, err := r.db.Exec(
		"UPDATE patterns SET last_checked_at = ? WHERE id = ?",
		checkedAt.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch last_checked_at: %w", err)
	}
	return nil
}

// queryPatterns runs a multi-row pattern query and scans the results
func (r *Repository) queryPatterns(query string, args ...interface{}) ([]Pattern, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var result []Pattern
	for rows.Next() {
		p, err := scanPatternFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	return result, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPattern(row *sql.Row) (*Pattern, error) {
	return scanFields(row)
}

func scanPatternFromRows(rows *sql.Rows) (*Pattern, error) {
	return scanFields(rows)
}

func scanFields(s rowScanner) (*Pattern, error) {
	var (
		p           Pattern
		timeframe   string
		direction   string
		blob        []byte
		active      int
		lastChecked sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)

	err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.ImageRef,
		&p.Pair,
		&timeframe,
		&direction,
		&blob,
		&p.Threshold,
		&p.CheckFrequency,
		&active,
		&lastChecked,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Timeframe = domain.Timeframe(timeframe)
	p.Direction = domain.Direction(direction)
	p.Active = active != 0
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	if lastChecked.Valid {
		t := time.Unix(lastChecked.Int64, 0)
		p.LastCheckedAt = &t
	}

	p.Fingerprint, err = decodeFingerprint(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fingerprint: %w", err)
	}

	return &p, nil
}

// encodeFingerprint serializes the vector as a msgpack blob
func encodeFingerprint(vec []float64) ([]byte, error) {
	return msgpack.Marshal(vec)
}

// decodeFingerprint restores the vector from its msgpack blob
func decodeFingerprint(blob []byte) ([]float64, error) {
	var vec []float64
	if err := msgpack.Unmarshal(blob, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullUnix converts an optional time to a nullable unix timestamp
func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
