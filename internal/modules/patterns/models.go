// Package patterns owns registered chart patterns and their matching configuration.
package patterns

import (
	"fmt"
	"time"

	"patternwatch/internal/domain"
	"patternwatch/internal/fingerprint"
)

// Pattern represents a user's reference chart shape to watch for
type Pattern struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ImageRef       string           `json:"image_ref"`
	Pair           string           `json:"pair"`
	Timeframe      domain.Timeframe `json:"timeframe"`
	Direction      domain.Direction `json:"direction"`
	Fingerprint    []float64        `json:"-"`
	Threshold      int              `json:"threshold"`
	CheckFrequency string           `json:"check_frequency"`
	Active         bool             `json:"active"`
	LastCheckedAt  *time.Time       `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Validate checks the pattern's invariants before database insertion
func (p *Pattern) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !domain.ValidPair(p.Pair) {
		return fmt.Errorf("unsupported currency pair: %s", p.Pair)
	}
	if !p.Timeframe.Valid() {
		return fmt.Errorf("unsupported timeframe: %s", p.Timeframe)
	}
	if !p.Direction.Valid() {
		return fmt.Errorf("unsupported direction: %s", p.Direction)
	}
	if p.Threshold < 0 || p.Threshold > 100 {
		return fmt.Errorf("threshold must be in [0,100], got %d", p.Threshold)
	}
	if len(p.Fingerprint) != fingerprint.Dim {
		return fmt.Errorf("fingerprint must have %d dimensions, got %d", fingerprint.Dim, len(p.Fingerprint))
	}
	return nil
}
