// Package alerts owns alert records and their lifecycle state machine.
package alerts

import (
	"fmt"
	"time"
)

// Status represents an alert's lifecycle state.
//
// Transitions are forward-only:
//
//	unread -> read      (automatic on first view; mark-read is idempotent)
//	unread -> acted     (user can act without opening first)
//	read   -> acted
//	unread -> dismissed
//	read   -> dismissed
//
// acted and dismissed are terminal. Feedback is orthogonal to status and may
// be set in any state.
type Status string

const (
	StatusUnread    Status = "unread"
	StatusRead      Status = "read"
	StatusActed     Status = "acted"
	StatusDismissed Status = "dismissed"
)

// Feedback represents optional user feedback on an alert
type Feedback string

const (
	FeedbackNone       Feedback = ""
	FeedbackThumbsUp   Feedback = "thumbs_up"
	FeedbackThumbsDown Feedback = "thumbs_down"
)

// Valid reports whether the feedback value is one of the supported set
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackNone, FeedbackThumbsUp, FeedbackThumbsDown:
		return true
	}
	return false
}

// ErrIllegalTransition is returned when a status change would move an alert
// backwards or out of a terminal state.
type ErrIllegalTransition struct {
	From Status
	To   Status
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal alert status transition: %s -> %s", e.From, e.To)
}

// CanTransition reports whether a status change is legal
func CanTransition(from, to Status) bool {
	if from == to {
		// Idempotent re-application (mark-read on a read alert)
		return to == StatusRead
	}
	switch from {
	case StatusUnread:
		return to == StatusRead || to == StatusActed || to == StatusDismissed
	case StatusRead:
		return to == StatusActed || to == StatusDismissed
	}
	// acted and dismissed are terminal
	return false
}

// Alert represents a notification that a pattern matched current conditions
type Alert struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PatternID   string     `json:"pattern_id"`
	Similarity  int        `json:"similarity"`
	SnapshotRef string     `json:"snapshot_ref,omitempty"`
	Status      Status     `json:"status"`
	Feedback    Feedback   `json:"feedback,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	ActedAt     *time.Time `json:"acted_at,omitempty"`
}

// Validate checks the alert's invariants before database insertion
func (a *Alert) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if a.PatternID == "" {
		return fmt.Errorf("pattern id is required")
	}
	if a.Similarity < 0 || a.Similarity > 100 {
		return fmt.Errorf("similarity must be in [0,100], got %d", a.Similarity)
	}
	if !a.Feedback.Valid() {
		return fmt.Errorf("unsupported feedback: %s", a.Feedback)
	}
	return nil
}
