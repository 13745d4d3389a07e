package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"unread to read", StatusUnread, StatusRead, true},
		{"unread to acted", StatusUnread, StatusActed, true},
		{"unread to dismissed", StatusUnread, StatusDismissed, true},
		{"read to acted", StatusRead, StatusActed, true},
		{"read to dismissed", StatusRead, StatusDismissed, true},
		{"read to read is idempotent", StatusRead, StatusRead, true},
		{"read back to unread", StatusRead, StatusUnread, false},
		{"unread to unread", StatusUnread, StatusUnread, false},
		{"acted is terminal", StatusActed, StatusDismissed, false},
		{"acted to read", StatusActed, StatusRead, false},
		{"acted to acted", StatusActed, StatusActed, false},
		{"dismissed is terminal", StatusDismissed, StatusActed, false},
		{"dismissed to read", StatusDismissed, StatusRead, false},
		{"dismissed to dismissed", StatusDismissed, StatusDismissed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFeedbackValid(t *testing.T) {
	assert.True(t, FeedbackNone.Valid())
	assert.True(t, FeedbackThumbsUp.Valid())
	assert.True(t, FeedbackThumbsDown.Valid())
	assert.False(t, Feedback("meh").Valid())
}

func TestAlertValidate(t *testing.T) {
	valid := Alert{
		ID:         "a-1",
		UserID:     "user-1",
		PatternID:  "p-1",
		Similarity: 80,
		Status:     StatusUnread,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Alert)
	}{
		{"missing user", func(a *Alert) { a.UserID = "" }},
		{"missing pattern", func(a *Alert) { a.PatternID = "" }},
		{"similarity over 100", func(a *Alert) { a.Similarity = 101 }},
		{"similarity negative", func(a *Alert) { a.Similarity = -1 }},
		{"bad feedback", func(a *Alert) { a.Feedback = "meh" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			assert.Error(t, a.Validate())
		})
	}
}
