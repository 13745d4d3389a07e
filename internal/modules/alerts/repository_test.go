package alerts

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE alerts (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			pattern_id   TEXT NOT NULL,
			similarity   INTEGER NOT NULL,
			snapshot_ref TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'unread',
			feedback     TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			read_at      INTEGER,
			acted_at     INTEGER
		)
	`)
	require.NoError(t, err, "Failed to create test table")

	return db
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(setupTestDB(t), log)
}

func TestCreate_StartsUnread(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 85, "https://cdn.example.com/snap.msgpack")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, StatusUnread, a.Status)
	assert.Equal(t, FeedbackNone, a.Feedback)
	assert.Nil(t, a.ReadAt)
	assert.Nil(t, a.ActedAt)

	got, err := repo.GetByID(a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 85, got.Similarity)
	assert.Equal(t, StatusUnread, got.Status)
}

func TestCreate_RejectsOutOfRangeSimilarity(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create("user-1", "pattern-1", 101, "")
	require.Error(t, err)

	_, err = repo.Create("user-1", "pattern-1", -1, "")
	require.Error(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkRead_RecordsFirstViewOnce(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	read, err := repo.MarkRead(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRead, read.Status)
	require.NotNil(t, read.ReadAt)
	firstRead := *read.ReadAt

	// Second mark-read is a no-op and keeps the original timestamp
	again, err := repo.MarkRead(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRead, again.Status)
	require.NotNil(t, again.ReadAt)
	assert.Equal(t, firstRead.Unix(), again.ReadAt.Unix())
}

func TestMarkActed_ImpliesRead(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	acted, err := repo.MarkActed(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActed, acted.Status)
	require.NotNil(t, acted.ActedAt)
	require.NotNil(t, acted.ReadAt)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	repo := newTestRepo(t)

	acted, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)
	_, err = repo.MarkActed(acted.ID)
	require.NoError(t, err)

	dismissed, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)
	_, err = repo.Dismiss(dismissed.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func(string) (*Alert, error)
		id   string
	}{
		{"dismiss acted", repo.Dismiss, acted.ID},
		{"read acted", repo.MarkRead, acted.ID},
		{"act on dismissed", repo.MarkActed, dismissed.ID},
		{"read dismissed", repo.MarkRead, dismissed.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call(tt.id)
			require.Error(t, err)

			var illegal *ErrIllegalTransition
			assert.ErrorAs(t, err, &illegal)
		})
	}
}

func TestMutations_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.MarkRead("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.MarkActed("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Dismiss("missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.SetFeedback("missing", FeedbackThumbsUp)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDismissFromRead(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	_, err = repo.MarkRead(a.ID)
	require.NoError(t, err)

	got, err := repo.Dismiss(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, got.Status)
}

func TestSetFeedback_WorksInAnyState(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)
	_, err = repo.Dismiss(a.ID)
	require.NoError(t, err)

	// Feedback is orthogonal to status, even terminal ones
	got, err := repo.SetFeedback(a.ID, FeedbackThumbsDown)
	require.NoError(t, err)
	assert.Equal(t, FeedbackThumbsDown, got.Feedback)

	reread, err := repo.GetByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, FeedbackThumbsDown, reread.Feedback)
	assert.Equal(t, StatusDismissed, reread.Status)
}

func TestSetFeedback_RejectsUnknownValue(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	_, err = repo.SetFeedback(a.ID, "meh")
	require.Error(t, err)
}

func TestListByUser_NewestFirstWithLimit(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.Create("user-1", "pattern-1", 70, "")
	require.NoError(t, err)
	second, err := repo.Create("user-1", "pattern-2", 90, "")
	require.NoError(t, err)
	// Force distinct created_at values: Create stamps at second resolution
	_, err = repo.db.Exec("UPDATE alerts SET created_at = created_at - 60 WHERE id = ?", first.ID)
	require.NoError(t, err)
	_, err = repo.Create("user-2", "pattern-3", 80, "")
	require.NoError(t, err)

	got, err := repo.ListByUser("user-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	capped, err := repo.ListByUser("user-1", 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, second.ID, capped[0].ID)
}

func TestListByPattern(t *testing.T) {
	repo := newTestRepo(t)

	a, err := repo.Create("user-1", "pattern-1", 70, "")
	require.NoError(t, err)
	_, err = repo.Create("user-1", "pattern-2", 90, "")
	require.NoError(t, err)

	got, err := repo.ListByPattern("pattern-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestCountUnread(t *testing.T) {
	repo := newTestRepo(t)

	count, err := repo.CountUnread("user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)
	_, err = repo.Create("user-1", "pattern-2", 80, "")
	require.NoError(t, err)

	count, err = repo.CountUnread("user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = repo.MarkRead(a.ID)
	require.NoError(t, err)

	count, err = repo.CountUnread("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHasRecent_DedupWindow(t *testing.T) {
	repo := newTestRepo(t)

	recent, err := repo.HasRecent("pattern-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, recent)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	recent, err = repo.HasRecent("pattern-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, recent)

	// Other patterns are unaffected
	recent, err = repo.HasRecent("pattern-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, recent)

	// Age the alert past the window and the dedup check clears
	_, err = repo.db.Exec(
		"UPDATE alerts SET created_at = ? WHERE id = ?",
		time.Now().Add(-2*time.Hour).Unix(), a.ID,
	)
	require.NoError(t, err)

	recent, err = repo.HasRecent("pattern-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, recent)
}
