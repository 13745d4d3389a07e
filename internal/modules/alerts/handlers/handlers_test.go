package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patternwatch/internal/modules/alerts"
)

func setupTestHandler(t *testing.T) (*alerts.Repository, *sql.DB, http.Handler) {
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

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := alerts.NewRepository(db, log)

	router := chi.NewRouter()
	NewHandler(repo, log).RegisterRoutes(router)

	return repo, db, router
}

func TestTransition_MissingAlertReturns404(t *testing.T) {
	_, _, router := setupTestHandler(t)

	for _, path := range []string{"/alerts/missing/read", "/alerts/missing/acted", "/alerts/missing/dismiss"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
}

func TestTransition_IllegalReturns409(t *testing.T) {
	repo, _, router := setupTestHandler(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)
	_, err = repo.Dismiss(a.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+a.ID+"/acted", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransition_StoreFailureReturns500(t *testing.T) {
	repo, db, router := setupTestHandler(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	// A closed store is an outage, not a missing alert
	require.NoError(t, db.Close())

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+a.ID+"/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSetFeedback_MissingAlertReturns404(t *testing.T) {
	_, _, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/alerts/missing/feedback", strings.NewReader(`{"feedback":"thumbs_up"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetFeedback_UnknownValueReturns400(t *testing.T) {
	repo, _, router := setupTestHandler(t)

	a, err := repo.Create("user-1", "pattern-1", 80, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+a.ID+"/feedback", strings.NewReader(`{"feedback":"meh"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
