// Package handlers provides HTTP handlers for alert operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"patternwatch/internal/modules/alerts"
)

// Handler handles alert HTTP requests
type Handler struct {
	repo *alerts.Repository
	log  zerolog.Logger
}

// NewHandler creates a new alert handler
func NewHandler(repo *alerts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "alerts").Logger(),
	}
}

// HandleList handles GET /api/alerts?limit=N
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	list, err := h.repo.ListByUser(userID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list alerts")
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// HandleUnreadCount handles GET /api/alerts/unread-count
func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	count, err := h.repo.CountUnread(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count unread alerts")
		writeError(w, http.StatusInternalServerError, "failed to count unread alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// HandleMarkRead handles POST /api/alerts/{id}/read
// Idempotent: re-reading an already-read alert succeeds without change.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request, id string) {
	h.applyTransition(w, id, h.repo.MarkRead)
}

// HandleMarkActed handles POST /api/alerts/{id}/acted
func (h *Handler) HandleMarkActed(w http.ResponseWriter, r *http.Request, id string) {
	h.applyTransition(w, id, h.repo.MarkActed)
}

// HandleDismiss handles POST /api/alerts/{id}/dismiss
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request, id string) {
	h.applyTransition(w, id, h.repo.Dismiss)
}

func (h *Handler) applyTransition(w http.ResponseWriter, id string, fn func(string) (*alerts.Alert, error)) {
	a, err := fn(id)

	var illegal *alerts.ErrIllegalTransition
	switch {
	case err == nil:
	case errors.As(err, &illegal):
		writeError(w, http.StatusConflict, illegal.Error())
		return
	case errors.Is(err, alerts.ErrNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
		return
	default:
		h.log.Error().Err(err).Str("alert_id", id).Msg("Alert status update failed")
		writeError(w, http.StatusInternalServerError, "failed to update alert")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// feedbackRequest is the body of POST /api/alerts/{id}/feedback
type feedbackRequest struct {
	Feedback alerts.Feedback `json:"feedback"`
}

// HandleSetFeedback handles POST /api/alerts/{id}/feedback
func (h *Handler) HandleSetFeedback(w http.ResponseWriter, r *http.Request, id string) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Feedback.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported feedback value")
		return
	}

	a, err := h.repo.SetFeedback(id, req.Feedback)
	if errors.Is(err, alerts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("alert_id", id).Msg("Alert feedback update failed")
		writeError(w, http.StatusInternalServerError, "failed to set feedback")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
