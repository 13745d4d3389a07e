// Package handlers provides HTTP handlers for pattern operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"patternwatch/internal/modules/patterns"
)

// Handler handles pattern HTTP requests
type Handler struct {
	service *patterns.Service
	log     zerolog.Logger
}

// NewHandler creates a new pattern handler
func NewHandler(service *patterns.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "patterns").Logger(),
	}
}

// HandleCreate handles POST /api/patterns
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var params patterns.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	params.UserID = userID

	p, err := h.service.Create(r.Context(), params)
	if errors.Is(err, patterns.ErrPatternLimitReached) {
		writeError(w, http.StatusForbidden, "active pattern limit reached, upgrade to add more")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("Pattern creation failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /api/patterns
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	list, err := h.service.ListByUser(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list patterns")
		writeError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// HandleGet handles GET /api/patterns/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("pattern_id", id).Msg("Failed to get pattern")
		writeError(w, http.StatusInternalServerError, "failed to get pattern")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "pattern not found")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /api/patterns/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var params patterns.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Update(r.Context(), id, params)
	if errors.Is(err, patterns.ErrPatternLimitReached) {
		writeError(w, http.StatusForbidden, "active pattern limit reached, upgrade to add more")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("pattern_id", id).Msg("Pattern update failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /api/patterns/{id} (soft delete)
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(id); err != nil {
		h.log.Warn().Err(err).Str("pattern_id", id).Msg("Pattern delete failed")
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
