package matching

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the match runner over HTTP
type Handler struct {
	runner  *Runner
	runRepo *RunRepository
	stream  *Stream
	log     zerolog.Logger
}

// NewHandler creates a new matching handler
func NewHandler(runner *Runner, runRepo *RunRepository, stream *Stream, log zerolog.Logger) *Handler {
	return &Handler{
		runner:  runner,
		runRepo: runRepo,
		stream:  stream,
		log:     log.With().Str("handler", "matching").Logger(),
	}
}

// RegisterRoutes registers all matching routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/matching", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Get("/runs", h.HandleListRuns)
	})
}

// HandleRun handles POST /api/matching/run
// Scheduled callers authenticate with X-Scheduler-Secret, manual callers with
// X-User-ID (set by the session layer in front of this service).
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	trig := Trigger{
		Secret: r.Header.Get("X-Scheduler-Secret"),
		UserID: r.Header.Get("X-User-ID"),
	}

	summary, err := h.runner.RunCheck(r.Context(), trig)
	if errors.Is(err, ErrUnauthorized) {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Match run failed")
		http.Error(w, `{"error": "match run failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode run summary")
	}
}

// HandleListRuns handles GET /api/matching/runs?limit=N
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	runs, err := h.runRepo.ListRecent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list match runs")
		http.Error(w, `{"error": "failed to list runs"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": runs}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode runs")
	}
}
