package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all alert routes.
// The /alerts/stream WebSocket endpoint is registered separately by the
// server since it belongs to the matching stream hub.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/unread-count", h.HandleUnreadCount)
		r.Post("/{id}/read", func(w http.ResponseWriter, r *http.Request) {
			h.HandleMarkRead(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/acted", func(w http.ResponseWriter, r *http.Request) {
			h.HandleMarkActed(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/dismiss", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDismiss(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/{id}/feedback", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSetFeedback(w, r, chi.URLParam(r, "id"))
		})
	})
}
