package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers strategy and run routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/lotteries/{lottery}/strategies/{variant}", h.HandleGetActive)
	r.Get("/lotteries/{lottery}/runs", h.HandleListRuns)

	r.Route("/runs/{id}", func(r chi.Router) {
		r.Get("/", h.HandleGetRun)
		r.Get("/log", h.HandleGetRunLog)
		r.Post("/activate", h.HandleActivateRun)
	})
}
