package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers lottery and draw routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/lotteries", h.HandleListLotteries)
	r.Get("/lotteries/{lottery}/draws", h.HandleGetDraws)
	r.Post("/lotteries/{lottery}/import", h.HandleImport)
}
