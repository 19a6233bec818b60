package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scoring routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/scoring/variants", h.HandleListVariants)     // Variants and parameter spaces
	r.Get("/scoring/categories", h.HandleListCategories) // Category table
	r.Get("/scoring/values/{value}", h.HandleGetValue)   // Labels of one value

	// What-if analysis
	r.Post("/scoring/what-if", h.HandleWhatIf) // Predict and backtest custom weights
}
