package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers prediction and review routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/lotteries/{lottery}/predictions", h.HandleListPredictions)
	r.Post("/lotteries/{lottery}/predictions", h.HandlePredict)
	r.Get("/lotteries/{lottery}/predictions/{variant}/{period}", h.HandleGetPrediction)
	r.Get("/lotteries/{lottery}/reviews", h.HandleListReviews)
	r.Post("/lotteries/{lottery}/reviews", h.HandleReview)
}
