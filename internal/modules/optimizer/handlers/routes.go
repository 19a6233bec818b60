package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers optimiser and backtest routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/optimizer/runs", h.HandleStartRun)
	r.Get("/optimizer/runs", h.HandleListRuns)
	r.Get("/optimizer/runs/{lottery}/{variant}", h.HandleGetRun)
	r.Delete("/optimizer/runs/{lottery}/{variant}", h.HandleCancelRun)
	r.Get("/optimizer/config/{variant}", h.HandleGetConfig)

	r.Get("/lotteries/{lottery}/backtest/{variant}", h.HandleBacktest)
}

// RegisterStreamRoutes registers the long-lived WebSocket route. It must sit
// outside request timeouts.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/optimizer/stream", h.HandleStream)
}
