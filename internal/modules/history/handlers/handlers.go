// Package handlers provides HTTP handlers for stored draws.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/services"
)

// Handler serves lottery and draw endpoints
type Handler struct {
	draws *services.DrawService
	log   zerolog.Logger
}

// NewHandler creates a new draws handler
func NewHandler(draws *services.DrawService, log zerolog.Logger) *Handler {
	return &Handler{
		draws: draws,
		log:   log.With().Str("component", "draw_handlers").Logger(),
	}
}

// LotterySummary describes one configured lottery
type LotterySummary struct {
	Name         string `json:"name"`
	Draws        int    `json:"draws"`
	LatestPeriod int64  `json:"latest_period,omitempty"`
}

// HandleListLotteries lists configured lotteries with their draw counts
// GET /api/lotteries
func (h *Handler) HandleListLotteries(w http.ResponseWriter, r *http.Request) {
	out := make([]LotterySummary, 0, len(h.draws.Names()))
	for _, name := range h.draws.Names() {
		summary := LotterySummary{Name: name}

		count, err := h.draws.Count(r.Context(), name)
		if err != nil {
			h.log.Error().Err(err).Str("lottery", name).Msg("Failed to count draws")
			h.respondError(w, http.StatusInternalServerError, "Failed to count draws")
			return
		}
		summary.Draws = count

		if repo, err := h.draws.Repository(name); err == nil {
			if recent, err := repo.Recent(r.Context(), 1); err == nil && len(recent) > 0 {
				summary.LatestPeriod = recent[0].Period
			}
		}
		out = append(out, summary)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lotteries": out,
		"count":     len(out),
	})
}

// HandleGetDraws returns the latest decorated draws
// GET /api/lotteries/{lottery}/draws?limit=50
func (h *Handler) HandleGetDraws(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	limit := parseLimit(r, 50)

	hist, err := h.draws.History(r.Context(), name)
	if err != nil {
		h.respondLotteryError(w, err)
		return
	}
	if len(hist) > limit {
		hist = hist[:limit]
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery": name,
		"draws":   hist,
		"count":   len(hist),
	})
}

// HandleImport imports the configured feed of a lottery
// POST /api/lotteries/{lottery}/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")

	n, err := h.draws.Import(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrUnknownLottery) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("lottery", name).Msg("Import failed")
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery":  name,
		"imported": n,
	})
}

func (h *Handler) respondLotteryError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrUnknownLottery) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Failed to load draws")
	h.respondError(w, http.StatusInternalServerError, "Failed to load draws")
}

func parseLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
	})
}
