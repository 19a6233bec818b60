// Package handlers provides HTTP handlers for stored strategies and
// optimisation runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
)

// Handler serves strategy endpoints
type Handler struct {
	store *strategies.Store
	log   zerolog.Logger
}

// NewHandler creates a new strategies handler
func NewHandler(store *strategies.Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("component", "strategy_handlers").Logger(),
	}
}

// HandleGetActive returns the weights a variant currently predicts with
// GET /api/lotteries/{lottery}/strategies/{variant}
func (h *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	active := h.store.Active(r.Context(), name, v)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery":  name,
		"variant":  v,
		"strategy": active,
		"space":    v.Space(),
	})
}

// HandleListRuns lists runs of one variant, newest first
// GET /api/lotteries/{lottery}/runs?variant=special_v7&limit=20
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.store.Repository().ListRuns(r.Context(), name, v, limit)
	if err != nil {
		h.log.Error().Err(err).Str("lottery", name).Msg("Failed to list runs")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery": name,
		"variant": v,
		"runs":    runs,
		"count":   len(runs),
	})
}

// HandleGetRun returns one run with its fitness log
// GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.Repository().GetRun(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}
	if run == nil {
		h.respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

// HandleGetRunLog returns the fitness log of a run
// GET /api/runs/{id}/log
func (h *Handler) HandleGetRunLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.store.Repository().GetLog(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get fitness log")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve fitness log")
		return
	}
	if len(entries) == 0 {
		h.respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": id,
		"log":    entries,
	})
}

// HandleActivateRun makes a stored run the active strategy
// POST /api/runs/{id}/activate
func (h *Handler) HandleActivateRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Repository().Activate(r.Context(), id); err != nil {
		if errors.Is(err, strategies.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to activate run")
		h.respondError(w, http.StatusInternalServerError, "Failed to activate run")
		return
	}

	h.log.Info().Str("run_id", id).Msg("Run activated")
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": id,
		"active": true,
	})
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
