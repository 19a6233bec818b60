// Package handlers provides HTTP handlers for optimisation runs, live
// progress and backtest reports.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/optimizer"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/services"
)

// Handler serves optimiser endpoints
type Handler struct {
	optimization *services.OptimizationService
	bus          *events.Bus
	accept       websocket.AcceptOptions
	log          zerolog.Logger
}

// NewHandler creates a new optimiser handler
func NewHandler(optimization *services.OptimizationService, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		optimization: optimization,
		bus:          bus,
		log:          log.With().Str("component", "optimizer_handlers").Logger(),
	}
}

// StartRequest starts a background optimisation. Zero config fields keep
// the configured defaults.
type StartRequest struct {
	Lottery string           `json:"lottery"`
	Variant string           `json:"variant"`
	Config  optimizer.Config `json:"config"`
	Resume  bool             `json:"resume"`
}

// HandleStartRun starts an optimisation in the background
// POST /api/optimizer/runs
func (h *Handler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v, err := scoring.ParseVariant(req.Variant)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Config.Merge(v).Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.optimization.Start(req.Lottery, v, req.Config, req.Resume)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownLottery):
			h.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrAlreadyRunning):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Msg("Failed to start optimisation")
			h.respondError(w, http.StatusInternalServerError, "Failed to start optimisation")
		}
		return
	}

	h.log.Info().Str("lottery", req.Lottery).Str("variant", string(v)).Msg("Optimisation started via API")
	h.respondJSON(w, http.StatusAccepted, status)
}

// HandleListRuns returns the status of every optimisation since start-up
// GET /api/optimizer/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	statuses := h.optimization.Statuses()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  statuses,
		"count": len(statuses),
	})
}

// HandleGetRun returns the status of one lottery and variant
// GET /api/optimizer/runs/{lottery}/{variant}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	lottery := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, ok := h.optimization.Status(lottery, v)
	if !ok {
		h.respondError(w, http.StatusNotFound, "No optimisation recorded")
		return
	}
	h.respondJSON(w, http.StatusOK, status)
}

// HandleCancelRun cancels a running optimisation
// DELETE /api/optimizer/runs/{lottery}/{variant}
func (h *Handler) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	lottery := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.optimization.Cancel(lottery, v) {
		h.respondError(w, http.StatusNotFound, "No running optimisation")
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"lottery":   lottery,
		"variant":   v,
		"cancelled": true,
	})
}

// HandleGetConfig returns the hyper-parameters a run uses by default
// GET /api/optimizer/config/{variant}
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"variant": v,
		"config":  h.optimization.Config(v),
		"space":   v.Space(),
	})
}

// HandleBacktest replays the active strategy and returns its report
// GET /api/lotteries/{lottery}/backtest/{variant}?depth=50
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	lottery := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth := 0
	if s := r.URL.Query().Get("depth"); s != "" {
		if depth, err = strconv.Atoi(s); err != nil || depth <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid depth")
			return
		}
	}

	report, active, err := h.optimization.Report(r.Context(), lottery, v, depth)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownLottery):
			h.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, history.ErrMissingData), errors.Is(err, scoring.ErrInsufficientHistory):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error().Err(err).Str("lottery", lottery).Msg("Backtest failed")
			h.respondError(w, http.StatusInternalServerError, "Backtest failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery":  lottery,
		"strategy": active,
		"report":   report,
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
