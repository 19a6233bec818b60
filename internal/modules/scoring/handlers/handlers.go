// Package handlers provides HTTP handlers for the scoring API: strategy
// variants, the category table and what-if scoring with custom weights.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/backtest"
	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/services"
)

// Handler serves scoring endpoints
type Handler struct {
	draws        *services.DrawService
	optimization *services.OptimizationService
	predictions  *predictions.Service
	table        *categories.Table
	log          zerolog.Logger
}

// NewHandler creates a new scoring handler
func NewHandler(draws *services.DrawService, optimization *services.OptimizationService, svc *predictions.Service, engine *scoring.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		draws:        draws,
		optimization: optimization,
		predictions:  svc,
		table:        engine.Table(),
		log:          log.With().Str("module", "scoring_handlers").Logger(),
	}
}

// VariantInfo describes one strategy variant
type VariantInfo struct {
	Variant scoring.Variant `json:"variant"`
	Kind    scoring.Kind    `json:"kind"`
	Space   scoring.Space   `json:"space"`
}

// CategoryInfo lists the labels of one category with their values
type CategoryInfo struct {
	Category categories.Category `json:"category"`
	Labels   []LabelInfo         `json:"labels"`
}

// LabelInfo is one label and the values carrying it
type LabelInfo struct {
	Label   string `json:"label"`
	Members []int  `json:"members"`
}

// WhatIfRequest scores custom weights against stored history
type WhatIfRequest struct {
	Lottery string          `json:"lottery"`
	Variant string          `json:"variant"`
	Weights scoring.Weights `json:"weights"`
	Depth   int             `json:"depth,omitempty"`
}

// WhatIfResponse holds the prediction and backtest of custom weights
type WhatIfResponse struct {
	Lottery    string              `json:"lottery"`
	Variant    scoring.Variant     `json:"variant"`
	Weights    scoring.Weights     `json:"weights"`
	OutOfRange []string            `json:"out_of_range,omitempty"`
	Prediction *predictions.Record `json:"prediction"`
	Report     *backtest.Report    `json:"report"`
	Timestamp  string              `json:"timestamp"`
}

// HandleListVariants returns every variant with its parameter space
// GET /api/scoring/variants
func (h *Handler) HandleListVariants(w http.ResponseWriter, r *http.Request) {
	variants := scoring.Variants()
	out := make([]VariantInfo, 0, len(variants))
	for _, v := range variants {
		out = append(out, VariantInfo{Variant: v, Kind: v.Kind(), Space: v.Space()})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"variants": out,
		"count":    len(out),
	})
}

// HandleListCategories returns the category table
// GET /api/scoring/categories
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.table.Categories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, c := range cats {
		info := CategoryInfo{Category: c}
		for _, label := range h.table.Labels(c) {
			info.Labels = append(info.Labels, LabelInfo{Label: label, Members: h.table.Members(c, label)})
		}
		out = append(out, info)
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": out,
	})
}

// HandleGetValue returns the label of a value in every category
// GET /api/scoring/values/{value}
func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(chi.URLParam(r, "value"))
	if err != nil || !categories.ValidValue(value) {
		h.respondError(w, http.StatusBadRequest, "Value must be an integer within [1,49]")
		return
	}

	labels := make(map[categories.Category]string)
	for _, c := range h.table.Categories() {
		labels[c] = h.table.LabelOf(c, value)
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"value":  value,
		"tail":   categories.Tail(value),
		"labels": labels,
	})
}

// HandleWhatIf predicts and backtests custom weights without storing anything
// POST /api/scoring/what-if
func (h *Handler) HandleWhatIf(w http.ResponseWriter, r *http.Request) {
	var req WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v, err := scoring.ParseVariant(req.Variant)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Depth < 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid depth")
		return
	}
	depth := req.Depth
	if depth == 0 {
		depth = h.optimization.Config(v).Depth
	}
	weights := req.Weights
	if weights == nil {
		weights = scoring.Weights{}
	}

	hist, err := h.draws.History(r.Context(), req.Lottery)
	if err != nil {
		h.respondScoringError(w, req.Lottery, err)
		return
	}
	rec, err := h.predictions.Preview(req.Lottery, hist, v, weights)
	if err != nil {
		h.respondScoringError(w, req.Lottery, err)
		return
	}
	bt, err := h.optimization.Backtester(r.Context(), req.Lottery)
	if err != nil {
		h.respondScoringError(w, req.Lottery, err)
		return
	}
	report, err := bt.Report(v, weights, depth)
	if err != nil {
		h.respondScoringError(w, req.Lottery, err)
		return
	}

	h.respondJSON(w, http.StatusOK, WhatIfResponse{
		Lottery:    req.Lottery,
		Variant:    v,
		Weights:    weights,
		OutOfRange: v.Space().OutOfRange(weights),
		Prediction: rec,
		Report:     report,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) respondScoringError(w http.ResponseWriter, lottery string, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownLottery):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scoring.ErrInvalidWeights):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrMissingData), errors.Is(err, scoring.ErrInsufficientHistory):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Str("lottery", lottery).Msg("What-if scoring failed")
		h.respondError(w, http.StatusInternalServerError, "What-if scoring failed")
	}
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
