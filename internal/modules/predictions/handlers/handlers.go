// Package handlers provides HTTP handlers for predictions and reviews.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/predictions"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/services"
)

// Handler serves prediction and review endpoints
type Handler struct {
	draws       *services.DrawService
	predictions *predictions.Service
	variants    []scoring.Variant
	log         zerolog.Logger
}

// NewHandler creates a new predictions handler. variants are predicted
// and reviewed when a request names none.
func NewHandler(draws *services.DrawService, svc *predictions.Service, variants []scoring.Variant, log zerolog.Logger) *Handler {
	if len(variants) == 0 {
		variants = scoring.Variants()
	}
	return &Handler{
		draws:       draws,
		predictions: svc,
		variants:    variants,
		log:         log.With().Str("component", "prediction_handlers").Logger(),
	}
}

// PredictRequest selects the variants to predict. Empty means all.
type PredictRequest struct {
	Variants []string `json:"variants"`
}

// PredictionResult is one entry of a predict response
type PredictionResult struct {
	Prediction *predictions.Record `json:"prediction"`
	Created    bool                `json:"created"`
}

// HandleListPredictions lists stored predictions of one variant
// GET /api/lotteries/{lottery}/predictions?variant=general_v6&limit=20
func (h *Handler) HandleListPredictions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	if !h.draws.Has(name) {
		h.respondError(w, http.StatusNotFound, "Unknown lottery")
		return
	}
	v, err := scoring.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.predictions.Repository().ListPredictions(r.Context(), name, v, parseLimit(r, 20))
	if err != nil {
		h.log.Error().Err(err).Str("lottery", name).Msg("Failed to list predictions")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve predictions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery":     name,
		"variant":     v,
		"predictions": records,
		"count":       len(records),
	})
}

// HandleGetPrediction returns the prediction for one period
// GET /api/lotteries/{lottery}/predictions/{variant}/{period}
func (h *Handler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	v, err := scoring.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	period, err := strconv.ParseInt(chi.URLParam(r, "period"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid period")
		return
	}

	rec, err := h.predictions.Repository().GetPrediction(r.Context(), name, v, period)
	if err != nil {
		h.log.Error().Err(err).Str("lottery", name).Msg("Failed to get prediction")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve prediction")
		return
	}
	if rec == nil {
		h.respondError(w, http.StatusNotFound, "Prediction not found")
		return
	}
	h.respondJSON(w, http.StatusOK, rec)
}

// HandlePredict predicts the next period
// POST /api/lotteries/{lottery}/predictions
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	variants, err := h.parseVariants(req.Variants)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hist, err := h.draws.History(r.Context(), name)
	if err != nil {
		h.respondLotteryError(w, err)
		return
	}

	results := make([]PredictionResult, 0, len(variants))
	for _, v := range variants {
		rec, created, err := h.predictions.Predict(r.Context(), name, hist, v)
		if err != nil {
			h.respondLotteryError(w, err)
			return
		}
		results = append(results, PredictionResult{Prediction: rec, Created: created})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery":     name,
		"predictions": results,
	})
}

// HandleListReviews lists stored reviews
// GET /api/lotteries/{lottery}/reviews?limit=20
func (h *Handler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")
	if !h.draws.Has(name) {
		h.respondError(w, http.StatusNotFound, "Unknown lottery")
		return
	}

	reviews, err := h.predictions.Repository().ListReviews(r.Context(), name, parseLimit(r, 20))
	if err != nil {
		h.log.Error().Err(err).Str("lottery", name).Msg("Failed to list reviews")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"lottery": name,
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// HandleReview reviews the predictions for the latest draw
// POST /api/lotteries/{lottery}/reviews
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "lottery")

	hist, err := h.draws.History(r.Context(), name)
	if err != nil {
		h.respondLotteryError(w, err)
		return
	}

	rv, created, err := h.predictions.Review(r.Context(), name, hist, h.variants)
	if err != nil {
		h.respondLotteryError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"review":  rv,
		"created": created,
	})
}

func (h *Handler) parseVariants(names []string) ([]scoring.Variant, error) {
	if len(names) == 0 {
		return h.variants, nil
	}
	out := make([]scoring.Variant, 0, len(names))
	for _, name := range names {
		v, err := scoring.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) respondLotteryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownLottery):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, history.ErrMissingData), errors.Is(err, history.ErrMalformedRecord):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.respondError(w, http.StatusInternalServerError, "Internal error")
	}
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
