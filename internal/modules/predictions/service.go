package predictions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/drawlab/internal/events"
	"github.com/aristath/drawlab/internal/modules/categories"
	"github.com/aristath/drawlab/internal/modules/history"
	"github.com/aristath/drawlab/internal/modules/scoring"
	"github.com/aristath/drawlab/internal/modules/strategies"
)

// WeightSource resolves the weights a variant currently predicts with.
type WeightSource interface {
	Active(ctx context.Context, lottery string, v scoring.Variant) strategies.Active
}

// Service predicts and reviews draws for any lottery.
type Service struct {
	engine  *scoring.Engine
	weights WeightSource
	repo    *Repository
	events  *events.Manager
	width   int
	log     zerolog.Logger
}

// NewService creates a prediction service. width is the draw width used to
// derive special series.
func NewService(engine *scoring.Engine, weights WeightSource, repo *Repository, ev *events.Manager, width int, log zerolog.Logger) *Service {
	if width <= 0 {
		width = history.DefaultWidth
	}
	return &Service{
		engine:  engine,
		weights: weights,
		repo:    repo,
		events:  ev,
		width:   width,
		log:     log.With().Str("component", "prediction_service").Logger(),
	}
}

// Repository exposes the prediction repository.
func (s *Service) Repository() *Repository {
	return s.repo
}

// Predict returns the prediction of v for the period after the latest draw
// of h, creating and storing it when none exists. It reports whether a new
// prediction was created.
func (s *Service) Predict(ctx context.Context, lottery string, h history.History, v scoring.Variant) (*Record, bool, error) {
	latest, ok := h.Latest()
	if !ok {
		return nil, false, fmt.Errorf("no draws for %s: %w", lottery, history.ErrMissingData)
	}
	period := latest.Period + 1

	existing, err := s.repo.GetPrediction(ctx, lottery, v, period)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	active := s.weights.Active(ctx, lottery, v)
	rec, err := s.compute(lottery, h, v, active.Weights)
	if err != nil {
		return nil, false, err
	}
	rec.RunID = active.RunID
	rec.Source = active.Source

	created, err := s.repo.SavePrediction(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// another writer stored the period first
		stored, err := s.repo.GetPrediction(ctx, lottery, v, period)
		if err != nil {
			return nil, false, err
		}
		if stored != nil {
			return stored, false, nil
		}
	}

	s.log.Info().
		Str("lottery", lottery).
		Str("variant", string(v)).
		Int64("period", period).
		Str("source", string(active.Source)).
		Msg("Prediction created")
	s.events.Emit(ctx, "predictions", &events.PredictionCreatedData{
		Lottery: lottery,
		Variant: string(v),
		Period:  period,
		Source:  string(active.Source),
	})
	return rec, true, nil
}

// Preview predicts the period after the latest draw of h with weights w.
// Nothing is stored or emitted.
func (s *Service) Preview(lottery string, h history.History, v scoring.Variant, w scoring.Weights) (*Record, error) {
	if _, ok := h.Latest(); !ok {
		return nil, fmt.Errorf("no draws for %s: %w", lottery, history.ErrMissingData)
	}
	return s.compute(lottery, h, v, w)
}

func (s *Service) compute(lottery string, h history.History, v scoring.Variant, w scoring.Weights) (*Record, error) {
	latest, _ := h.Latest()
	rec := &Record{
		Lottery:   lottery,
		Variant:   v,
		Period:    latest.Period + 1,
		CreatedAt: time.Now(),
	}

	var err error
	switch v.Kind() {
	case scoring.KindGeneral:
		rec.General, err = s.engine.PredictGeneral(v, h, w)
	default:
		rec.Special, err = s.engine.PredictSpecial(v, h.Specials(s.width), w)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to predict %s %s: %w", lottery, v, err)
	}
	return rec, nil
}

// Review compares the stored predictions of variants for the latest draw
// of h with that draw. Each period is reviewed once; later calls return
// the stored review. It reports whether a new review was created.
func (s *Service) Review(ctx context.Context, lottery string, h history.History, variants []scoring.Variant) (*Review, bool, error) {
	latest, ok := h.Latest()
	if !ok {
		return nil, false, fmt.Errorf("no draws for %s: %w", lottery, history.ErrMissingData)
	}
	if len(latest.Entries) < 2 {
		return nil, false, fmt.Errorf("period %d: %w", latest.Period, history.ErrMalformedRecord)
	}

	existing, err := s.repo.GetReview(ctx, lottery, latest.Period)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	rv := s.newReview(lottery, latest)
	for _, v := range variants {
		rec, err := s.repo.GetPrediction(ctx, lottery, v, latest.Period)
		if err != nil {
			return nil, false, err
		}
		if rec == nil {
			s.log.Debug().Str("lottery", lottery).Str("variant", string(v)).Int64("period", latest.Period).Msg("No prediction to review")
			continue
		}
		rv.Variants = append(rv.Variants, reviewVariant(rec, latest))
	}

	created, err := s.repo.SaveReview(ctx, rv)
	if err != nil {
		return nil, false, err
	}
	if !created {
		stored, err := s.repo.GetReview(ctx, lottery, latest.Period)
		if err != nil {
			return nil, false, err
		}
		return stored, false, nil
	}

	s.log.Info().
		Str("lottery", lottery).
		Int64("period", latest.Period).
		Int("variants", len(rv.Variants)).
		Msg("Review recorded")
	s.events.Emit(ctx, "predictions", &events.ReviewCreatedData{
		Lottery:  lottery,
		Period:   latest.Period,
		Variants: len(rv.Variants),
	})
	return rv, true, nil
}

func (s *Service) newReview(lottery string, d history.Draw) *Review {
	regular := d.Regular()
	special := d.Special()

	values := make([]int, 0, len(regular))
	drawn := make(map[string]bool, len(regular))
	for _, e := range regular {
		values = append(values, e.Value)
		drawn[e.Zodiac] = true
	}
	sort.Ints(values)

	var zodiacs []string
	for _, z := range s.engine.Table().Labels(categories.Zodiac) {
		if drawn[z] {
			zodiacs = append(zodiacs, z)
		}
	}

	return &Review{
		Lottery:             lottery,
		Period:              d.Period,
		ActualValues:        values,
		ActualZodiacs:       zodiacs,
		ActualSpecial:       special.Value,
		ActualSpecialZodiac: special.Zodiac,
		Variants:            []VariantReview{},
		ReviewedAt:          time.Now(),
	}
}

func reviewVariant(rec *Record, d history.Draw) VariantReview {
	all := make(map[int]bool, len(d.Entries))
	for _, e := range d.Entries {
		all[e.Value] = true
	}
	regular := make(map[int]bool, len(d.Entries))
	regularZodiacs := make(map[string]bool, len(d.Entries))
	for _, e := range d.Regular() {
		regular[e.Value] = true
		regularZodiacs[e.Zodiac] = true
	}
	special := d.Special()

	out := VariantReview{Variant: rec.Variant}
	switch {
	case rec.General != nil:
		p := rec.General
		out.PredictedValues = scoring.Values(p.Values)
		out.PredictedZodiacs = scoring.Labels(p.Zodiacs)
		for _, v := range out.PredictedValues {
			if all[v] {
				out.ValueHits++
			}
		}
		for _, z := range out.PredictedZodiacs {
			if regularZodiacs[z] {
				out.ZodiacHits++
			}
		}
		out.PairHit = containsCombination(p.Pairs, regular)
		out.TripleHit = containsCombination(p.Triples, regular)
		out.SpecialValueHit = p.SpecialValue == special.Value
	case rec.Special != nil:
		p := rec.Special
		out.PredictedValues = scoring.Values(p.Values)
		out.PredictedZodiacs = scoring.Labels(p.Zodiacs)
		for _, z := range out.PredictedZodiacs {
			if z == special.Zodiac {
				out.ZodiacHits = 1
				break
			}
		}
		for _, v := range out.PredictedValues {
			if v == special.Value {
				out.ValueHits = 1
				out.SpecialValueHit = true
				break
			}
		}
	}
	return out
}

func containsCombination(combos []scoring.Combination, values map[int]bool) bool {
	for _, c := range combos {
		hit := true
		for _, v := range c.Values {
			if !values[v] {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}
