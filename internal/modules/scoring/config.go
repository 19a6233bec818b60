package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight is NaN, infinite or negative.
var ErrInvalidWeights = errors.New("invalid strategy weights")

// Minimum lookbacks applied at use time.
const (
	defaultTrendLookback = 10
	minSpecialLookback   = 5
)

// GeneralConfig is the typed form of a general strategy.
type GeneralConfig struct {
	Variant Variant

	// TrendLookback is the category trend window, [5,30], default 10.
	// Values <= 0 fall back to the default.
	TrendLookback int
	// HotScore weighs overall value frequency, [0,2], default 0.5.
	HotScore float64
	// ColdScore weighs draws since last appearance, [0,2], default 0.8.
	ColdScore float64
	// CategoryTrend weighs recent category label counts, [0,3], default 1.0.
	CategoryTrend float64
	// Combo2Diversity multiplies pairs spanning two colors, [1,1.5], default 1.1.
	Combo2Diversity float64
	// Combo3ColorDiversity multiplies triples spanning three colors, [1,1.5], default 1.1.
	Combo3ColorDiversity float64
	// Combo3ElementDiversity multiplies triples spanning three elements, [1,1.5], default 1.1.
	Combo3ElementDiversity float64
	// CoOccurrenceWeight is the bonus per historical pair co-occurrence, [0,6], default 1.0.
	CoOccurrenceWeight float64
	// TripletWeight is the bonus per historical triple co-occurrence, [0,8],
	// default 1.0. Only GeneralV6 uses it.
	TripletWeight float64
}

// NewGeneralConfig builds a GeneralConfig from w, filling absent keys with
// defaults.
func NewGeneralConfig(v Variant, w Weights) (GeneralConfig, error) {
	if v.Kind() != KindGeneral || v.Space() == nil {
		return GeneralConfig{}, kindError(v, KindGeneral)
	}
	r := weightReader{w: w, space: generalSpace}

	cfg := GeneralConfig{
		Variant:                v,
		TrendLookback:          int(math.Floor(r.get(ParamTrendLookback))),
		HotScore:               r.get(ParamHotScore),
		ColdScore:              r.get(ParamColdScore),
		CategoryTrend:          r.get(ParamCategoryTrend),
		Combo2Diversity:        r.get(ParamCombo2Diversity),
		Combo3ColorDiversity:   r.get(ParamCombo3ColorDiversity),
		Combo3ElementDiversity: r.get(ParamCombo3ElementDiversity),
		CoOccurrenceWeight:     r.get(ParamCoOccurrenceWeight),
		TripletWeight:          r.get(ParamTripletWeight),
	}
	if r.err != nil {
		return GeneralConfig{}, r.err
	}
	if cfg.TrendLookback <= 0 {
		cfg.TrendLookback = defaultTrendLookback
	}
	return cfg, nil
}

// SpecialConfig is the typed form of a special strategy.
type SpecialConfig struct {
	Variant Variant

	// Lookback is the recent window, floored and raised to at least 5.
	// [5,50] for v5, [5,100] for v7, default 20.
	Lookback int
	// Hot weighs recent zodiac counts, default 1.0.
	Hot float64
	// Gap weighs zodiac gap bands, default 1.5.
	Gap float64
	// Zodiac multiplies zodiac scores into value scores, default 2.0.
	Zodiac float64
	// Color weighs the recent color share, default 1.0.
	Color float64
	// Tail weighs the recent tail-digit share, default 1.0.
	Tail float64
	// ColdProtect is added to the coldest zodiac and to values absent for
	// more than 40 draws, default 2.0. v7 carries the gene but ignores it.
	ColdProtect float64
	// Resonance multiplies values backed by two of zodiac, color and tail
	// leaders, [1,4], default 1.5. v7 only.
	Resonance float64
	// Cycle weighs zodiac counts in the last five draws, default 1.0. v7 only.
	Cycle float64
	// Element weighs the recent element share, default 1.0. v7 only.
	Element float64
	// Balance rewards zodiacs below the average count, default 1.0. v7 only.
	Balance float64
	// Diversity is a v7 gene kept for strategy-file compatibility. Scoring
	// ignores it.
	Diversity float64
}

// NewSpecialConfig builds a SpecialConfig from w, filling absent keys with
// defaults.
func NewSpecialConfig(v Variant, w Weights) (SpecialConfig, error) {
	if v.Kind() != KindSpecial || v.Space() == nil {
		return SpecialConfig{}, kindError(v, KindSpecial)
	}
	r := weightReader{w: w, space: specialV7Space}

	cfg := SpecialConfig{
		Variant:     v,
		Lookback:    int(math.Floor(r.get(ParamSpecialLookback))),
		Hot:         r.get(ParamSpecialHot),
		Gap:         r.get(ParamSpecialGap),
		Zodiac:      r.get(ParamSpecialZodiac),
		Color:       r.get(ParamSpecialColor),
		Tail:        r.get(ParamSpecialTail),
		ColdProtect: r.get(ParamSpecialColdProtect),
		Resonance:   r.get(ParamSpecialResonance),
		Cycle:       r.get(ParamSpecialCycle),
		Element:     r.get(ParamSpecialElement),
		Balance:     r.get(ParamSpecialBalance),
		Diversity:   r.get(ParamSpecialDiversity),
	}
	if r.err != nil {
		return SpecialConfig{}, r.err
	}
	if cfg.Lookback < minSpecialLookback {
		cfg.Lookback = minSpecialLookback
	}
	return cfg, nil
}

// weightReader resolves names against a space's defaults and remembers the
// first invalid value.
type weightReader struct {
	w     Weights
	space Space
	err   error
}

func (r *weightReader) get(name string) float64 {
	def := 0.0
	if spec, ok := r.space.Spec(name); ok {
		def = spec.Default
	}
	v := r.w.Get(name, def)
	if r.err == nil && (math.IsNaN(v) || math.IsInf(v, 0) || v < 0) {
		r.err = fmt.Errorf("%s=%v: %w", name, v, ErrInvalidWeights)
	}
	return v
}
