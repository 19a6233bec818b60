package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWrongKind is returned when a variant is used with the other kind's
// entry point.
var ErrWrongKind = errors.New("wrong strategy kind")

// Kind separates whole-draw strategies from special-value strategies.
type Kind string

const (
	KindGeneral Kind = "general"
	KindSpecial Kind = "special"
)

// Variant identifies a strategy version.
type Variant string

const (
	// GeneralV5 scores all values with pair co-occurrence bonuses.
	GeneralV5 Variant = "general_v5"
	// GeneralV6 adds triple co-occurrence bonuses.
	GeneralV6 Variant = "general_v6"
	// SpecialV5 scores the special value with coldest-zodiac protection.
	SpecialV5 Variant = "special_v5"
	// SpecialV7 adds banded gaps, cycles, balance, element weighting,
	// cross-validation, defence zodiacs and resonance.
	SpecialV7 Variant = "special_v7"
)

var allVariants = []Variant{GeneralV5, GeneralV6, SpecialV5, SpecialV7}

// Variants returns every known variant.
func Variants() []Variant {
	return append([]Variant(nil), allVariants...)
}

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allVariants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown strategy variant %q", s)
}

// Kind returns the prediction kind of the variant.
func (v Variant) Kind() Kind {
	if strings.HasPrefix(string(v), string(KindSpecial)) {
		return KindSpecial
	}
	return KindGeneral
}

// Space returns the tunable parameters of the variant.
func (v Variant) Space() Space {
	var src Space
	switch v {
	case GeneralV5:
		src = generalSpace[:len(generalSpace)-1]
	case GeneralV6:
		src = generalSpace
	case SpecialV5:
		src = specialV5Space
	case SpecialV7:
		src = specialV7Space
	default:
		return nil
	}
	return append(Space(nil), src...)
}

func (v Variant) String() string { return string(v) }

// General parameter names.
const (
	ParamTrendLookback          = "trend_lookback"
	ParamHotScore               = "hot_score"
	ParamColdScore              = "cold_score"
	ParamCategoryTrend          = "category_trend"
	ParamCombo2Diversity        = "combo_2_diversity"
	ParamCombo3ColorDiversity   = "combo_3_color_diversity"
	ParamCombo3ElementDiversity = "combo_3_element_diversity"
	ParamCoOccurrenceWeight     = "co_occurrence_weight"
	ParamTripletWeight          = "triplet_weight"
)

// Special parameter names.
const (
	ParamSpecialHot         = "special_hot"
	ParamSpecialGap         = "special_gap"
	ParamSpecialZodiac      = "special_zodiac"
	ParamSpecialColor       = "special_color_weight"
	ParamSpecialTail        = "special_tail_weight"
	ParamSpecialColdProtect = "special_cold_protect"
	ParamSpecialLookback    = "special_lookback"
	ParamSpecialResonance   = "special_resonance"
	ParamSpecialCycle       = "special_cycle_weight"
	ParamSpecialElement     = "special_element_weight"
	ParamSpecialBalance     = "special_balance_weight"
	ParamSpecialDiversity   = "special_diversity_bonus"
)

// triplet_weight must stay last: GeneralV5 is this space without it.
var generalSpace = Space{
	{Name: ParamTrendLookback, Description: "draws in the category trend window", Min: 5, Max: 30, Default: 10, Integer: true},
	{Name: ParamHotScore, Description: "weight of overall value frequency", Min: 0, Max: 2, Default: 0.5},
	{Name: ParamColdScore, Description: "weight of draws since a value last appeared", Min: 0, Max: 2, Default: 0.8},
	{Name: ParamCategoryTrend, Description: "weight of recent category label counts", Min: 0, Max: 3, Default: 1.0},
	{Name: ParamCombo2Diversity, Description: "pair multiplier when colors differ", Min: 1, Max: 1.5, Default: 1.1},
	{Name: ParamCombo3ColorDiversity, Description: "triple multiplier when all colors differ", Min: 1, Max: 1.5, Default: 1.1},
	{Name: ParamCombo3ElementDiversity, Description: "triple multiplier when all elements differ", Min: 1, Max: 1.5, Default: 1.1},
	{Name: ParamCoOccurrenceWeight, Description: "bonus per historical pair co-occurrence", Min: 0, Max: 6, Default: 1.0},
	{Name: ParamTripletWeight, Description: "bonus per historical triple co-occurrence", Min: 0, Max: 8, Default: 1.0},
}

var specialV5Space = Space{
	{Name: ParamSpecialHot, Description: "weight of recent zodiac counts", Min: 0, Max: 3, Default: 1.0},
	{Name: ParamSpecialGap, Description: "weight of zodiac gap bands", Min: 0, Max: 3, Default: 1.5},
	{Name: ParamSpecialZodiac, Description: "zodiac score multiplier for values", Min: 0, Max: 5, Default: 2.0},
	{Name: ParamSpecialColor, Description: "weight of recent color share", Min: 0, Max: 5, Default: 1.0},
	{Name: ParamSpecialTail, Description: "weight of recent tail-digit share", Min: 0, Max: 5, Default: 1.0},
	{Name: ParamSpecialColdProtect, Description: "bonus for the coldest zodiac and long-absent values", Min: 0, Max: 5, Default: 2.0},
	{Name: ParamSpecialLookback, Description: "special draws in the recent window", Min: 5, Max: 50, Default: 20, Integer: true},
}

var specialV7Space = Space{
	{Name: ParamSpecialHot, Description: "weight of recent zodiac counts", Min: 0, Max: 5, Default: 1.0},
	{Name: ParamSpecialGap, Description: "weight of zodiac gap bands", Min: 0, Max: 5, Default: 1.5},
	{Name: ParamSpecialZodiac, Description: "zodiac score multiplier for values", Min: 0, Max: 10, Default: 2.0},
	{Name: ParamSpecialColor, Description: "weight of recent color share", Min: 0, Max: 6, Default: 1.0},
	{Name: ParamSpecialTail, Description: "weight of recent tail-digit share", Min: 0, Max: 6, Default: 1.0},
	{Name: ParamSpecialColdProtect, Description: "unused by v7 scoring", Min: 0, Max: 8, Default: 2.0},
	{Name: ParamSpecialLookback, Description: "special draws in the recent window", Min: 5, Max: 100, Default: 20, Integer: true},
	{Name: ParamSpecialResonance, Description: "multiplier when zodiac, color and tail agree", Min: 1, Max: 4, Default: 1.5},
	{Name: ParamSpecialCycle, Description: "weight of zodiac counts in the last five draws", Min: 0, Max: 5, Default: 1.0},
	{Name: ParamSpecialElement, Description: "weight of recent element share", Min: 0, Max: 5, Default: 1.0},
	{Name: ParamSpecialBalance, Description: "bonus for zodiacs below the average count", Min: 0, Max: 4, Default: 1.0},
	{Name: ParamSpecialDiversity, Description: "unused by v7 scoring", Min: 0, Max: 3, Default: 1.0},
}

func kindError(v Variant, want Kind) error {
	return fmt.Errorf("variant %q is not a %s strategy: %w", v, want, ErrWrongKind)
}
